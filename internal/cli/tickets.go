package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/kanban-service/internal/client"
	"github.com/spec-kit/kanban-service/internal/domain"
)

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tickets in server order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printTickets(cmd, opts, store, store.Tickets())
		},
	}
}

func newTimelineCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline",
		Short: "List tickets by last update, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printTickets(cmd, opts, store, store.Timeline())
		},
	}
}

func newSearchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Search tickets by text or with /status, /type, /release, /assigned",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printTickets(cmd, opts, store, store.Search(strings.Join(args, " ")))
		},
	}
}

type createOptions struct {
	title       string
	description string
	status      string
	typ         string
	release     string
	assignee    string
	position    int64
}

func newCreateCommand(opts *RootOptions) *cobra.Command {
	var co createOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(co.title) == "" {
				return WrapExitError(ExitCommandError, "--title is required", nil)
			}
			store, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}

			draft := client.Draft{Title: co.title}
			if cmd.Flags().Changed("description") {
				draft.Description = &co.description
			}
			if cmd.Flags().Changed("position") {
				draft.Position = &co.position
			}
			refs := []struct {
				flag, raw string
				kind      domain.TaxonomyKind
				dst       **int64
			}{
				{"status", co.status, domain.KindStatuses, &draft.StatusID},
				{"type", co.typ, domain.KindTypes, &draft.TypeID},
				{"release", co.release, domain.KindReleases, &draft.ReleaseID},
				{"assignee", co.assignee, domain.KindUsers, &draft.AssignedToUserID},
			}
			for _, ref := range refs {
				if !cmd.Flags().Changed(ref.flag) {
					continue
				}
				id, err := resolveRef(store, ref.kind, ref.raw)
				if err != nil {
					return WrapExitError(ExitCommandError, "--"+ref.flag, err)
				}
				*ref.dst = &id
			}

			ticket, err := store.AddTicket(cmd.Context(), draft)
			if err != nil {
				return requestFailed("create ticket", err)
			}
			return printTicket(cmd, opts, store, *ticket)
		},
	}

	cmd.Flags().StringVar(&co.title, "title", "", "ticket title (required)")
	cmd.Flags().StringVar(&co.description, "description", "", "ticket description")
	cmd.Flags().StringVar(&co.status, "status", "", "status id or name")
	cmd.Flags().StringVar(&co.typ, "type", "", "type id or name")
	cmd.Flags().StringVar(&co.release, "release", "", "release id or name")
	cmd.Flags().StringVar(&co.assignee, "assignee", "", "user id or name")
	cmd.Flags().Int64Var(&co.position, "position", 0, "ordering key")
	return cmd
}

// nullValue clears a nullable field when passed to update.
const nullValue = "null"

func newUpdateCommand(opts *RootOptions) *cobra.Command {
	var co createOptions
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Patch ticket fields; pass \"null\" to clear a nullable field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}

			var patch domain.TicketPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = domain.Set(co.title)
			}
			if flags.Changed("description") {
				if co.description == nullValue {
					patch.Description = domain.Null[string]()
				} else {
					patch.Description = domain.Set(co.description)
				}
			}
			if flags.Changed("position") {
				patch.Position = domain.Set(co.position)
			}
			refs := []struct {
				flag, raw string
				kind      domain.TaxonomyKind
				dst       *domain.Optional[int64]
			}{
				{"status", co.status, domain.KindStatuses, &patch.StatusID},
				{"type", co.typ, domain.KindTypes, &patch.TypeID},
				{"release", co.release, domain.KindReleases, &patch.ReleaseID},
				{"assignee", co.assignee, domain.KindUsers, &patch.AssignedToUserID},
			}
			for _, ref := range refs {
				if !flags.Changed(ref.flag) {
					continue
				}
				if ref.raw == nullValue {
					*ref.dst = domain.Null[int64]()
					continue
				}
				v, err := resolveRef(store, ref.kind, ref.raw)
				if err != nil {
					return WrapExitError(ExitCommandError, "--"+ref.flag, err)
				}
				*ref.dst = domain.Set(v)
			}

			ticket, err := store.UpdateTicket(cmd.Context(), id, patch)
			if err != nil {
				return requestFailed("update ticket", err)
			}
			return printTicket(cmd, opts, store, *ticket)
		},
	}

	cmd.Flags().StringVar(&co.title, "title", "", "new title")
	cmd.Flags().StringVar(&co.description, "description", "", "new description or null")
	cmd.Flags().StringVar(&co.status, "status", "", "status id, name or null")
	cmd.Flags().StringVar(&co.typ, "type", "", "type id, name or null")
	cmd.Flags().StringVar(&co.release, "release", "", "release id, name or null")
	cmd.Flags().StringVar(&co.assignee, "assignee", "", "user id, name or null")
	cmd.Flags().Int64Var(&co.position, "position", 0, "ordering key")
	return cmd
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a ticket and its audit history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := store.DeleteTicket(cmd.Context(), id); err != nil {
				return requestFailed("delete ticket", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"id": id, "deleted": true})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted ticket %d\n", id)
			return err
		},
	}
}

func newHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the audit log of a ticket, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			entries, err := store.AuditLog(cmd.Context(), id)
			if err != nil {
				return requestFailed("load audit log", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, err := fmt.Fprintf(out, "no changes recorded for ticket %d\n", id)
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s: %q -> %q\n",
					e.ChangedAt.Local().Format(time.DateTime), e.FieldChanged, deref(e.FromValue), deref(e.ToValue))
			}
			return nil
		},
	}
}

func printTickets(cmd *cobra.Command, opts *RootOptions, store *client.Store, tickets []domain.Ticket) error {
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), tickets)
	}
	return writeTickets(cmd.OutOrStdout(), namesFrom(store), tickets)
}

func printTicket(cmd *cobra.Command, opts *RootOptions, store *client.Store, ticket domain.Ticket) error {
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), ticket)
	}
	return writeTicket(cmd.OutOrStdout(), namesFrom(store), ticket)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid ticket id %q", raw), nil)
	}
	return id, nil
}

// resolveRef accepts a numeric id or a case-insensitive exact name.
func resolveRef(store *client.Store, kind domain.TaxonomyKind, raw string) (int64, error) {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	n := namesFrom(store)
	var pool map[int64]string
	switch kind {
	case domain.KindStatuses:
		pool = n.statuses
	case domain.KindTypes:
		pool = n.types
	case domain.KindReleases:
		pool = n.releases
	case domain.KindUsers:
		pool = n.users
	}
	var (
		found int64
		hits  int
	)
	for id, name := range pool {
		if strings.EqualFold(name, raw) {
			found = id
			hits++
		}
	}
	switch hits {
	case 0:
		return 0, fmt.Errorf("no %s named %q", kind, raw)
	case 1:
		return found, nil
	default:
		return 0, fmt.Errorf("%s name %q is ambiguous, use the id", kind, raw)
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
