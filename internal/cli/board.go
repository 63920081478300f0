package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/kanban-service/internal/client"
	"github.com/spec-kit/kanban-service/internal/domain"
)

type boardColumnJSON struct {
	ID      *int64          `json:"id"`
	Name    string          `json:"name"`
	Tickets []domain.Ticket `json:"tickets"`
}

func newBoardCommand(opts *RootOptions) *cobra.Command {
	var groupBy string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show tickets grouped into columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := client.ParseGrouping(groupBy)
			if err != nil {
				return WrapExitError(ExitCommandError, "--group-by", err)
			}
			store, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			board := store.Board(g)

			if opts.Format == "json" {
				cols := make([]boardColumnJSON, 0, len(board.Columns)+1)
				for _, col := range board.Columns {
					id := col.ID
					cols = append(cols, boardColumnJSON{ID: &id, Name: col.Name, Tickets: nonNil(col.Tickets)})
				}
				if len(board.Unassigned) > 0 {
					cols = append(cols, boardColumnJSON{Name: "Unassigned", Tickets: board.Unassigned})
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"group_by": g, "columns": cols})
			}

			out := cmd.OutOrStdout()
			n := namesFrom(store)
			for _, col := range board.Columns {
				fmt.Fprintf(out, "== %s (%d) ==\n", col.Name, len(col.Tickets))
				if len(col.Tickets) > 0 {
					if err := writeTickets(out, n, col.Tickets); err != nil {
						return err
					}
				}
				fmt.Fprintln(out)
			}
			if len(board.Unassigned) > 0 {
				fmt.Fprintf(out, "== Unassigned (%d) ==\n", len(board.Unassigned))
				return writeTickets(out, n, board.Unassigned)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&groupBy, "group-by", string(client.GroupByStatus), "column grouping (status|type|release)")
	return cmd
}

func newMoveCommand(opts *RootOptions) *cobra.Command {
	var (
		groupBy string
		to      string
		onto    int64
	)
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a ticket to a column or onto another ticket's column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			g, err := client.ParseGrouping(groupBy)
			if err != nil {
				return WrapExitError(ExitCommandError, "--group-by", err)
			}
			hasTo, hasOnto := cmd.Flags().Changed("to"), cmd.Flags().Changed("onto")
			if hasTo == hasOnto {
				return WrapExitError(ExitCommandError, "exactly one of --to or --onto is required", nil)
			}
			store, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}

			var ticket *domain.Ticket
			if hasOnto {
				ticket, err = store.MoveOntoTicket(cmd.Context(), id, g, onto)
			} else {
				var column int64
				column, err = resolveRef(store, groupingKind(g), to)
				if err != nil {
					return WrapExitError(ExitCommandError, "--to", err)
				}
				ticket, err = store.MoveToColumn(cmd.Context(), id, g, column)
			}
			if err != nil {
				return requestFailed("move ticket", err)
			}
			return printTicket(cmd, opts, store, *ticket)
		},
	}
	cmd.Flags().StringVar(&groupBy, "group-by", string(client.GroupByStatus), "column grouping (status|type|release)")
	cmd.Flags().StringVar(&to, "to", "", "destination column id or name")
	cmd.Flags().Int64Var(&onto, "onto", 0, "id of the ticket to drop onto")
	return cmd
}

func groupingKind(g client.Grouping) domain.TaxonomyKind {
	switch g {
	case client.GroupByType:
		return domain.KindTypes
	case client.GroupByRelease:
		return domain.KindReleases
	default:
		return domain.KindStatuses
	}
}

func nonNil(tickets []domain.Ticket) []domain.Ticket {
	if tickets == nil {
		return []domain.Ticket{}
	}
	return tickets
}
