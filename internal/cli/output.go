package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spec-kit/kanban-service/internal/client"
	"github.com/spec-kit/kanban-service/internal/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the server rejected the request
	ExitCommandError = 2 // bad arguments or unreachable server
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// requestFailed maps a server or transport error to an ExitError.
func requestFailed(action string, err error) error {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return WrapExitError(ExitFailure, action+" failed", err)
	}
	return WrapExitError(ExitCommandError, action+" failed", err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// names resolves taxonomy ids to display names for text output.
type names struct {
	statuses map[int64]string
	types    map[int64]string
	releases map[int64]string
	users    map[int64]string
}

func namesFrom(store *client.Store) names {
	n := names{
		statuses: map[int64]string{},
		types:    map[int64]string{},
		releases: map[int64]string{},
		users:    map[int64]string{},
	}
	for _, s := range store.Statuses() {
		n.statuses[s.ID] = s.Name
	}
	for _, t := range store.Types() {
		n.types[t.ID] = t.Name
	}
	for _, r := range store.Releases() {
		n.releases[r.ID] = r.Name
	}
	for _, u := range store.Users() {
		n.users[u.ID] = u.Name
	}
	return n
}

func lookup(m map[int64]string, id *int64) string {
	if id == nil {
		return "-"
	}
	if name, ok := m[*id]; ok {
		return name
	}
	return "#" + strconv.FormatInt(*id, 10)
}

func writeTickets(w io.Writer, n names, tickets []domain.Ticket) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tTYPE\tRELEASE\tASSIGNEE\tPOS\tUPDATED")
	for _, t := range tickets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			t.ID, t.Title,
			lookup(n.statuses, t.StatusID),
			lookup(n.types, t.TypeID),
			lookup(n.releases, t.ReleaseID),
			lookup(n.users, t.AssignedToUserID),
			t.Position,
			t.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func writeTicket(w io.Writer, n names, t domain.Ticket) error {
	return writeTickets(w, n, []domain.Ticket{t})
}
