package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	httptransport "github.com/spec-kit/kanban-service/internal/api/http"
	"github.com/spec-kit/kanban-service/internal/api/http/handlers"
	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/events"
	"github.com/spec-kit/kanban-service/internal/observability"
	"github.com/spec-kit/kanban-service/internal/persistence"
	"github.com/spec-kit/kanban-service/internal/repository/sqlite"
	"github.com/spec-kit/kanban-service/internal/service"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "kanbanctl", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	for _, name := range []string{"server", "format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	want := []string{"list", "board", "create", "update", "move", "delete", "history", "search", "timeline"}
	have := map[string]bool{}
	for _, sub := range cmd.Commands() {
		have[sub.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], "missing subcommand %s", name)
	}
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	_, err := runCLI(t, roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("unreachable")
	}), "--format", "yaml", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", WrapExitError(ExitCommandError, "bad args", nil), ExitCommandError},
		{"wrapped exit error", errors.Join(errors.New("ctx"), WrapExitError(ExitFailure, "rejected", nil)), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// newServer starts an in-process API backed by a temporary SQLite file.
func newServer(t *testing.T) http.RoundTripper {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	db, err := persistence.OpenSQLite(ctx, config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "kanban.sqlite")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, persistence.RunSQLiteMigrations(ctx, db, logger))

	store := sqlite.NewStore(db)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	app := httptransport.NewApp("kanbanctl-test", logger, metrics, 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		APIPrefix: "/api",
		Health:    handlers.NewHealthHandler("kanbanctl-test", "test", metrics),
		Tickets: handlers.NewTicketsHandler(service.NewTicketService(service.TicketDependencies{
			TicketRepo:   store.Tickets,
			AuditLogRepo: store.AuditLogs,
			Dispatcher:   dispatcher,
			Logger:       logger,
		})),
		Metadata: handlers.NewMetadataHandler(service.NewMetadataService(store.Metadata, dispatcher, logger)),
	})

	return appTransport(app)
}

func appTransport(app *fiber.App) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return app.Test(req, -1)
	})
}

func runCLI(t *testing.T, rt http.RoundTripper, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&RootOptions{Transport: rt, Logger: zaptest.NewLogger(t)})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", "http://kanban.test/api"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeJSON[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestCreateUpdateHistory(t *testing.T) {
	rt := newServer(t)

	out, err := runCLI(t, rt, "--format", "json", "create", "--title", "Audit Target", "--status", "todo", "--type", "Bug")
	require.NoError(t, err)
	created := decodeJSON[domain.Ticket](t, out)
	require.NotNil(t, created.StatusID)
	assert.Equal(t, int64(1), *created.StatusID)
	require.NotNil(t, created.TypeID)
	assert.Equal(t, int64(1), *created.TypeID)

	id := itoa(created.ID)
	out, err = runCLI(t, rt, "--format", "json", "update", id, "--title", "Audit Target v2", "--status", "2")
	require.NoError(t, err)
	updated := decodeJSON[domain.Ticket](t, out)
	assert.Equal(t, "Audit Target v2", updated.Title)

	out, err = runCLI(t, rt, "--format", "json", "history", id)
	require.NoError(t, err)
	entries := decodeJSON[[]domain.AuditLogEntry](t, out)
	require.Len(t, entries, 2)
	fields := []string{entries[0].FieldChanged, entries[1].FieldChanged}
	assert.ElementsMatch(t, []string{"title", "status_id"}, fields)

	out, err = runCLI(t, rt, "history", id)
	require.NoError(t, err)
	assert.Contains(t, out, `title: "Audit Target" -> "Audit Target v2"`)
}

func TestUpdateClearsFieldWithNull(t *testing.T) {
	rt := newServer(t)

	out, err := runCLI(t, rt, "--format", "json", "create", "--title", "T", "--type", "1")
	require.NoError(t, err)
	id := itoa(decodeJSON[domain.Ticket](t, out).ID)

	out, err = runCLI(t, rt, "--format", "json", "update", id, "--type", "null")
	require.NoError(t, err)
	assert.Nil(t, decodeJSON[domain.Ticket](t, out).TypeID)

	out, err = runCLI(t, rt, "--format", "json", "history", id)
	require.NoError(t, err)
	entries := decodeJSON[[]domain.AuditLogEntry](t, out)
	require.Len(t, entries, 1)
	assert.Equal(t, "type_id", entries[0].FieldChanged)
	require.NotNil(t, entries[0].FromValue)
	assert.Equal(t, "1", *entries[0].FromValue)
	require.NotNil(t, entries[0].ToValue)
	assert.Equal(t, "", *entries[0].ToValue)
}

func TestBoardAndMove(t *testing.T) {
	rt := newServer(t)

	_, err := runCLI(t, rt, "create", "--title", "A", "--status", "Todo")
	require.NoError(t, err)
	out, err := runCLI(t, rt, "--format", "json", "create", "--title", "B", "--status", "Done")
	require.NoError(t, err)
	b := decodeJSON[domain.Ticket](t, out)
	_, err = runCLI(t, rt, "create", "--title", "Loose")
	require.NoError(t, err)

	type column struct {
		ID      *int64          `json:"id"`
		Name    string          `json:"name"`
		Tickets []domain.Ticket `json:"tickets"`
	}
	out, err = runCLI(t, rt, "--format", "json", "board", "--group-by", "status")
	require.NoError(t, err)
	board := decodeJSON[struct {
		Columns []column `json:"columns"`
	}](t, out)
	require.Len(t, board.Columns, 4)
	assert.Equal(t, "Todo", board.Columns[0].Name)
	assert.Len(t, board.Columns[0].Tickets, 1)
	assert.Empty(t, board.Columns[1].Tickets)
	assert.Len(t, board.Columns[2].Tickets, 1)
	assert.Equal(t, "Unassigned", board.Columns[3].Name)
	assert.Nil(t, board.Columns[3].ID)

	out, err = runCLI(t, rt, "--format", "json", "move", itoa(b.ID), "--to", "In Progress")
	require.NoError(t, err)
	moved := decodeJSON[domain.Ticket](t, out)
	require.NotNil(t, moved.StatusID)
	assert.Equal(t, int64(2), *moved.StatusID)

	out, err = runCLI(t, rt, "--format", "json", "search", "/status", "progress")
	require.NoError(t, err)
	found := decodeJSON[[]domain.Ticket](t, out)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	out, err = runCLI(t, rt, "board")
	require.NoError(t, err)
	assert.Contains(t, out, "== In Progress (1) ==")
	assert.Contains(t, out, "== Unassigned (1) ==")
}

func TestMoveRequiresOneDestination(t *testing.T) {
	rt := newServer(t)

	_, err := runCLI(t, rt, "move", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, rt, "move", "1", "--to", "1", "--onto", "2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDeleteAndServerErrors(t *testing.T) {
	rt := newServer(t)

	out, err := runCLI(t, rt, "--format", "json", "create", "--title", "Doomed")
	require.NoError(t, err)
	id := itoa(decodeJSON[domain.Ticket](t, out).ID)

	out, err = runCLI(t, rt, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted ticket "+id)

	_, err = runCLI(t, rt, "delete", id)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = runCLI(t, rt, "delete", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = runCLI(t, rt, "--format", "json", "list")
	require.NoError(t, err)
	assert.Empty(t, decodeJSON[[]domain.Ticket](t, out))
}

func TestCreateValidation(t *testing.T) {
	rt := newServer(t)

	_, err := runCLI(t, rt, "create")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, rt, "create", "--title", "X", "--status", "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no statuses named "Nope"`)
}

func TestUnreachableServer(t *testing.T) {
	_, err := runCLI(t, roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}), "list")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
