package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/events"
	"github.com/spec-kit/kanban-service/internal/persistence"
	"github.com/spec-kit/kanban-service/internal/repository/sqlite"
)

func TestSlowWebhookDoesNotDelayMutations(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	release := make(chan struct{})
	received := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("X-Kanban-Event")
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	// Runs before srv.Close so the blocked handlers can return.
	t.Cleanup(func() { close(release) })

	db, err := persistence.OpenSQLite(ctx, config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "kanban.sqlite")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, persistence.RunSQLiteMigrations(ctx, db, logger))
	store := sqlite.NewStore(db)

	dispatcher := events.NewInMemoryDispatcher()
	// Deliveries finish after the test body; keep them off the test logger.
	notifications := NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{WebhookURL: srv.URL})
	notifications.RegisterHandlers()
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:   store.Tickets,
		AuditLogRepo: store.AuditLogs,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	start := time.Now()
	ticket, err := tickets.CreateTicket(ctx, TicketCreateInput{Title: "Fast"})
	require.NoError(t, err)
	require.NoError(t, tickets.DeleteTicket(ctx, ticket.ID))
	assert.Less(t, time.Since(start), time.Second, "mutations must not wait for the webhook")

	var kinds []string
	for range 2 {
		select {
		case kind := <-received:
			kinds = append(kinds, kind)
		case <-time.After(5 * time.Second):
			t.Fatal("webhook never arrived")
		}
	}
	assert.ElementsMatch(t, []string{"ticket_created", "ticket_deleted"}, kinds)

	shutdownCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, notifications.Shutdown(shutdownCtx), context.DeadlineExceeded, "deliveries still blocked")
}
