package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/events"
	"github.com/spec-kit/kanban-service/internal/service"
)

type hookRecorder struct {
	mu     sync.Mutex
	kinds  []string
	bodies []events.Event
}

func (h *hookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var event events.Event
	_ = json.NewDecoder(r.Body).Decode(&event)
	h.mu.Lock()
	h.kinds = append(h.kinds, r.Header.Get("X-Kanban-Event"))
	h.bodies = append(h.bodies, event)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func TestStartNotificationWorkerDeliversWebhooks(t *testing.T) {
	hooks := &hookRecorder{}
	srv := httptest.NewServer(hooks)
	t.Cleanup(srv.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{WebhookURL: srv.URL})

	StartNotificationWorker(dispatcher, notifications, nil)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventTicketCreated, 3,
		events.TicketCreatedPayload{Ticket: domain.Ticket{ID: 3, Title: "Audit Target"}})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventTicketUpdated, 3,
		events.TicketUpdatedPayload{})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventTicketDeleted, 3, nil)))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventMetadataCreated, 0,
		events.MetadataCreatedPayload{Kind: domain.KindTypes, ID: 4, Name: "Spike"})))
	require.NoError(t, notifications.Shutdown(ctx))

	assert.Equal(t, 1, logs.FilterMessage("TicketCreated").Len())
	assert.Equal(t, 1, logs.FilterMessage("TicketUpdated").Len())
	assert.Equal(t, 1, logs.FilterMessage("TicketDeleted").Len())
	assert.Equal(t, 1, logs.FilterMessage("MetadataCreated").Len())
	assert.Equal(t, 2, logs.FilterMessage("webhook delivered").Len())

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	assert.ElementsMatch(t, []string{"ticket_created", "ticket_deleted"}, hooks.kinds)
	for _, body := range hooks.bodies {
		assert.Equal(t, int64(3), body.TicketID)
	}
}

func TestWebhookFailureIsLoggedNotReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	core, logs := observer.New(zapcore.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{WebhookURL: srv.URL})
	StartNotificationWorker(dispatcher, notifications, nil)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventTicketDeleted, 9, nil)))
	require.NoError(t, notifications.Shutdown(ctx))

	failures := logs.FilterMessage("webhook delivery failed").All()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].ContextMap()["error"], "unexpected status 502")
}

func TestWebhookDeliveryOutlivesRequestContext(t *testing.T) {
	hooks := &hookRecorder{}
	srv := httptest.NewServer(hooks)
	t.Cleanup(srv.Close)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{WebhookURL: srv.URL})
	StartNotificationWorker(dispatcher, notifications, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventTicketCreated, 5, nil)))
	cancel()
	require.NoError(t, notifications.Shutdown(context.Background()))

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	assert.Equal(t, []string{"ticket_created"}, hooks.kinds)
}
