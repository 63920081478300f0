package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/events"
)

const webhookTimeout = 5 * time.Second

// NotificationService logs board activity and, when NOTIFY_WEBHOOK_URL is
// set, POSTs each event as JSON to that URL. Logging happens on the
// publishing goroutine; webhook delivery runs in the background.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	webhookURL string
	httpClient *http.Client
	inflight   sync.WaitGroup
}

func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		httpClient: &http.Client{Timeout: webhookTimeout},
	}
}

// RegisterHandlers subscribes to every board event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
	n.dispatcher.Subscribe(events.EventMetadataCreated, n.handleMetadataCreated)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	fields := []zap.Field{zap.Int64("ticket_id", event.TicketID)}
	if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
		fields = append(fields, zap.String("title", payload.Ticket.Title))
	}
	n.logger.Info("TicketCreated", fields...)
	n.deliverAsync(ctx, event)
	return nil
}

// handleTicketUpdated skips the webhook for updates that changed no value.
func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	var changed []string
	if payload, ok := event.Payload.(events.TicketUpdatedPayload); ok {
		for _, entry := range payload.Changes {
			changed = append(changed, entry.FieldChanged)
		}
	}
	n.logger.Info("TicketUpdated", zap.Int64("ticket_id", event.TicketID), zap.Strings("changed_fields", changed))
	if len(changed) == 0 {
		return nil
	}
	n.deliverAsync(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketDeleted", zap.Int64("ticket_id", event.TicketID))
	n.deliverAsync(ctx, event)
	return nil
}

func (n *NotificationService) handleMetadataCreated(_ context.Context, event events.Event) error {
	if payload, ok := event.Payload.(events.MetadataCreatedPayload); ok {
		n.logger.Info("MetadataCreated", zap.String("kind", string(payload.Kind)), zap.Int64("id", payload.ID), zap.String("name", payload.Name))
		return nil
	}
	n.logger.Info("MetadataCreated")
	return nil
}

// deliverAsync posts the event without holding up the publisher. The
// delivery outlives the request context but is bounded by webhookTimeout.
func (n *NotificationService) deliverAsync(ctx context.Context, event events.Event) {
	if n.webhookURL == "" {
		return
	}
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), webhookTimeout)
		defer cancel()
		if err := n.deliver(ctx, event); err != nil {
			n.logger.Warn("webhook delivery failed",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}()
}

// Shutdown waits for in-flight webhook deliveries or until ctx is done.
func (n *NotificationService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Kanban-Event", string(event.Type))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("deliver webhook: unexpected status %d", resp.StatusCode)
	}

	n.logger.Debug("webhook delivered",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.Int("status", resp.StatusCode))
	return nil
}
