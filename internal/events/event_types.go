package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/kanban-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketDeleted   EventType = "ticket_deleted"
	EventMetadataCreated EventType = "metadata_created"
)

// AllEventTypes lists every type a catch-all subscriber registers for.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketDeleted,
	EventMetadataCreated,
}

// Event represents a domain event emitted by services after a commit.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps a fresh id and timestamp.
func NewEvent(eventType EventType, ticketID int64, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// TicketUpdatedPayload carries the audit rows written by the update.
type TicketUpdatedPayload struct {
	Ticket  domain.Ticket          `json:"ticket"`
	Changes []domain.AuditLogEntry `json:"changes"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Title string `json:"title"`
}

// MetadataCreatedPayload payload.
type MetadataCreatedPayload struct {
	Kind domain.TaxonomyKind `json:"kind"`
	ID   int64               `json:"id"`
	Name string              `json:"name"`
}
