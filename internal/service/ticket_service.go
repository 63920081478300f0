package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/events"
	"github.com/spec-kit/kanban-service/internal/repository"
	"github.com/spec-kit/kanban-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	auditLogs  repository.AuditLogRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	AuditLogRepo repository.AuditLogRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	// Clock stamps updated_at on mutations; defaults to time.Now in UTC.
	Clock func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title            string
	Description      *string
	StatusID         *int64
	TypeID           *int64
	ReleaseID        *int64
	AssignedToUserID *int64
	Position         int64
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		auditLogs:  deps.AuditLogRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// CreateTicket inserts a ticket; the title must be non-blank.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errorutil.NewValidationError("title is required", map[string]any{"field": "title"})
	}

	ticket := &domain.Ticket{
		Title:            title,
		Description:      input.Description,
		StatusID:         input.StatusID,
		TypeID:           input.TypeID,
		ReleaseID:        input.ReleaseID,
		AssignedToUserID: input.AssignedToUserID,
		Position:         input.Position,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapRepositoryError(err, "ticket")
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{Ticket: *ticket}))
	return ticket, nil
}

// ListTickets returns every ticket in board order.
func (s *TicketService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, mapRepositoryError(err, "ticket")
	}
	return tickets, nil
}

// GetTicket loads a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err, "ticket")
	}
	return ticket, nil
}

// UpdateTicket applies patch and records one audit entry per changed field.
// The diff runs against the row read inside the update transaction. An empty
// patch returns the stored ticket without touching updated_at.
func (s *TicketService) UpdateTicket(ctx context.Context, id int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	if patch.Title.Present {
		title := strings.TrimSpace(patch.Title.Value)
		if patch.Title.Null || title == "" {
			return nil, errorutil.NewValidationError("title must be a non-empty string", map[string]any{"field": "title"})
		}
		patch.Title.Value = title
	}
	if patch.Empty() {
		return s.GetTicket(ctx, id)
	}

	var applied domain.ChangeSet
	updated, err := s.tickets.ApplyChangeSet(ctx, id, func(current domain.Ticket) (domain.ChangeSet, error) {
		applied = domain.Diff(current, patch, s.now())
		return applied, nil
	})
	if err != nil {
		return nil, mapRepositoryError(err, "ticket")
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketUpdated, id, events.TicketUpdatedPayload{
		Ticket:  *updated,
		Changes: applied.Entries(),
	}))
	return updated, nil
}

// DeleteTicket removes the ticket and its audit trail.
func (s *TicketService) DeleteTicket(ctx context.Context, id int64) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return mapRepositoryError(err, "ticket")
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return mapRepositoryError(err, "ticket")
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketDeleted, id, events.TicketDeletedPayload{Title: ticket.Title}))
	return nil
}

// ListAuditLog returns the ticket's audit trail, newest first. Unknown tickets
// yield an empty list.
func (s *TicketService) ListAuditLog(ctx context.Context, ticketID int64) ([]domain.AuditLogEntry, error) {
	entries, err := s.auditLogs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, mapRepositoryError(err, "audit log")
	}
	return entries, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event subscriber failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// mapRepositoryError converts repository sentinels into domain errors.
func mapRepositoryError(err error, resource string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errorutil.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrConflict):
		return errorutil.NewConflict(resource+" violates a uniqueness constraint", map[string]any{"cause": err.Error()})
	default:
		return errorutil.NewInternalError(err)
	}
}
