package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/kanban-service/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// ChangeSetBuilder computes the change set against the row as read inside
// the update transaction.
type ChangeSetBuilder func(current domain.Ticket) (domain.ChangeSet, error)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// List returns tickets ordered by position ascending, then newest first.
	List(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	// ApplyChangeSet writes the row and its audit entries in one transaction.
	ApplyChangeSet(ctx context.Context, id int64, build ChangeSetBuilder) (*domain.Ticket, error)
	// Delete removes the ticket together with its audit trail.
	Delete(ctx context.Context, id int64) error
}

// AuditLogRepository reads the immutable audit trail.
type AuditLogRepository interface {
	// ListByTicket returns entries newest first.
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.AuditLogEntry, error)
}

// MetadataRepository exposes one typed list/insert pair per taxonomy kind.
type MetadataRepository interface {
	ListStatuses(ctx context.Context) ([]domain.Status, error)
	CreateStatus(ctx context.Context, in domain.NewStatus) (*domain.Status, error)
	ListTypes(ctx context.Context) ([]domain.Type, error)
	CreateType(ctx context.Context, name string) (*domain.Type, error)
	ListReleases(ctx context.Context) ([]domain.Release, error)
	CreateRelease(ctx context.Context, name string) (*domain.Release, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error)
}

// Store bundles the repositories backed by one database.
type Store struct {
	Tickets   TicketRepository
	AuditLogs AuditLogRepository
	Metadata  MetadataRepository
	Ping      func(ctx context.Context) error
	Close     func() error
}
