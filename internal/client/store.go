package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/kanban-service/internal/domain"
)

// SyncState tracks how far a ticket's local copy is from the server's.
type SyncState int

const (
	// Synced means the local copy matches the last server response.
	Synced SyncState = iota
	// Pending means an optimistic edit is applied locally and in flight.
	Pending
	// Reconciling means the edit failed and the board is being re-fetched.
	Reconciling
)

func (s SyncState) String() string {
	switch s {
	case Synced:
		return "synced"
	case Pending:
		return "pending"
	case Reconciling:
		return "reconciling"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// Transition records one sync state change of a ticket.
type Transition struct {
	TicketID int64
	From     SyncState
	To       SyncState
}

// Store holds the last fetched tickets and taxonomies and reconciles them
// with server responses after each mutation.
type Store struct {
	api    API
	logger *zap.Logger

	mu          sync.RWMutex
	tickets     []domain.Ticket
	statuses    []domain.Status
	types       []domain.Type
	releases    []domain.Release
	users       []domain.User
	states      map[int64]SyncState
	transitions []Transition
	observers   []func(Transition)
}

func NewStore(api API, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		api:    api,
		logger: logger,
		states: make(map[int64]SyncState),
	}
}

// Load fetches tickets and all four taxonomies concurrently. Each fetch
// populates its collection independently; failures are joined.
func (s *Store) Load(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	fetch := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				s.logger.Warn("initial load failed", zap.String("collection", name), zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("load %s: %w", name, err))
				mu.Unlock()
			}
			return nil
		})
	}

	fetch("tickets", func() error { return s.Refresh(ctx) })
	fetch("statuses", func() error {
		rows, err := s.api.ListStatuses(ctx)
		if err == nil {
			s.mu.Lock()
			s.statuses = rows
			s.mu.Unlock()
		}
		return err
	})
	fetch("types", func() error {
		rows, err := s.api.ListTypes(ctx)
		if err == nil {
			s.mu.Lock()
			s.types = rows
			s.mu.Unlock()
		}
		return err
	})
	fetch("releases", func() error {
		rows, err := s.api.ListReleases(ctx)
		if err == nil {
			s.mu.Lock()
			s.releases = rows
			s.mu.Unlock()
		}
		return err
	})
	fetch("users", func() error {
		rows, err := s.api.ListUsers(ctx)
		if err == nil {
			s.mu.Lock()
			s.users = rows
			s.mu.Unlock()
		}
		return err
	})

	_ = g.Wait()
	return errors.Join(errs...)
}

// Refresh replaces the local ticket collection with the server's. Tickets
// left Reconciling by an earlier failed resync become Synced.
func (s *Store) Refresh(ctx context.Context) error {
	tickets, err := s.api.ListTickets(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tickets = tickets
	var settled []int64
	for id, state := range s.states {
		if state == Reconciling {
			settled = append(settled, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(settled, func(i, j int) bool { return settled[i] < settled[j] })
	for _, id := range settled {
		s.transition(id, Synced)
	}
	return nil
}

// AddTicket creates a ticket on the server and appends the returned row.
// Nothing is added locally if the create fails.
func (s *Store) AddTicket(ctx context.Context, draft Draft) (*domain.Ticket, error) {
	created, err := s.api.CreateTicket(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.tickets = append(s.tickets, *created)
	s.states[created.ID] = Synced
	s.mu.Unlock()
	return created, nil
}

// UpdateTicket applies patch locally, then sends it. On success the server
// row replaces the optimistic copy. On failure the optimistic copy is dropped
// and the whole collection is re-fetched; the original error is returned.
// If that re-fetch fails too, the ticket keeps its pre-edit copy and stays
// Reconciling until the next successful Refresh.
func (s *Store) UpdateTicket(ctx context.Context, id int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	previous, hadLocal := s.applyOptimistic(id, patch)
	if hadLocal {
		s.transition(id, Pending)
	}

	updated, err := s.api.UpdateTicket(ctx, id, patch)
	if err == nil {
		s.mu.Lock()
		s.replace(*updated)
		s.mu.Unlock()
		if hadLocal {
			s.transition(id, Synced)
		}
		return updated, nil
	}

	s.logger.Warn("ticket update failed; resynchronizing", zap.Int64("ticket_id", id), zap.Error(err))
	if hadLocal {
		s.mu.Lock()
		s.replace(previous)
		s.mu.Unlock()
		s.transition(id, Reconciling)
	}
	if refreshErr := s.Refresh(ctx); refreshErr != nil {
		s.logger.Warn("resynchronization failed", zap.Error(refreshErr))
		return nil, errors.Join(err, refreshErr)
	}
	return nil, err
}

// DeleteTicket deletes on the server, then drops the local copy.
func (s *Store) DeleteTicket(ctx context.Context, id int64) error {
	if err := s.api.DeleteTicket(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			s.tickets = append(s.tickets[:i], s.tickets[i+1:]...)
			break
		}
	}
	delete(s.states, id)
	return nil
}

// AuditLog fetches the ticket's audit trail, newest first.
func (s *Store) AuditLog(ctx context.Context, id int64) ([]domain.AuditLogEntry, error) {
	return s.api.ListAuditLog(ctx, id)
}

// Ticket returns a copy of the local ticket.
func (s *Store) Ticket(id int64) (domain.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tickets {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.Ticket{}, false
}

// Tickets returns the local tickets in server order.
func (s *Store) Tickets() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Ticket, len(s.tickets))
	for i, t := range s.tickets {
		out[i] = t.Clone()
	}
	return out
}

// Timeline returns tickets ordered by updated_at, most recent first.
func (s *Store) Timeline() []domain.Ticket {
	out := s.Tickets()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *Store) Statuses() []domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Status(nil), s.statuses...)
}

func (s *Store) Types() []domain.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Type(nil), s.types...)
}

func (s *Store) Releases() []domain.Release {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Release(nil), s.releases...)
}

func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.User(nil), s.users...)
}

// SyncState reports the ticket's current sync state. Unknown ids are Synced.
func (s *Store) SyncState(id int64) SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[id]
}

// Transitions returns every recorded state change in order.
func (s *Store) Transitions() []Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transition(nil), s.transitions...)
}

// OnTransition registers fn to be called after each state change.
func (s *Store) OnTransition(fn func(Transition)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) applyOptimistic(id int64, patch domain.TicketPatch) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			previous := s.tickets[i].Clone()
			patch.ApplyTo(&s.tickets[i])
			return previous, true
		}
	}
	return domain.Ticket{}, false
}

// replace swaps in t by id. Callers hold mu.
func (s *Store) replace(t domain.Ticket) {
	for i := range s.tickets {
		if s.tickets[i].ID == t.ID {
			s.tickets[i] = t
			return
		}
	}
}

func (s *Store) transition(id int64, to SyncState) {
	s.mu.Lock()
	tr := Transition{TicketID: id, From: s.states[id], To: to}
	s.states[id] = to
	s.transitions = append(s.transitions, tr)
	observers := append([]func(Transition){}, s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(tr)
	}
}
