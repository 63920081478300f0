package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/kanban-service/internal/domain"
)

const ticketColumns = `id, title, description, status_id, type_id, release_id, assigned_to_user_id,
               position, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets ORDER BY position ASC, created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status_id, type_id, release_id, assigned_to_user_id,
            position, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
        RETURNING id, created_at, updated_at`
	now := time.Now().UTC()
	return translate(r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.StatusID,
		ticket.TypeID,
		ticket.ReleaseID,
		ticket.AssignedToUserID,
		ticket.Position,
		now,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt))
}

func (r *ticketRepository) ApplyChangeSet(ctx context.Context, id int64, build ChangeSetBuilder) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	current, err := scanTicket(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}

	cs, err := build(*current)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	cs.Patch.ApplyTo(&next)

	const update = `
        UPDATE tickets SET title=$1, description=$2, status_id=$3, type_id=$4, release_id=$5,
            assigned_to_user_id=$6, position=$7, updated_at=$8
        WHERE id=$9
        RETURNING ` + ticketColumns
	updated, err := scanTicket(tx.QueryRow(ctx, update,
		next.Title,
		next.Description,
		next.StatusID,
		next.TypeID,
		next.ReleaseID,
		next.AssignedToUserID,
		next.Position,
		cs.UpdatedAt,
		id,
	))
	if err != nil {
		return nil, translate(err)
	}

	const insertAudit = `
        INSERT INTO audit_logs (ticket_id, field_changed, from_value, to_value, changed_at)
        VALUES ($1,$2,$3,$4,$5)`
	for _, entry := range cs.Entries() {
		if _, err := tx.Exec(ctx, insertAudit,
			id,
			entry.FieldChanged,
			entry.FromValue,
			entry.ToValue,
			entry.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("insert audit %s: %w", entry.FieldChanged, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM audit_logs WHERE ticket_id=$1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.StatusID,
		&ticket.TypeID,
		&ticket.ReleaseID,
		&ticket.AssignedToUserID,
		&ticket.Position,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
