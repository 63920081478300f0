package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/repository"
)

const ticketColumns = `id, title, description, status_id, type_id, release_id, assigned_to_user_id,
		position, created_at, updated_at`

type ticketRepository struct {
	db *sql.DB
}

// NewTicketRepository returns the SQLite ticket repository.
func NewTicketRepository(db *sql.DB) repository.TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ticketColumns+`
		FROM tickets ORDER BY position ASC, created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("list tickets: %w", err)
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	ticket, err := scanTicket(row)
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO tickets (title, description, status_id, type_id, release_id, assigned_to_user_id,
			position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.Title,
		ticket.Description,
		ticket.StatusID,
		ticket.TypeID,
		ticket.ReleaseID,
		ticket.AssignedToUserID,
		ticket.Position,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return translate(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	ticket.ID = id
	ticket.CreatedAt = now
	ticket.UpdatedAt = ticket.CreatedAt
	return nil
}

// ApplyChangeSet runs inside an immediate transaction, so the row read here is
// the row the update overwrites.
func (r *ticketRepository) ApplyChangeSet(ctx context.Context, id int64, build repository.ChangeSetBuilder) (*domain.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err)
	}

	cs, err := build(*current)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	cs.Patch.ApplyTo(&next)

	if _, err := tx.ExecContext(ctx, `
		UPDATE tickets SET title = ?, description = ?, status_id = ?, type_id = ?, release_id = ?,
			assigned_to_user_id = ?, position = ?, updated_at = ?
		WHERE id = ?`,
		next.Title,
		next.Description,
		next.StatusID,
		next.TypeID,
		next.ReleaseID,
		next.AssignedToUserID,
		next.Position,
		formatTime(cs.UpdatedAt),
		id,
	); err != nil {
		return nil, fmt.Errorf("update ticket: %w", translate(err))
	}

	for _, entry := range cs.Entries() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO audit_logs (ticket_id, field_changed, from_value, to_value, changed_at)
			VALUES (?, ?, ?, ?, ?)`,
			id,
			entry.FieldChanged,
			entry.FromValue,
			entry.ToValue,
			formatTime(entry.ChangedAt),
		); err != nil {
			return nil, fmt.Errorf("insert audit %s: %w", entry.FieldChanged, err)
		}
	}

	updated, err := scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM audit_logs WHERE ticket_id = ?`, id); err != nil {
		return fmt.Errorf("delete audit logs: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit()
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket             domain.Ticket
		description        sql.NullString
		statusID, typeID   sql.NullInt64
		releaseID, userID  sql.NullInt64
		createdAt, updated string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&description,
		&statusID,
		&typeID,
		&releaseID,
		&userID,
		&ticket.Position,
		&createdAt,
		&updated,
	); err != nil {
		return nil, err
	}
	ticket.Description = nullString(description)
	ticket.StatusID = nullInt(statusID)
	ticket.TypeID = nullInt(typeID)
	ticket.ReleaseID = nullInt(releaseID)
	ticket.AssignedToUserID = nullInt(userID)

	var err error
	if ticket.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if ticket.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
