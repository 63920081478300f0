package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/repository"
)

type auditLogRepository struct {
	db *sql.DB
}

// NewAuditLogRepository returns the SQLite audit trail reader.
func NewAuditLogRepository(db *sql.DB) repository.AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.AuditLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ticket_id, field_changed, from_value, to_value, changed_at
		FROM audit_logs WHERE ticket_id = ? ORDER BY changed_at DESC, id DESC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	result := []domain.AuditLogEntry{}
	for rows.Next() {
		var (
			entry     domain.AuditLogEntry
			from, to  sql.NullString
			changedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.FieldChanged, &from, &to, &changedAt); err != nil {
			return nil, fmt.Errorf("list audit logs: %w", err)
		}
		entry.FromValue = nullString(from)
		entry.ToValue = nullString(to)
		if entry.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
