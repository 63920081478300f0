package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/kanban-service/internal/domain"
)

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.AuditLogEntry, error) {
	const query = `
        SELECT id, ticket_id, field_changed, from_value, to_value, changed_at
        FROM audit_logs WHERE ticket_id=$1 ORDER BY changed_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AuditLogEntry{}
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.FieldChanged,
			&entry.FromValue,
			&entry.ToValue,
			&entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
