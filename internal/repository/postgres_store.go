package repository

import "github.com/jackc/pgx/v5/pgxpool"

// NewPostgresStore wires the Postgres repositories over one pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Tickets:   NewTicketRepository(pool),
		AuditLogs: NewAuditLogRepository(pool),
		Metadata:  NewMetadataRepository(pool),
		Ping:      pool.Ping,
		Close: func() error {
			pool.Close()
			return nil
		},
	}
}
