// Package sqlite implements the repository interfaces on a file-backed
// SQLite database opened through persistence.OpenSQLite.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/spec-kit/kanban-service/internal/repository"
)

// timeLayout is fixed width so lexical order in TEXT columns equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// NewStore wires the SQLite repositories over one handle.
func NewStore(db *sql.DB) *repository.Store {
	return &repository.Store{
		Tickets:   NewTicketRepository(db),
		AuditLogs: NewAuditLogRepository(db),
		Metadata:  NewMetadataRepository(db),
		Ping:      db.PingContext,
		Close:     db.Close,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}
