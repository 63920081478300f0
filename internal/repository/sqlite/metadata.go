package sqlite

import (
	"context"
	"database/sql"

	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/repository"
)

type metadataRepository struct {
	db *sql.DB
}

// NewMetadataRepository returns the SQLite taxonomy repository.
func NewMetadataRepository(db *sql.DB) repository.MetadataRepository {
	return &metadataRepository{db: db}
}

func (r *metadataRepository) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	return collect(ctx, r.db, `SELECT id, name, position FROM statuses ORDER BY position ASC, id ASC`,
		func(row rowScanner) (domain.Status, error) {
			var s domain.Status
			err := row.Scan(&s.ID, &s.Name, &s.Position)
			return s, err
		})
}

func (r *metadataRepository) CreateStatus(ctx context.Context, in domain.NewStatus) (*domain.Status, error) {
	id, err := insert(ctx, r.db, `INSERT INTO statuses (name, position) VALUES (?, ?)`, in.Name, in.Position)
	if err != nil {
		return nil, err
	}
	return &domain.Status{ID: id, Name: in.Name, Position: in.Position}, nil
}

func (r *metadataRepository) ListTypes(ctx context.Context) ([]domain.Type, error) {
	return collect(ctx, r.db, `SELECT id, name FROM types ORDER BY id ASC`,
		func(row rowScanner) (domain.Type, error) {
			var t domain.Type
			err := row.Scan(&t.ID, &t.Name)
			return t, err
		})
}

func (r *metadataRepository) CreateType(ctx context.Context, name string) (*domain.Type, error) {
	id, err := insert(ctx, r.db, `INSERT INTO types (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	return &domain.Type{ID: id, Name: name}, nil
}

func (r *metadataRepository) ListReleases(ctx context.Context) ([]domain.Release, error) {
	return collect(ctx, r.db, `SELECT id, name FROM releases ORDER BY id ASC`,
		func(row rowScanner) (domain.Release, error) {
			var rel domain.Release
			err := row.Scan(&rel.ID, &rel.Name)
			return rel, err
		})
}

func (r *metadataRepository) CreateRelease(ctx context.Context, name string) (*domain.Release, error) {
	id, err := insert(ctx, r.db, `INSERT INTO releases (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	return &domain.Release{ID: id, Name: name}, nil
}

func (r *metadataRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	return collect(ctx, r.db, `SELECT id, name, email, avatar_url FROM users ORDER BY id ASC`,
		func(row rowScanner) (domain.User, error) {
			var (
				u             domain.User
				email, avatar sql.NullString
			)
			if err := row.Scan(&u.ID, &u.Name, &email, &avatar); err != nil {
				return u, err
			}
			u.Email = nullString(email)
			u.AvatarURL = nullString(avatar)
			return u, nil
		})
}

func (r *metadataRepository) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	id, err := insert(ctx, r.db, `INSERT INTO users (name, email, avatar_url) VALUES (?, ?, ?)`,
		in.Name, in.Email, in.AvatarURL)
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: id, Name: in.Name, Email: in.Email, AvatarURL: in.AvatarURL}, nil
}

func insert(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	return result.LastInsertId()
}

func collect[T any](ctx context.Context, db *sql.DB, query string, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
