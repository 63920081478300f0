package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/kanban-service/internal/domain"
)

const pgUniqueViolation = "23505"

type metadataRepository struct {
	pool *pgxpool.Pool
}

// NewMetadataRepository builds the Postgres taxonomy repository.
func NewMetadataRepository(pool *pgxpool.Pool) MetadataRepository {
	return &metadataRepository{pool: pool}
}

func (r *metadataRepository) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	const query = `SELECT id, name, position FROM statuses ORDER BY position ASC, id ASC`
	return collect(ctx, r.pool, query, func(row pgx.Row) (domain.Status, error) {
		var s domain.Status
		err := row.Scan(&s.ID, &s.Name, &s.Position)
		return s, err
	})
}

func (r *metadataRepository) CreateStatus(ctx context.Context, in domain.NewStatus) (*domain.Status, error) {
	const query = `INSERT INTO statuses (name, position) VALUES ($1,$2) RETURNING id, name, position`
	var s domain.Status
	if err := r.pool.QueryRow(ctx, query, in.Name, in.Position).Scan(&s.ID, &s.Name, &s.Position); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *metadataRepository) ListTypes(ctx context.Context) ([]domain.Type, error) {
	const query = `SELECT id, name FROM types ORDER BY id ASC`
	return collect(ctx, r.pool, query, func(row pgx.Row) (domain.Type, error) {
		var t domain.Type
		err := row.Scan(&t.ID, &t.Name)
		return t, err
	})
}

func (r *metadataRepository) CreateType(ctx context.Context, name string) (*domain.Type, error) {
	const query = `INSERT INTO types (name) VALUES ($1) RETURNING id, name`
	var t domain.Type
	if err := r.pool.QueryRow(ctx, query, name).Scan(&t.ID, &t.Name); err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *metadataRepository) ListReleases(ctx context.Context) ([]domain.Release, error) {
	const query = `SELECT id, name FROM releases ORDER BY id ASC`
	return collect(ctx, r.pool, query, func(row pgx.Row) (domain.Release, error) {
		var rel domain.Release
		err := row.Scan(&rel.ID, &rel.Name)
		return rel, err
	})
}

func (r *metadataRepository) CreateRelease(ctx context.Context, name string) (*domain.Release, error) {
	const query = `INSERT INTO releases (name) VALUES ($1) RETURNING id, name`
	var rel domain.Release
	if err := r.pool.QueryRow(ctx, query, name).Scan(&rel.ID, &rel.Name); err != nil {
		return nil, translate(err)
	}
	return &rel, nil
}

func (r *metadataRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT id, name, email, avatar_url FROM users ORDER BY id ASC`
	return collect(ctx, r.pool, query, func(row pgx.Row) (domain.User, error) {
		var u domain.User
		err := row.Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL)
		return u, err
	})
}

func (r *metadataRepository) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	const query = `
        INSERT INTO users (name, email, avatar_url) VALUES ($1,$2,$3)
        RETURNING id, name, email, avatar_url`
	var u domain.User
	if err := r.pool.QueryRow(ctx, query, in.Name, in.Email, in.AvatarURL).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.AvatarURL,
	); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func collect[T any](ctx context.Context, pool *pgxpool.Pool, query string, scan func(pgx.Row) (T, error)) ([]T, error) {
	rows, err := pool.Query(ctx, query)
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
