package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const userColumns = `id::text, email, password_hash, name, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.prom.ObserveDB("users.create", func() error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING `+userColumns,
			u.ID, u.Email, u.PasswordHash, u.Name, u.CreatedAt,
		).Scan(scanTargets(&u)...)
	})
	if err != nil {
		return user.User{}, mapWriteErr(err)
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	key, err := parseID(id)
	if err != nil {
		return user.User{}, err
	}

	var u user.User

	err = r.prom.ObserveDB("users.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			key,
		).Scan(scanTargets(&u)...)
	})
	if err != nil {
		return user.User{}, mapReadErr(err)
	}
	return u, nil
}

// GetByEmail matches case-insensitively; the lower(email) index serves it.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
			email,
		).Scan(scanTargets(&u)...)
	})
	if err != nil {
		return user.User{}, mapReadErr(err)
	}
	return u, nil
}

// Update writes only the fields set on the patch. The unique index is the
// backstop for two updates racing to the same email.
func (r *UsersRepo) Update(ctx context.Context, id string, patch user.Patch) (user.User, error) {
	key, err := parseID(id)
	if err != nil {
		return user.User{}, err
	}

	var u user.User

	err = r.prom.ObserveDB("users.update", func() error {
		return r.pool.QueryRow(ctx, `
			UPDATE users
			SET email = COALESCE($2, email),
			    name = COALESCE($3, name),
			    updated_at = $4
			WHERE id = $1
			RETURNING `+userColumns,
			key, patch.Email, patch.Name, time.Now().UTC(),
		).Scan(scanTargets(&u)...)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, mapWriteErr(err)
	}
	return u, nil
}

// Delete removes the record. A missing row is user.ErrNotFound so callers can
// treat a repeated delete as already done.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	var tag pgconn.CommandTag

	err = r.prom.ObserveDB("users.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, key)
		return e
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// parseID keeps lookups on the primary key index. An id that is not a UUID
// cannot name a row, so it is ErrNotFound rather than a query error.
func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", user.ErrNotFound
	}
	return parsed.String(), nil
}

func scanTargets(u *user.User) []any {
	return []any{&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt, &u.UpdatedAt}
}

func mapReadErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}
	return err
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "users_email_lower_uniq" {
		return user.ErrEmailTaken
	}
	return err
}
