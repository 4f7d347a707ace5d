package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"librarysvc/internal/library"
)

// UsersRepo implements library.UserRepo on Postgres.
type UsersRepo struct{ DB *pgxpool.Pool }

func (r *UsersRepo) Create(ctx context.Context, u *library.User) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users(username, password_hash, is_staff)
		VALUES ($1,$2,$3)
		RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.IsStaff,
	).Scan(&u.ID, &u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return library.Validationf("username %q is taken", u.Username)
	}
	return err
}

func (r *UsersRepo) Get(ctx context.Context, id int64) (*library.User, error) {
	return r.scanOne(r.DB.QueryRow(ctx, `
		SELECT id, username, password_hash, is_staff, created_at
		FROM users WHERE id=$1`, id))
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (*library.User, error) {
	return r.scanOne(r.DB.QueryRow(ctx, `
		SELECT id, username, password_hash, is_staff, created_at
		FROM users WHERE username=$1`, username))
}

func (r *UsersRepo) scanOne(row pgx.Row) (*library.User, error) {
	var u library.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
