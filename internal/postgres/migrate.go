package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema. Statements are idempotent so this is safe to run
// on every startup.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price INTEGER NOT NULL CHECK (price > 0),
			stock INTEGER NOT NULL CHECK (stock >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS borrows (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			borrowed_at TIMESTAMPTZ NOT NULL,
			return_deadline TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS borrow_books (
			borrow_id UUID NOT NULL REFERENCES borrows(id) ON DELETE CASCADE,
			book_id BIGINT NOT NULL REFERENCES books(id),
			PRIMARY KEY (borrow_id, book_id)
		)`,
		// SET NULL, not CASCADE: a fine outlives the borrow it was issued for,
		// since returning the books deletes the emptied borrow.
		`CREATE TABLE IF NOT EXISTS fines (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			borrow_id UUID UNIQUE REFERENCES borrows(id) ON DELETE SET NULL,
			amount INTEGER NOT NULL CHECK (amount > 0),
			paid BOOLEAN NOT NULL DEFAULT FALSE,
			issued_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			event_id UUID NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			correlation_id TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_borrows_user ON borrows(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fines_user ON fines(user_id)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
