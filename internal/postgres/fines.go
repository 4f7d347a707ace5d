package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"librarysvc/internal/library"
)

// FinesRepo implements library.FineRepo on Postgres.
type FinesRepo struct{ DB *pgxpool.Pool }

const fineColumns = `id, user_id, borrow_id, amount, paid, issued_at`

func (r *FinesRepo) List(ctx context.Context) ([]library.Fine, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+fineColumns+` FROM fines ORDER BY issued_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Fine
	for rows.Next() {
		var f library.Fine
		if err := rows.Scan(&f.ID, &f.UserID, &f.BorrowID, &f.Amount, &f.Paid, &f.IssuedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FinesRepo) Get(ctx context.Context, id uuid.UUID) (*library.Fine, error) {
	var f library.Fine
	err := r.DB.QueryRow(ctx, `SELECT `+fineColumns+` FROM fines WHERE id=$1`, id).
		Scan(&f.ID, &f.UserID, &f.BorrowID, &f.Amount, &f.Paid, &f.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FinesRepo) MarkPaid(ctx context.Context, id uuid.UUID) (*library.Fine, error) {
	var f library.Fine
	err := r.DB.QueryRow(ctx, `
		UPDATE fines SET paid=TRUE WHERE id=$1
		RETURNING `+fineColumns, id).
		Scan(&f.ID, &f.UserID, &f.BorrowID, &f.Amount, &f.Paid, &f.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
