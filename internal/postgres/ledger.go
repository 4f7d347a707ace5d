package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"librarysvc/internal/library"
)

// LedgerRepo implements library.LedgerStore on Postgres. Row locks (FOR UPDATE
// on users and books) make the borrow-limit check and the stock
// check-and-decrement atomic under concurrent requests.
type LedgerRepo struct{ DB *pgxpool.Pool }

func (r *LedgerRepo) InTx(ctx context.Context, fn func(tx library.LedgerTx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type ledgerTx struct{ tx pgx.Tx }

func (t *ledgerTx) LockUser(ctx context.Context, userID int64) error {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("user %d: %w", userID, library.ErrNotFound)
	}
	return err
}

func (t *ledgerTx) OutstandingBookCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM borrow_books bb
		JOIN borrows b ON b.id = bb.borrow_id
		WHERE b.user_id = $1`, userID).Scan(&n)
	return n, err
}

func (t *ledgerTx) BooksForUpdate(ctx context.Context, ids []int64) ([]library.Book, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, title, author, description, price, stock, created_at, updated_at
		FROM books WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Book
	for rows.Next() {
		var b library.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.Price, &b.Stock, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *ledgerTx) AdjustStock(ctx context.Context, bookID int64, delta int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE books SET stock = stock + $2, updated_at = now() WHERE id=$1`, bookID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("book %d: %w", bookID, library.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) BorrowForUpdate(ctx context.Context, id uuid.UUID) (*library.Borrow, error) {
	var b library.Borrow
	err := t.tx.QueryRow(ctx, `
		SELECT id, user_id, borrowed_at, return_deadline
		FROM borrows WHERE id=$1 FOR UPDATE`, id).
		Scan(&b.ID, &b.UserID, &b.BorrowedAt, &b.ReturnDeadline)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	books, err := borrowedBooks(ctx, t.tx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Books = books
	return &b, nil
}

func (t *ledgerTx) InsertBorrow(ctx context.Context, b *library.Borrow) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO borrows(id, user_id, borrowed_at, return_deadline)
		VALUES ($1,$2,$3,$4)`,
		b.ID, b.UserID, b.BorrowedAt, b.ReturnDeadline)
	if err != nil {
		return err
	}
	for _, bk := range b.Books {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO borrow_books(borrow_id, book_id) VALUES ($1,$2)`,
			b.ID, bk.ID); err != nil {
			return err
		}
	}
	return nil
}

func (t *ledgerTx) DeleteBorrow(ctx context.Context, id uuid.UUID) error {
	// borrow_books rows go with it via ON DELETE CASCADE.
	_, err := t.tx.Exec(ctx, `DELETE FROM borrows WHERE id=$1`, id)
	return err
}

func (t *ledgerTx) InsertFine(ctx context.Context, f *library.Fine) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO fines(id, user_id, borrow_id, amount, paid, issued_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.UserID, f.BorrowID, f.Amount, f.Paid, f.IssuedAt)
	return err
}

// querier covers both the pool and a transaction for shared read helpers.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func borrowedBooks(ctx context.Context, q querier, borrowID uuid.UUID) ([]library.Book, error) {
	rows, err := q.Query(ctx, `
		SELECT bk.id, bk.title, bk.author, bk.description, bk.price, bk.stock, bk.created_at, bk.updated_at
		FROM books bk
		JOIN borrow_books bb ON bb.book_id = bk.id
		WHERE bb.borrow_id = $1
		ORDER BY bk.id`, borrowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Book
	for rows.Next() {
		var b library.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.Price, &b.Stock, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) GetBorrow(ctx context.Context, id uuid.UUID) (*library.Borrow, error) {
	var b library.Borrow
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, borrowed_at, return_deadline FROM borrows WHERE id=$1`, id).
		Scan(&b.ID, &b.UserID, &b.BorrowedAt, &b.ReturnDeadline)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	books, err := borrowedBooks(ctx, r.DB, b.ID)
	if err != nil {
		return nil, err
	}
	b.Books = books
	return &b, nil
}

func (r *LedgerRepo) ListBorrows(ctx context.Context) ([]library.Borrow, error) {
	return r.listBorrows(ctx, `SELECT id, user_id, borrowed_at, return_deadline FROM borrows ORDER BY borrowed_at`)
}

func (r *LedgerRepo) ListBorrowsByUser(ctx context.Context, userID int64) ([]library.Borrow, error) {
	return r.listBorrows(ctx, `SELECT id, user_id, borrowed_at, return_deadline FROM borrows WHERE user_id=$1 ORDER BY borrowed_at`, userID)
}

func (r *LedgerRepo) listBorrows(ctx context.Context, sql string, args ...any) ([]library.Borrow, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Borrow
	for rows.Next() {
		var b library.Borrow
		if err := rows.Scan(&b.ID, &b.UserID, &b.BorrowedAt, &b.ReturnDeadline); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		books, err := borrowedBooks(ctx, r.DB, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Books = books
	}
	return out, nil
}
