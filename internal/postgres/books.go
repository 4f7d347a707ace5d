package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"librarysvc/internal/library"
)

// BooksRepo implements library.BookRepo on Postgres.
type BooksRepo struct{ DB *pgxpool.Pool }

func (r *BooksRepo) Create(ctx context.Context, b *library.Book) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO books(title, author, description, price, stock)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		b.Title, b.Author, b.Description, b.Price, b.Stock,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BooksRepo) List(ctx context.Context) ([]library.Book, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, title, author, description, price, stock, created_at, updated_at
		FROM books ORDER BY id`)
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

func (r *BooksRepo) Get(ctx context.Context, id int64) (*library.Book, error) {
	var b library.Book
	err := r.DB.QueryRow(ctx, `
		SELECT id, title, author, description, price, stock, created_at, updated_at
		FROM books WHERE id=$1`, id,
	).Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.Price, &b.Stock, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BooksRepo) Update(ctx context.Context, b *library.Book) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE books SET title=$2, author=$3, description=$4, price=$5, stock=$6, updated_at=now()
		WHERE id=$1`,
		b.ID, b.Title, b.Author, b.Description, b.Price, b.Stock)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return library.ErrNotFound
	}
	return nil
}

func (r *BooksRepo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return library.ErrNotFound
	}
	return nil
}
