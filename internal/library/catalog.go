package library

import (
	"context"
	"fmt"
	"strings"
)

// Catalog is read/write access to book records. Stock is set here only when a
// book is created or corrected by an administrator; the borrow ledger owns all
// stock movement caused by circulation.
type Catalog struct {
	Books BookRepo
}

// BookPatch carries the fields of a partial update; nil means "leave as is".
type BookPatch struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
	Price       *int    `json:"price"`
	Stock       *int    `json:"stock"`
}

func validateBook(b *Book) error {
	if strings.TrimSpace(b.Title) == "" {
		return Validationf("title must not be empty")
	}
	if strings.TrimSpace(b.Author) == "" {
		return Validationf("author must not be empty")
	}
	if b.Price <= 0 {
		return Validationf("price should be greater than zero")
	}
	if b.Stock < 0 {
		return Validationf("stock must not be negative")
	}
	return nil
}

func (c *Catalog) Create(ctx context.Context, b *Book) (*Book, error) {
	if err := validateBook(b); err != nil {
		return nil, err
	}
	if err := c.Books.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return b, nil
}

func (c *Catalog) List(ctx context.Context) ([]Book, error) {
	return c.Books.List(ctx)
}

func (c *Catalog) Get(ctx context.Context, id int64) (*Book, error) {
	return c.Books.Get(ctx, id)
}

// Update replaces every mutable field of the book.
func (c *Catalog) Update(ctx context.Context, id int64, in *Book) (*Book, error) {
	b, err := c.Books.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Title = in.Title
	b.Author = in.Author
	b.Description = in.Description
	b.Price = in.Price
	b.Stock = in.Stock
	if err := validateBook(b); err != nil {
		return nil, err
	}
	if err := c.Books.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return b, nil
}

// Patch updates only the fields present in p.
func (c *Catalog) Patch(ctx context.Context, id int64, p *BookPatch) (*Book, error) {
	b, err := c.Books.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Price != nil {
		b.Price = *p.Price
	}
	if p.Stock != nil {
		b.Stock = *p.Stock
	}
	if err := validateBook(b); err != nil {
		return nil, err
	}
	if err := c.Books.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("patch book: %w", err)
	}
	return b, nil
}

func (c *Catalog) Delete(ctx context.Context, id int64) error {
	return c.Books.Delete(ctx, id)
}
