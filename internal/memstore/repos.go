package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"librarysvc/internal/library"
)

// BooksRepo implements library.BookRepo.
type BooksRepo struct{ s *Store }

func (r *BooksRepo) Create(_ context.Context, b *library.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.ID = r.s.st.nextBookID
	r.s.st.nextBookID++
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.st.books[b.ID] = *b
	return nil
}

func (r *BooksRepo) List(_ context.Context) ([]library.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]library.Book, 0, len(r.s.st.books))
	for _, b := range r.s.st.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *BooksRepo) Get(_ context.Context, id int64) (*library.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.books[id]
	if !ok {
		return nil, library.ErrNotFound
	}
	return &b, nil
}

func (r *BooksRepo) Update(_ context.Context, b *library.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.books[b.ID]; !ok {
		return library.ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	r.s.st.books[b.ID] = *b
	return nil
}

func (r *BooksRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.books[id]; !ok {
		return library.ErrNotFound
	}
	delete(r.s.st.books, id)
	return nil
}

// UsersRepo implements library.UserRepo.
type UsersRepo struct{ s *Store }

func (r *UsersRepo) Create(_ context.Context, u *library.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.st.users {
		if other.Username == u.Username {
			return library.Validationf("username %q is taken", u.Username)
		}
	}
	u.ID = r.s.st.nextUserID
	r.s.st.nextUserID++
	u.CreatedAt = time.Now().UTC()
	r.s.st.users[u.ID] = *u
	return nil
}

func (r *UsersRepo) Get(_ context.Context, id int64) (*library.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, library.ErrNotFound
	}
	return &u, nil
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (*library.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.st.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, library.ErrNotFound
}

// FinesRepo implements library.FineRepo.
type FinesRepo struct{ s *Store }

func (r *FinesRepo) List(_ context.Context) ([]library.Fine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]library.Fine, 0, len(r.s.st.fines))
	for _, f := range r.s.st.fines {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (r *FinesRepo) Get(_ context.Context, id uuid.UUID) (*library.Fine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.st.fines[id]
	if !ok {
		return nil, library.ErrNotFound
	}
	return &f, nil
}

func (r *FinesRepo) MarkPaid(_ context.Context, id uuid.UUID) (*library.Fine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.st.fines[id]
	if !ok {
		return nil, library.ErrNotFound
	}
	f.Paid = true
	r.s.st.fines[id] = f
	return &f, nil
}

// LedgerRepo implements library.LedgerStore. InTx works on a deep copy of the
// whole state and swaps it in on success, so a failed transaction really does
// roll back.
type LedgerRepo struct{ s *Store }

func (r *LedgerRepo) InTx(_ context.Context, fn func(tx library.LedgerTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	work := r.s.st.clone()
	if err := fn(&ledgerTx{st: work}); err != nil {
		return err
	}
	r.s.st = work
	return nil
}

func (r *LedgerRepo) GetBorrow(_ context.Context, id uuid.UUID) (*library.Borrow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.borrows[id]
	if !ok {
		return nil, library.ErrNotFound
	}
	return &b, nil
}

func (r *LedgerRepo) ListBorrows(_ context.Context) ([]library.Borrow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.listBorrows(func(library.Borrow) bool { return true }), nil
}

func (r *LedgerRepo) ListBorrowsByUser(_ context.Context, userID int64) ([]library.Borrow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.listBorrows(func(b library.Borrow) bool { return b.UserID == userID }), nil
}

func (st *state) listBorrows(keep func(library.Borrow) bool) []library.Borrow {
	out := make([]library.Borrow, 0, len(st.borrows))
	for _, b := range st.borrows {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BorrowedAt.Before(out[j].BorrowedAt) })
	return out
}

type ledgerTx struct{ st *state }

func (t *ledgerTx) LockUser(_ context.Context, userID int64) error {
	if _, ok := t.st.users[userID]; !ok {
		return library.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) OutstandingBookCount(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, b := range t.st.borrows {
		if b.UserID == userID {
			n += len(b.Books)
		}
	}
	return n, nil
}

func (t *ledgerTx) BooksForUpdate(_ context.Context, ids []int64) ([]library.Book, error) {
	var out []library.Book
	for _, id := range ids {
		if b, ok := t.st.books[id]; ok {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *ledgerTx) AdjustStock(_ context.Context, bookID int64, delta int) error {
	b, ok := t.st.books[bookID]
	if !ok {
		return library.ErrNotFound
	}
	b.Stock += delta
	t.st.books[bookID] = b
	return nil
}

func (t *ledgerTx) BorrowForUpdate(_ context.Context, id uuid.UUID) (*library.Borrow, error) {
	b, ok := t.st.borrows[id]
	if !ok {
		return nil, library.ErrNotFound
	}
	return &b, nil
}

func (t *ledgerTx) InsertBorrow(_ context.Context, b *library.Borrow) error {
	cp := *b
	cp.Books = append([]library.Book(nil), b.Books...)
	t.st.borrows[b.ID] = cp
	return nil
}

func (t *ledgerTx) DeleteBorrow(_ context.Context, id uuid.UUID) error {
	delete(t.st.borrows, id)
	return nil
}

func (t *ledgerTx) InsertFine(_ context.Context, f *library.Fine) error {
	t.st.fines[f.ID] = *f
	return nil
}
