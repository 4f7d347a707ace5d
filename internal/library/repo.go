package library

import (
	"context"

	"github.com/google/uuid"
)

// BookRepo is the persistence contract for the catalog.
type BookRepo interface {
	Create(ctx context.Context, b *Book) error
	List(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, id int64) (*Book, error)
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id int64) error
}

// UserRepo looks up and creates accounts.
type UserRepo interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// FineRepo is the persistence contract for issued fines.
type FineRepo interface {
	List(ctx context.Context) ([]Fine, error)
	Get(ctx context.Context, id uuid.UUID) (*Fine, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*Fine, error)
}

// LedgerTx is the transactional view the borrow ledger runs its rules against.
// Lock methods take row locks that are held until the transaction ends, so a
// check made after a lock stays true through the commit.
type LedgerTx interface {
	// LockUser serializes concurrent borrows by the same user.
	LockUser(ctx context.Context, userID int64) error
	// OutstandingBookCount is the number of books across the user's open borrows.
	OutstandingBookCount(ctx context.Context, userID int64) (int, error)
	// BooksForUpdate loads and locks the given books. Missing ids are simply
	// absent from the result.
	BooksForUpdate(ctx context.Context, ids []int64) ([]Book, error)
	// AdjustStock adds delta to a book's stock.
	AdjustStock(ctx context.Context, bookID int64, delta int) error
	// BorrowForUpdate loads and locks a borrow with its books.
	BorrowForUpdate(ctx context.Context, id uuid.UUID) (*Borrow, error)
	InsertBorrow(ctx context.Context, b *Borrow) error
	// DeleteBorrow removes the borrow and its book associations.
	DeleteBorrow(ctx context.Context, id uuid.UUID) error
	InsertFine(ctx context.Context, f *Fine) error
}

// LedgerStore gives the borrow ledger transactional and read-only access.
type LedgerStore interface {
	// InTx runs fn inside one transaction; any error rolls everything back.
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
	GetBorrow(ctx context.Context, id uuid.UUID) (*Borrow, error)
	ListBorrows(ctx context.Context) ([]Borrow, error)
	ListBorrowsByUser(ctx context.Context, userID int64) ([]Borrow, error)
}
