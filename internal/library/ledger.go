package library

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BorrowLedger creates and closes borrow transactions. All stock movement and
// the per-user limit are enforced inside a single storage transaction with row
// locks, so concurrent requests can neither take the last copy twice nor
// jointly exceed the limit.
type BorrowLedger struct {
	Store LedgerStore
	Now   func() time.Time
}

func NewBorrowLedger(store LedgerStore) *BorrowLedger {
	return &BorrowLedger{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// CreateBorrow checks the borrow limit and stock, decrements stock and creates
// the borrow as one atomic unit. The returned borrow carries the requested
// books and a deadline of now + LoanPeriod.
func (l *BorrowLedger) CreateBorrow(ctx context.Context, userID int64, bookIDs []int64) (*Borrow, error) {
	if len(bookIDs) == 0 {
		return nil, Validationf("have to borrow at least one book")
	}
	seen := make(map[int64]bool, len(bookIDs))
	for _, id := range bookIDs {
		if seen[id] {
			return nil, Validationf("duplicate book id %d", id)
		}
		seen[id] = true
	}

	var out *Borrow
	err := l.Store.InTx(ctx, func(tx LedgerTx) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		outstanding, err := tx.OutstandingBookCount(ctx, userID)
		if err != nil {
			return err
		}
		if outstanding+len(bookIDs) > MaxOutstandingBooks {
			return Validationf("cannot borrow more than %d books at a time", MaxOutstandingBooks)
		}

		books, err := tx.BooksForUpdate(ctx, bookIDs)
		if err != nil {
			return err
		}
		if len(books) != len(bookIDs) {
			found := make(map[int64]bool, len(books))
			for _, b := range books {
				found[b.ID] = true
			}
			for _, id := range bookIDs {
				if !found[id] {
					return fmt.Errorf("book %d: %w", id, ErrNotFound)
				}
			}
		}
		for _, b := range books {
			if !b.InStock() {
				return Validationf("book %q is out of stock", b.Title)
			}
		}
		for i := range books {
			if err := tx.AdjustStock(ctx, books[i].ID, -1); err != nil {
				return err
			}
			books[i].Stock--
		}

		now := l.Now()
		b := &Borrow{
			ID:             uuid.New(),
			UserID:         userID,
			Books:          books,
			BorrowedAt:     now,
			ReturnDeadline: now.Add(LoanPeriod),
		}
		if err := tx.InsertBorrow(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReturnBooks puts every book of the borrow back in stock, issues a fine if
// the borrow is overdue, and deletes the now-empty borrow. The whole flow is
// one transaction. The issued fine is returned, or nil if nothing was owed.
func (l *BorrowLedger) ReturnBooks(ctx context.Context, borrowID uuid.UUID, caller *User) (*Borrow, *Fine, error) {
	var (
		returned *Borrow
		issued   *Fine
	)
	err := l.Store.InTx(ctx, func(tx LedgerTx) error {
		b, err := tx.BorrowForUpdate(ctx, borrowID)
		if err != nil {
			return err
		}
		// Members cannot see, let alone return, other users' borrows.
		if !caller.IsStaff && b.UserID != caller.ID {
			return ErrNotFound
		}

		for _, bk := range b.Books {
			if err := tx.AdjustStock(ctx, bk.ID, +1); err != nil {
				return err
			}
		}

		now := l.Now()
		if amount := CalculateFine(b.ReturnDeadline, now); amount > 0 {
			f := &Fine{
				ID:       uuid.New(),
				UserID:   b.UserID,
				BorrowID: &b.ID,
				Amount:   amount,
				IssuedAt: now,
			}
			if err := tx.InsertFine(ctx, f); err != nil {
				return err
			}
			issued = f
		}

		// The association is always cleared in full, which leaves the borrow
		// empty, so it is deleted rather than kept around.
		if err := tx.DeleteBorrow(ctx, b.ID); err != nil {
			return err
		}
		returned = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return returned, issued, nil
}

// Get returns one borrow. Members only see their own; anything else reads as
// not found so existence is not leaked.
func (l *BorrowLedger) Get(ctx context.Context, id uuid.UUID, caller *User) (*Borrow, error) {
	b, err := l.Store.GetBorrow(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff && b.UserID != caller.ID {
		return nil, ErrNotFound
	}
	return b, nil
}

// List returns all borrows for administrators, the caller's own otherwise.
func (l *BorrowLedger) List(ctx context.Context, caller *User) ([]Borrow, error) {
	if caller.IsStaff {
		return l.Store.ListBorrows(ctx)
	}
	return l.Store.ListBorrowsByUser(ctx, caller.ID)
}
