package library_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarysvc/internal/library"
	"librarysvc/internal/memstore"
)

func TestFineLedgerPermissions(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	bk := f.addBook(t, "Overdue Book", 1)

	borrow, err := f.ledger.CreateBorrow(ctx, f.member.ID, []int64{bk.ID})
	require.NoError(t, err)
	f.now = f.now.Add(16 * 24 * time.Hour)
	_, fine, err := f.ledger.ReturnBooks(ctx, borrow.ID, f.member)
	require.NoError(t, err)
	require.NotNil(t, fine)

	fl := &library.FineLedger{Fines: f.store.Fines()}

	// Members may neither list nor pay fines.
	_, err = fl.List(ctx, f.member)
	assert.ErrorIs(t, err, library.ErrPermissionDenied)
	_, err = fl.Pay(ctx, fine.ID, f.member)
	assert.ErrorIs(t, err, library.ErrPermissionDenied)

	// The failed payment attempt changed nothing.
	stored, err := f.store.Fines().Get(ctx, fine.ID)
	require.NoError(t, err)
	assert.False(t, stored.Paid)

	fines, err := fl.List(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, fines, 1)
	assert.Equal(t, 10, fines[0].Amount)

	paid, err := fl.Pay(ctx, fine.ID, f.admin)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
}

func TestFineLedgerPayUnknown(t *testing.T) {
	f := newLedgerFixture(t)
	fl := &library.FineLedger{Fines: memstore.New().Fines()}

	_, err := fl.Pay(context.Background(), uuid.New(), f.admin)
	assert.ErrorIs(t, err, library.ErrNotFound)
}
