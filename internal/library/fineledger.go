package library

import (
	"context"

	"github.com/google/uuid"
)

// FineLedger tracks issued fines. Listing and payment are administrator-only.
type FineLedger struct {
	Fines FineRepo
}

func (f *FineLedger) List(ctx context.Context, caller *User) ([]Fine, error) {
	if !caller.IsStaff {
		return nil, ErrPermissionDenied
	}
	return f.Fines.List(ctx)
}

func (f *FineLedger) Get(ctx context.Context, id uuid.UUID, caller *User) (*Fine, error) {
	if !caller.IsStaff {
		return nil, ErrPermissionDenied
	}
	return f.Fines.Get(ctx, id)
}

// Pay flips the fine to paid. There is no partial payment or refund.
func (f *FineLedger) Pay(ctx context.Context, id uuid.UUID, caller *User) (*Fine, error) {
	if !caller.IsStaff {
		return nil, ErrPermissionDenied
	}
	return f.Fines.MarkPaid(ctx, id)
}
