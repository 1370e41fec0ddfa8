// Package transfer defines the collaborator that moves value between
// custody accounts. The ledger invokes it once per logical transfer and
// never retries.
package transfer

import (
	"context"

	"github.com/google/uuid"

	"github.com/bitfsorg/gatherfi-go/identity"
)

// Request describes one atomic movement of value.
type Request struct {
	// Reference uniquely identifies the logical transfer.
	Reference uuid.UUID
	From      identity.ID
	To        identity.ID
	Amount    uint64
	Memo      string
}

// Validate checks the request is well formed.
func (r Request) Validate() error {
	if r.Reference == uuid.Nil {
		return ErrNilReference
	}
	if r.Amount == 0 {
		return ErrZeroAmount
	}
	if r.From == r.To {
		return ErrSameAccount
	}
	return nil
}

// Service executes transfers. Transfer either moves the full amount or
// returns an error having moved nothing.
type Service interface {
	Transfer(ctx context.Context, req Request) error
}

// MockService is a test double for Service.
// TransferFn must be set before Transfer is called.
type MockService struct {
	TransferFn func(ctx context.Context, req Request) error
}

// Compile-time interface check.
var _ Service = (*MockService)(nil)

func (m *MockService) Transfer(ctx context.Context, req Request) error {
	return m.TransferFn(ctx, req)
}
