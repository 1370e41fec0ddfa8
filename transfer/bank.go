package transfer

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"github.com/google/uuid"

	"github.com/bitfsorg/gatherfi-go/identity"
)

// Bank is an in-memory Service holding balances per account. Each
// reference executes at most once.
type Bank struct {
	mu       sync.Mutex
	balances map[identity.ID]uint64
	executed map[uuid.UUID]struct{}
	history  []Request
}

// Compile-time interface check.
var _ Service = (*Bank)(nil)

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{
		balances: make(map[identity.ID]uint64),
		executed: make(map[uuid.UUID]struct{}),
	}
}

// Deposit credits an account from outside the system.
func (b *Bank) Deposit(id identity.ID, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	sum, carry := bits.Add64(b.balances[id], amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	b.balances[id] = sum
	return nil
}

// Balance returns an account's balance.
func (b *Bank) Balance(id identity.ID) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[id]
}

// History returns executed transfers in order.
func (b *Bank) History() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.history...)
}

// Transfer moves req.Amount from req.From to req.To.
func (b *Bank) Transfer(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.executed[req.Reference]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateReference, req.Reference)
	}
	from := b.balances[req.From]
	if from < req.Amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, from, req.Amount)
	}
	to, carry := bits.Add64(b.balances[req.To], req.Amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}

	b.balances[req.From] = from - req.Amount
	b.balances[req.To] = to
	b.executed[req.Reference] = struct{}{}
	b.history = append(b.history, req)
	return nil
}
