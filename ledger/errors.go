package ledger

import "errors"

// Error kinds. Every rejection returned by the engine unwraps to exactly one
// of these, so callers can branch on the class of failure with errors.Is.
var (
	// ErrStateViolation indicates an operation attempted in the wrong phase.
	ErrStateViolation = errors.New("ledger: state violation")

	// ErrUnauthorized indicates the caller lacks the required role.
	ErrUnauthorized = errors.New("ledger: unauthorized")

	// ErrArithmeticOverflow indicates a checked add or subtract would wrap.
	ErrArithmeticOverflow = errors.New("ledger: arithmetic overflow")

	// ErrAlreadyDone indicates a duplicate claim, vote, or release.
	ErrAlreadyDone = errors.New("ledger: already done")

	// ErrDeadline indicates an action outside its allowed time window.
	ErrDeadline = errors.New("ledger: deadline violation")

	// ErrInsufficientFunds indicates a requested amount exceeds the available balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInvalidArgument indicates malformed operation parameters.
	ErrInvalidArgument = errors.New("ledger: invalid argument")

	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("ledger: not found")

	// ErrConsistencyViolation indicates a conservation invariant is already broken.
	ErrConsistencyViolation = errors.New("ledger: consistency violation")
)

var kinds = []error{
	ErrConsistencyViolation,
	ErrStateViolation,
	ErrUnauthorized,
	ErrArithmeticOverflow,
	ErrAlreadyDone,
	ErrDeadline,
	ErrInsufficientFunds,
	ErrInvalidArgument,
	ErrNotFound,
}

// Error is a specific rejection reason tagged with its kind.
type Error struct {
	Kind error
	Msg  string
}

// NewError returns a specific error of the given kind.
func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

// KindOf returns the kind err belongs to, or nil if it has none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Record lookup errors.
var (
	ErrEventNotFound        = NewError(ErrNotFound, "ledger: event not found")
	ErrContributionNotFound = NewError(ErrNotFound, "ledger: contribution not found")
	ErrEscrowNotFound       = NewError(ErrNotFound, "ledger: escrow not found")
	ErrBudgetNotFound       = NewError(ErrNotFound, "ledger: budget not found")
	ErrPoolNotFound         = NewError(ErrNotFound, "ledger: profit pool not found")
	ErrVoteNotFound         = NewError(ErrNotFound, "ledger: vote not found")
	ErrClaimNotFound        = NewError(ErrNotFound, "ledger: profit claim not found")
	ErrTicketNotFound       = NewError(ErrNotFound, "ledger: ticket not found")
)

// Store errors.
var (
	// ErrReadOnly indicates a write was attempted inside View.
	ErrReadOnly = errors.New("ledger: write in read-only transaction")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("ledger: store closed")

	// ErrInvalidEventID indicates an event id string is not 64 hex characters.
	ErrInvalidEventID = NewError(ErrInvalidArgument, "ledger: invalid event id")
)
