package transfer

import "errors"

var (
	// ErrInsufficientBalance indicates the source account cannot cover the amount.
	ErrInsufficientBalance = errors.New("transfer: insufficient balance")

	// ErrDuplicateReference indicates a reference that was already executed.
	ErrDuplicateReference = errors.New("transfer: duplicate reference")

	// ErrZeroAmount indicates a transfer of nothing.
	ErrZeroAmount = errors.New("transfer: zero amount")

	// ErrSameAccount indicates identical source and destination accounts.
	ErrSameAccount = errors.New("transfer: source equals destination")

	// ErrNilReference indicates a request without a reference id.
	ErrNilReference = errors.New("transfer: nil reference")

	// ErrBalanceOverflow indicates the destination balance would wrap.
	ErrBalanceOverflow = errors.New("transfer: balance overflow")
)
