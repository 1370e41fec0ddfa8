package identity

import "errors"

var (
	// ErrInvalidID indicates an identifier string is not 40 hex characters.
	ErrInvalidID = errors.New("identity: invalid identifier")

	// ErrInvalidPublicKey indicates a public key could not be parsed.
	ErrInvalidPublicKey = errors.New("identity: invalid public key")

	// ErrZeroID indicates the all-zero identifier was supplied where a party is required.
	ErrZeroID = errors.New("identity: zero identifier")
)
