package governance

import "errors"

var (
	// ErrNotOpen indicates no vote has been opened on the subject.
	ErrNotOpen = errors.New("governance: voting not open")

	// ErrVotingClosed indicates the vote was cast at or after the deadline.
	ErrVotingClosed = errors.New("governance: voting period ended")

	// ErrVotingOpen indicates resolution was attempted before the deadline.
	ErrVotingOpen = errors.New("governance: voting period still open")

	// ErrResolved indicates the tally already has an outcome.
	ErrResolved = errors.New("governance: tally already resolved")

	// ErrNoWeight indicates a vote with zero voting power.
	ErrNoWeight = errors.New("governance: zero voting weight")

	// ErrOverflow indicates a tally total would wrap.
	ErrOverflow = errors.New("governance: tally overflow")

	// ErrInvalidQuorum indicates a quorum outside (0, 10000] basis points.
	ErrInvalidQuorum = errors.New("governance: invalid quorum")

	// ErrUnknownPolicy indicates an unrecognised milestone vote policy name.
	ErrUnknownPolicy = errors.New("governance: unknown milestone vote policy")
)
