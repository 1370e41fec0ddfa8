package revshare

import "errors"

var (
	// ErrInvalidShares indicates the stakeholder shares do not sum to 10000 bps.
	ErrInvalidShares = errors.New("revshare: shares must sum to 10000 basis points")

	// ErrFeeTooHigh indicates a platform fee above 100%.
	ErrFeeTooHigh = errors.New("revshare: platform fee too high")

	// ErrZeroTotalContributed indicates an entitlement against an empty backer base.
	ErrZeroTotalContributed = errors.New("revshare: zero total contributed")

	// ErrContributionExceedsTotal indicates a single contribution larger than the total.
	ErrContributionExceedsTotal = errors.New("revshare: contribution exceeds total contributed")

	// ErrDistributionConservation indicates a split that creates or destroys value.
	ErrDistributionConservation = errors.New("revshare: distribution conservation violated")
)
