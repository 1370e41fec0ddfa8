package revshare

import (
	"fmt"
	"math/bits"
)

// Split computes the platform fee and stakeholder pools for a net profit.
// The fee is a basis-point cut taken only from a positive profit; a loss
// yields an all-zero split. Each pool rounds down and the remainder goes to
// the platform as Residual, so the pools never exceed what is distributable.
func Split(netProfit int64, feeBps uint16, shares Shares) (Result, error) {
	if err := shares.Validate(); err != nil {
		return Result{}, err
	}
	if feeBps > TotalBps {
		return Result{}, fmt.Errorf("%w: %d bps", ErrFeeTooHigh, feeBps)
	}

	r := Result{NetProfit: netProfit}
	if netProfit <= 0 {
		return r, nil
	}

	profit := uint64(netProfit)
	r.Fee = mulDiv(profit, uint64(feeBps), TotalBps)
	r.Distributable = profit - r.Fee

	r.Backer = mulDiv(r.Distributable, uint64(shares.Backer), TotalBps)
	r.Organizer = mulDiv(r.Distributable, uint64(shares.Organizer), TotalBps)
	r.Platform = mulDiv(r.Distributable, uint64(shares.Platform), TotalBps)
	r.Residual = r.Distributable - r.Backer - r.Organizer - r.Platform
	return r, nil
}

// Entitlement returns a backer's floor share of backerPool, proportional to
// contribution over totalContributed.
func Entitlement(contribution, totalContributed, backerPool uint64) (uint64, error) {
	if totalContributed == 0 {
		return 0, ErrZeroTotalContributed
	}
	if contribution > totalContributed {
		return 0, fmt.Errorf("%w: %d > %d", ErrContributionExceedsTotal, contribution, totalContributed)
	}
	return mulDiv(backerPool, contribution, totalContributed), nil
}

// mulDiv returns floor(a*b/d) using a 128-bit intermediate. Callers
// guarantee b <= d so the quotient fits in 64 bits.
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, d)
	return q
}
