package revshare

import "fmt"

// ValidateSplit checks that a stored split is conserving and matches what
// Split would compute for the same inputs.
func ValidateSplit(r Result, feeBps uint16, shares Shares) error {
	var gross uint64
	if r.NetProfit > 0 {
		gross = uint64(r.NetProfit)
	}
	if r.Fee+r.Distributable != gross {
		return fmt.Errorf("%w: fee=%d distributable=%d net=%d", ErrDistributionConservation, r.Fee, r.Distributable, r.NetProfit)
	}
	parts := r.Backer + r.Organizer + r.Platform + r.Residual
	if parts != r.Distributable {
		return fmt.Errorf("%w: pools=%d distributable=%d", ErrDistributionConservation, parts, r.Distributable)
	}

	expected, err := Split(r.NetProfit, feeBps, shares)
	if err != nil {
		return err
	}
	if expected != r {
		return fmt.Errorf("%w: split %+v != expected %+v", ErrDistributionConservation, r, expected)
	}
	return nil
}
