package revshare

// TotalBps is 100% in basis points.
const TotalBps = 10000

// Shares is the backer/organizer/platform split of distributable profit.
type Shares struct {
	Backer    uint16
	Organizer uint16
	Platform  uint16
}

// DefaultShares is 60% backers, 35% organizer, 5% platform.
var DefaultShares = Shares{Backer: 6000, Organizer: 3500, Platform: 500}

// Validate checks the shares sum to exactly TotalBps.
func (s Shares) Validate() error {
	if uint32(s.Backer)+uint32(s.Organizer)+uint32(s.Platform) != TotalBps {
		return ErrInvalidShares
	}
	return nil
}

// Result is a computed profit split. Residual is the rounding dust left after
// each pool is floored; it accrues to the platform.
type Result struct {
	NetProfit     int64
	Fee           uint64
	Distributable uint64
	Backer        uint64
	Organizer     uint64
	Platform      uint64
	Residual      uint64
}

// PlatformTotal is everything the platform may withdraw: fee, platform
// share, and rounding residual.
func (r Result) PlatformTotal() uint64 {
	return r.Fee + r.Platform + r.Residual
}
