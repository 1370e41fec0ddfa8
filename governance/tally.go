// Package governance implements contributor-weighted approval votes.
//
// A Tally accepts votes strictly before its deadline. It resolves early as
// approved once the votes in favour exceed the quorum share of all eligible
// voting power; otherwise it is resolved at or after the deadline, approving
// only when votes for strictly exceed votes against.
package governance

import (
	"fmt"
	"math/bits"
	"time"
)

// MaxBps is 100% in basis points.
const MaxBps = 10000

// Tally accumulates weighted votes on one subject.
type Tally struct {
	For      uint64
	Against  uint64
	Voters   uint32
	Opened   bool
	Deadline time.Time
	Approved bool
	Resolved bool
}

// Open returns a tally accepting votes until deadline.
func Open(deadline time.Time) Tally {
	return Tally{Opened: true, Deadline: deadline}
}

// Cast records a vote of the given weight. eligible is the total voting
// power that could vote at this moment; it drives quorum approval.
func (t *Tally) Cast(weight uint64, approve bool, now time.Time, eligible uint64, quorumBps uint16) error {
	if !t.Opened {
		return ErrNotOpen
	}
	if t.Resolved {
		return ErrResolved
	}
	if !now.Before(t.Deadline) {
		return fmt.Errorf("%w: deadline %s", ErrVotingClosed, t.Deadline.UTC().Format(time.RFC3339))
	}
	if weight == 0 {
		return ErrNoWeight
	}
	if quorumBps == 0 || quorumBps > MaxBps {
		return fmt.Errorf("%w: %d", ErrInvalidQuorum, quorumBps)
	}

	side := &t.Against
	if approve {
		side = &t.For
	}
	sum, carry := bits.Add64(*side, weight, 0)
	if carry != 0 {
		return ErrOverflow
	}
	*side = sum
	t.Voters++

	if QuorumReached(t.For, eligible, quorumBps) {
		t.Approved = true
		t.Resolved = true
	}
	return nil
}

// Resolve settles the tally once the deadline has passed. Equal weight on
// both sides is not approved.
func (t *Tally) Resolve(now time.Time) (bool, error) {
	if !t.Opened {
		return false, ErrNotOpen
	}
	if t.Resolved {
		return t.Approved, ErrResolved
	}
	if now.Before(t.Deadline) {
		return false, ErrVotingOpen
	}
	t.Approved = t.For > t.Against
	t.Resolved = true
	return t.Approved, nil
}

// Rejected reports whether the tally resolved without approval.
func (t Tally) Rejected() bool { return t.Resolved && !t.Approved }

// QuorumReached reports whether votesFor strictly exceeds quorumBps of eligible.
func QuorumReached(votesFor, eligible uint64, quorumBps uint16) bool {
	if eligible == 0 {
		return false
	}
	// votesFor * 10000 > eligible * quorumBps, in 128 bits.
	lh, ll := bits.Mul64(votesFor, MaxBps)
	rh, rl := bits.Mul64(eligible, uint64(quorumBps))
	return lh > rh || (lh == rh && ll > rl)
}
