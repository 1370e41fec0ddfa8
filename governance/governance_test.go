package governance

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// --- Tally tests ---

func TestTally_CastAccumulates(t *testing.T) {
	tally := Open(t0.Add(time.Hour))
	require.NoError(t, tally.Cast(100, true, t0, 1000, 5000))
	require.NoError(t, tally.Cast(40, false, t0, 1000, 5000))

	assert.Equal(t, uint64(100), tally.For)
	assert.Equal(t, uint64(40), tally.Against)
	assert.Equal(t, uint32(2), tally.Voters)
	assert.False(t, tally.Resolved)
}

func TestTally_DeadlineIsExclusive(t *testing.T) {
	deadline := t0.Add(time.Hour)
	tally := Open(deadline)

	err := tally.Cast(10, true, deadline, 1000, 5000)
	assert.ErrorIs(t, err, ErrVotingClosed)

	require.NoError(t, tally.Cast(10, true, deadline.Add(-time.Nanosecond), 1000, 5000))
}

func TestTally_NotOpen(t *testing.T) {
	var tally Tally
	assert.ErrorIs(t, tally.Cast(1, true, t0, 10, 5000), ErrNotOpen)
	_, err := tally.Resolve(t0)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestTally_ZeroWeightRejected(t *testing.T) {
	tally := Open(t0.Add(time.Hour))
	assert.ErrorIs(t, tally.Cast(0, true, t0, 10, 5000), ErrNoWeight)
	assert.Equal(t, uint32(0), tally.Voters)
}

func TestTally_InvalidQuorum(t *testing.T) {
	tally := Open(t0.Add(time.Hour))
	assert.ErrorIs(t, tally.Cast(1, true, t0, 10, 0), ErrInvalidQuorum)
	assert.ErrorIs(t, tally.Cast(1, true, t0, 10, 10001), ErrInvalidQuorum)
}

func TestTally_QuorumApprovesEarly(t *testing.T) {
	tally := Open(t0.Add(time.Hour))
	require.NoError(t, tally.Cast(500, true, t0, 1000, 5000))
	assert.False(t, tally.Resolved, "exactly half is not a majority")

	require.NoError(t, tally.Cast(1, true, t0, 1000, 5000))
	assert.True(t, tally.Resolved)
	assert.True(t, tally.Approved)

	assert.ErrorIs(t, tally.Cast(1, false, t0, 1000, 5000), ErrResolved)
}

func TestTally_ResolveBeforeDeadline(t *testing.T) {
	tally := Open(t0.Add(time.Hour))
	_, err := tally.Resolve(t0)
	assert.ErrorIs(t, err, ErrVotingOpen)
}

func TestTally_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		votesFor uint64
		against  uint64
		want     bool
	}{
		{"majority for", 300, 200, true},
		{"majority against", 200, 300, false},
		{"tie fails closed", 250, 250, false},
		{"no votes", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deadline := t0.Add(time.Hour)
			tally := Open(deadline)
			tally.For, tally.Against = tt.votesFor, tt.against

			got, err := tally.Resolve(deadline)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, tally.Resolved)
			assert.Equal(t, !tt.want, tally.Rejected())

			_, err = tally.Resolve(deadline)
			assert.ErrorIs(t, err, ErrResolved)
		})
	}
}

func TestTally_Overflow(t *testing.T) {
	tally := Open(t0.Add(time.Hour))
	tally.For = math.MaxUint64
	err := tally.Cast(1, true, t0, math.MaxUint64, 10000)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, uint32(0), tally.Voters)
}

func TestQuorumReached_LargeValues(t *testing.T) {
	assert.True(t, QuorumReached(math.MaxUint64, math.MaxUint64, 9999))
	assert.False(t, QuorumReached(math.MaxUint64, math.MaxUint64, 10000))
	assert.False(t, QuorumReached(1, 0, 5000))
}

// --- Policy tests ---

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"flagged", "budget", "always"} {
		p, err := ParsePolicy(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.String())
	}
	_, err := ParsePolicy("sometimes")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestPolicy_NeedsMilestoneVote(t *testing.T) {
	assert.False(t, PolicyBudget.NeedsMilestoneVote(true))
	assert.True(t, PolicyFlagged.NeedsMilestoneVote(true))
	assert.False(t, PolicyFlagged.NeedsMilestoneVote(false))
	assert.True(t, PolicyAlways.NeedsMilestoneVote(false))
}
