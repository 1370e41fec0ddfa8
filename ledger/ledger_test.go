package ledger

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/gatherfi-go/identity"
)

// --- Error taxonomy ---

func TestError_UnwrapsToKind(t *testing.T) {
	errAlreadyVoted := NewError(ErrAlreadyDone, "engine: already voted")
	wrapped := fmt.Errorf("vote: %w", errAlreadyVoted)

	assert.ErrorIs(t, wrapped, errAlreadyVoted)
	assert.ErrorIs(t, wrapped, ErrAlreadyDone)
	assert.NotErrorIs(t, wrapped, ErrDeadline)
	assert.Equal(t, ErrAlreadyDone, KindOf(wrapped))
	assert.Equal(t, "engine: already voted", errAlreadyVoted.Error())
}

func TestKindOf(t *testing.T) {
	assert.Nil(t, KindOf(nil))
	assert.Nil(t, KindOf(errors.New("plain")))
	assert.Equal(t, ErrNotFound, KindOf(ErrEventNotFound))
	_, err := Add(math.MaxUint64, 1)
	assert.Equal(t, ErrArithmeticOverflow, KindOf(err))
}

// --- Checked arithmetic ---

func TestAddSub(t *testing.T) {
	v, err := Add(2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)

	_, err = Add(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	v, err = Sub(5, 5)
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = Sub(4, 5)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestSum(t *testing.T) {
	v, err := Sum(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), v)

	_, err = Sum(math.MaxUint64-1, 1, 1)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

// --- Types ---

func TestEventID(t *testing.T) {
	a := NewEventID(testParty(1), 1)
	b := NewEventID(testParty(1), 2)
	c := NewEventID(testParty(2), 1)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, NewEventID(testParty(1), 1))

	parsed, err := ParseEventID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
	assert.Len(t, a.Short(), 8)

	_, err = ParseEventID("abc")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEvent_Status(t *testing.T) {
	deadline := testNow.Add(time.Hour)
	tests := []struct {
		name string
		ev   Event
		now  time.Time
		want Status
	}{
		{"active", Event{Active: true, FundingDeadline: deadline}, testNow, StatusActive},
		{"expired at deadline", Event{Active: true, FundingDeadline: deadline}, deadline, StatusExpired},
		{"funded", Event{Active: true, Funded: true, FundingDeadline: deadline}, deadline, StatusFunded},
		{"cancelled", Event{Cancelled: true, FundingDeadline: deadline}, testNow, StatusCancelled},
		{"finalized", Event{Funded: true, Finalized: true}, testNow, StatusFinalized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.Status(tt.now))
		})
	}
}

func TestEvent_RefundOpen(t *testing.T) {
	deadline := testNow.Add(time.Hour)
	ev := Event{FundingDeadline: deadline}
	assert.False(t, ev.RefundOpen(testNow))
	assert.True(t, ev.RefundOpen(deadline))

	ev.Funded = true
	assert.False(t, ev.RefundOpen(deadline))

	ev = Event{Cancelled: true, FundingDeadline: deadline}
	assert.True(t, ev.RefundOpen(testNow))
}

func TestContribution_Recompute(t *testing.T) {
	c := Contribution{Amount: 600}
	c.Recompute()
	assert.Equal(t, uint64(600), c.VotingPower)

	c.ClaimedRefund = true
	c.Recompute()
	assert.Zero(t, c.VotingPower)
	assert.Equal(t, uint64(600), c.Amount, "historical amount kept")
}

func TestEscrow_AdvanceCurrent(t *testing.T) {
	esc := Escrow{Milestones: make([]Milestone, 4)}
	esc.Milestones[1].Released = true
	esc.AdvanceCurrent()
	assert.Equal(t, uint16(0), esc.CurrentMilestone, "gap at 0 holds the pointer")

	esc.Milestones[0].Released = true
	esc.AdvanceCurrent()
	assert.Equal(t, uint16(2), esc.CurrentMilestone)

	esc.Milestones[3].Released = true
	esc.AdvanceCurrent()
	assert.Equal(t, uint16(2), esc.CurrentMilestone)

	esc.Milestones[2].Released = true
	esc.AdvanceCurrent()
	assert.Equal(t, uint16(4), esc.CurrentMilestone)
}

func TestEscrow_Helpers(t *testing.T) {
	esc := Escrow{
		Approvers:  []identity.ID{testParty(1)},
		Milestones: []Milestone{{Amount: 300}, {Amount: 200}},
	}
	assert.True(t, esc.IsApprover(testParty(1)))
	assert.False(t, esc.IsApprover(testParty(2)))

	require.NotNil(t, esc.Milestone(1))
	assert.Nil(t, esc.Milestone(2))

	total, err := esc.ScheduledAmount()
	require.NoError(t, err)
	assert.Equal(t, uint64(500), total)
}

func TestSequence_Overflow(t *testing.T) {
	s := Sequence{Count: math.MaxUint64}
	_, err := s.Next()
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestCategories(t *testing.T) {
	c, err := ParseEventCategory("tech_meetup")
	require.NoError(t, err)
	assert.Equal(t, CategoryTechMeetup, c)
	assert.True(t, c.Valid())
	assert.False(t, EventCategory(42).Valid())

	_, err = ParseEventCategory("rave")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, "catering", BudgetCatering.String())
	assert.False(t, BudgetCategory(8).Valid())
}
