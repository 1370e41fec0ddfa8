package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/gatherfi-go/governance"
	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
)

// MilestoneParams describe a release point added to an escrow.
type MilestoneParams struct {
	Description  string
	Amount       uint64
	DueDate      time.Time
	RequiresVote bool
}

// AddMilestone appends a release point. Once a budget is approved the
// scheduled milestone total may not exceed it.
func (e *Engine) AddMilestone(ctx context.Context, organizer identity.ID, id ledger.EventID, p MilestoneParams) (*ledger.Milestone, error) {
	var m ledger.Milestone
	err := e.run(ctx, "add_milestone", eventFields(id), func(tx ledger.Tx, o *op) error {
		ev, err := e.organizerEvent(tx, organizer, id)
		if err != nil {
			return err
		}
		if err := openForChanges(ev); err != nil {
			return err
		}
		if p.Amount == 0 {
			return fmt.Errorf("%w: zero milestone amount", ErrInvalidParams)
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		if len(esc.Milestones) >= math.MaxUint16 {
			return fmt.Errorf("%w: too many milestones", ErrInvalidParams)
		}

		if err := fitsBudget(tx, esc, p.Amount); err != nil {
			return err
		}

		m = ledger.Milestone{
			Index:        uint16(len(esc.Milestones)),
			Description:  p.Description,
			Amount:       p.Amount,
			DueDate:      p.DueDate,
			RequiresVote: p.RequiresVote,
		}
		esc.Milestones = append(esc.Milestones, m)
		o.fields["milestone"] = m.Index
		return ledger.PutEscrow(tx, esc)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// OpenMilestoneVote starts the contributor vote on a milestone release. A
// rejected vote may be reopened as a new round, provided the milestone
// still fits within an approved budget.
func (e *Engine) OpenMilestoneVote(ctx context.Context, organizer identity.ID, id ledger.EventID, index uint16) error {
	fields := logrus.Fields{"event": id.Short(), "milestone": index}
	return e.run(ctx, "open_milestone_vote", fields, func(tx ledger.Tx, o *op) error {
		ev, err := e.organizerEvent(tx, organizer, id)
		if err != nil {
			return err
		}
		if err := openForChanges(ev); err != nil {
			return err
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		m := esc.Milestone(index)
		switch {
		case m == nil:
			return ErrMilestoneNotFound
		case m.Released:
			return ErrAlreadyReleased
		case m.Vote.Opened && !m.Vote.Rejected():
			return ErrVoteAlreadyOpen
		case m.VoteRound == math.MaxUint16:
			return fmt.Errorf("%w: milestone vote round", ledger.ErrArithmeticOverflow)
		}

		if m.Withdrawn() {
			if err := fitsBudget(tx, esc, m.Amount); err != nil {
				return err
			}
		}
		m.VoteRound++
		m.Vote = governance.Open(o.now.Add(e.params.MilestoneVotingWindow))
		o.fields["round"] = m.VoteRound
		return ledger.PutEscrow(tx, esc)
	})
}

// VoteOnMilestone records the voter's current voting power on a
// milestone release vote.
func (e *Engine) VoteOnMilestone(ctx context.Context, voter identity.ID, id ledger.EventID, index uint16, approve bool) error {
	fields := logrus.Fields{"event": id.Short(), "milestone": index, "voter": voter.Short(), "approve": approve}
	return e.run(ctx, "vote_on_milestone", fields, func(tx ledger.Tx, o *op) error {
		if err := requireParty(voter); err != nil {
			return err
		}
		ev, err := ledger.GetEvent(tx, id)
		if err != nil {
			return err
		}
		if err := openForChanges(ev); err != nil {
			return err
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		m := esc.Milestone(index)
		switch {
		case m == nil:
			return ErrMilestoneNotFound
		case m.Released:
			return ErrAlreadyReleased
		}
		round := ledger.MilestoneRound(index, m.VoteRound)
		if ledger.HasVote(tx, ledger.SubjectMilestone, id, round, voter) {
			return ErrAlreadyVoted
		}
		weight, err := votingPower(tx, id, voter)
		if err != nil {
			return err
		}
		if err := m.Vote.Cast(weight, approve, o.now, esc.TotalAmount, e.params.QuorumBps); err != nil {
			return voteError(err)
		}
		if m.Vote.Approved {
			o.fields["approved"] = true
		}

		vote := &ledger.Vote{
			Event:   id,
			Voter:   voter,
			Subject: ledger.SubjectMilestone,
			Round:   round,
			Approve: approve,
			Weight:  weight,
			VotedAt: o.now,
		}
		if err := ledger.PutVote(tx, vote); err != nil {
			return err
		}
		return ledger.PutEscrow(tx, esc)
	})
}

// ResolveMilestoneVote settles a milestone vote after its deadline.
func (e *Engine) ResolveMilestoneVote(ctx context.Context, id ledger.EventID, index uint16) (bool, error) {
	var approved bool
	fields := logrus.Fields{"event": id.Short(), "milestone": index}
	err := e.run(ctx, "resolve_milestone_vote", fields, func(tx ledger.Tx, o *op) error {
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		m := esc.Milestone(index)
		if m == nil {
			return ErrMilestoneNotFound
		}
		if approved, err = m.Vote.Resolve(o.now); err != nil {
			return voteError(err)
		}
		o.fields["approved"] = approved
		return ledger.PutEscrow(tx, esc)
	})
	return approved, err
}

// ReleaseMilestone pays amount of a milestone from escrow to the organizer.
func (e *Engine) ReleaseMilestone(ctx context.Context, caller identity.ID, id ledger.EventID, index uint16, amount uint64) error {
	fields := logrus.Fields{"event": id.Short(), "milestone": index}
	return e.run(ctx, "release_milestone", fields, func(tx ledger.Tx, o *op) error {
		ev, err := e.organizerEvent(tx, caller, id)
		if err != nil {
			return err
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		if !esc.IsApprover(caller) {
			return ErrNotApprover
		}
		switch {
		case ev.Finalized:
			return ErrAlreadyFinalized
		case ev.Cancelled:
			return ErrAlreadyCancelled
		case !ev.Funded:
			return ErrNotFunded
		case esc.Locked:
			return ErrEscrowLocked
		}

		b, err := ledger.GetBudget(tx, id)
		if errors.Is(err, ledger.ErrBudgetNotFound) {
			return ErrBudgetNotApproved
		}
		if err != nil {
			return err
		}
		if !b.Approved() {
			return ErrBudgetNotApproved
		}

		m := esc.Milestone(index)
		switch {
		case m == nil:
			return ErrMilestoneNotFound
		case m.Released:
			return ErrAlreadyReleased
		case amount == 0:
			return fmt.Errorf("%w: zero release", ErrInvalidParams)
		case amount > m.Amount:
			return fmt.Errorf("%w: %d over %d", ErrExceedsMilestone, amount, m.Amount)
		case amount > esc.Balance:
			return fmt.Errorf("%w: %d over %d", ErrEscrowInsufficient, amount, esc.Balance)
		case e.params.MilestonePolicy.NeedsMilestoneVote(m.RequiresVote) && !m.Vote.Approved:
			return ErrMilestoneVoteNeeded
		}

		spent, err := ledger.Add(b.AmountSpent, amount)
		if err != nil {
			return err
		}
		if spent > b.TotalAmount {
			return fmt.Errorf("%w: spent %d, budget %d", ErrMilestoneExceedsBudget, spent, b.TotalAmount)
		}
		released, err := ledger.Add(esc.ReleasedAmount, amount)
		if err != nil {
			return err
		}
		balance, err := ledger.Sub(esc.Balance, amount)
		if err != nil {
			return err
		}

		if _, err := o.transfer(esc.Account, ev.Organizer, amount, "milestone release"); err != nil {
			return err
		}

		m.Released = true
		m.ReleasedAmount = amount
		m.ReleasedAt = ledger.SomeTime(o.now)
		m.ReleasedBy = ledger.SomeParty(caller)
		esc.ReleasedAmount = released
		esc.Balance = balance
		esc.AdvanceCurrent()

		b.AmountSpent = spent
		b.AmountRemaining = b.TotalAmount - spent
		b.UpdatedAt = o.now

		if err := ledger.PutEscrow(tx, esc); err != nil {
			return err
		}
		return ledger.PutBudget(tx, b)
	})
}

// fitsBudget checks that scheduling amount more on top of the escrow's
// live milestones stays within an approved budget.
func fitsBudget(tx ledger.Tx, esc *ledger.Escrow, amount uint64) error {
	scheduled, err := esc.ScheduledAmount()
	if err != nil {
		return err
	}
	if scheduled, err = ledger.Add(scheduled, amount); err != nil {
		return err
	}
	b, err := ledger.GetBudget(tx, esc.Event)
	switch {
	case err == nil:
		if b.Approved() && scheduled > b.TotalAmount {
			return fmt.Errorf("%w: scheduled %d, budget %d", ErrMilestoneExceedsBudget, scheduled, b.TotalAmount)
		}
	case !errors.Is(err, ledger.ErrBudgetNotFound):
		return err
	}
	return nil
}
