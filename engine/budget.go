package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/gatherfi-go/governance"
	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
)

// SubmitBudget opens a spending plan for contributor approval. A budget may
// be replaced only after its previous round was rejected.
func (e *Engine) SubmitBudget(ctx context.Context, organizer identity.ID, id ledger.EventID, items []ledger.BudgetItem, total uint64) (*ledger.Budget, error) {
	var b *ledger.Budget
	err := e.run(ctx, "submit_budget", eventFields(id), func(tx ledger.Tx, o *op) error {
		ev, err := e.organizerEvent(tx, organizer, id)
		if err != nil {
			return err
		}
		if err := openForChanges(ev); err != nil {
			return err
		}
		if len(items) == 0 || total == 0 {
			return fmt.Errorf("%w: empty budget", ErrInvalidParams)
		}

		var sum uint64
		for i, it := range items {
			if it.Name == "" || it.Amount == 0 {
				return fmt.Errorf("%w: item %d incomplete", ErrInvalidParams, i)
			}
			if !it.Category.Valid() {
				return fmt.Errorf("%w: item %d category %d", ErrInvalidParams, i, it.Category)
			}
			if sum, err = ledger.Add(sum, it.Amount); err != nil {
				return err
			}
		}
		if sum != total {
			return fmt.Errorf("%w: items %d, total %d", ErrBudgetMismatch, sum, total)
		}

		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		if total > esc.TotalAmount {
			return fmt.Errorf("%w: budget %d, escrow %d", ErrBudgetExceedsEscrow, total, esc.TotalAmount)
		}

		var round uint32 = 1
		prev, err := ledger.GetBudget(tx, id)
		switch {
		case err == nil:
			if prev.Locked || prev.Approved() {
				return ErrBudgetLocked
			}
			if !prev.Tally.Rejected() {
				return ErrBudgetPending
			}
			if prev.Round == math.MaxUint32 {
				return fmt.Errorf("%w: budget round", ledger.ErrArithmeticOverflow)
			}
			round = prev.Round + 1
		case !errors.Is(err, ledger.ErrBudgetNotFound):
			return err
		}

		deadline := o.now.Add(e.params.BudgetVotingWindow)
		if deadline.After(ev.VotingEndsAt) {
			deadline = ev.VotingEndsAt
		}
		if !deadline.After(o.now) {
			return ErrVotingEnded
		}

		owned := make([]ledger.BudgetItem, len(items))
		for i, it := range items {
			it.Paid = false
			it.PaidAt = ledger.OptionalTime{}
			owned[i] = it
		}
		b = &ledger.Budget{
			Event:           id,
			Organizer:       organizer,
			Round:           round,
			Items:           owned,
			TotalAmount:     total,
			AmountRemaining: total,
			Tally:           governance.Open(deadline),
			CreatedAt:       o.now,
			UpdatedAt:       o.now,
		}
		o.fields["round"] = round
		return ledger.PutBudget(tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// VoteOnBudget records the voter's current voting power for or against the
// open budget. The weight is frozen at cast time.
func (e *Engine) VoteOnBudget(ctx context.Context, voter identity.ID, id ledger.EventID, approve bool) error {
	fields := logrus.Fields{"event": id.Short(), "voter": voter.Short(), "approve": approve}
	return e.run(ctx, "vote_on_budget", fields, func(tx ledger.Tx, o *op) error {
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
		b, err := ledger.GetBudget(tx, id)
		if err != nil {
			return err
		}
		if ledger.HasVote(tx, ledger.SubjectBudget, id, b.Round, voter) {
			return ErrAlreadyVoted
		}
		weight, err := votingPower(tx, id, voter)
		if err != nil {
			return err
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}

		if err := b.Tally.Cast(weight, approve, o.now, esc.TotalAmount, e.params.QuorumBps); err != nil {
			return voteError(err)
		}
		totalVotes, err := ledger.Add(ev.TotalVotes, weight)
		if err != nil {
			return err
		}
		side := &ev.VotesAgainst
		if approve {
			side = &ev.VotesFor
		}
		sideVotes, err := ledger.Add(*side, weight)
		if err != nil {
			return err
		}
		ev.TotalVotes = totalVotes
		*side = sideVotes
		ev.UpdatedAt = o.now

		if b.Tally.Approved {
			b.Locked = true
			o.fields["approved"] = true
		}
		b.UpdatedAt = o.now

		vote := &ledger.Vote{
			Event:   id,
			Voter:   voter,
			Subject: ledger.SubjectBudget,
			Round:   b.Round,
			Approve: approve,
			Weight:  weight,
			VotedAt: o.now,
		}
		if err := ledger.PutVote(tx, vote); err != nil {
			return err
		}
		if err := ledger.PutBudget(tx, b); err != nil {
			return err
		}
		return ledger.PutEvent(tx, ev)
	})
}

// ResolveBudget settles the budget vote after its deadline.
func (e *Engine) ResolveBudget(ctx context.Context, id ledger.EventID) (bool, error) {
	var approved bool
	err := e.run(ctx, "resolve_budget", eventFields(id), func(tx ledger.Tx, o *op) error {
		b, err := ledger.GetBudget(tx, id)
		if err != nil {
			return err
		}
		if approved, err = b.Tally.Resolve(o.now); err != nil {
			return voteError(err)
		}
		if approved {
			b.Locked = true
		}
		b.UpdatedAt = o.now
		o.fields["approved"] = approved
		return ledger.PutBudget(tx, b)
	})
	return approved, err
}

// MarkItemPaid records that a budget line was settled with its vendor.
func (e *Engine) MarkItemPaid(ctx context.Context, organizer identity.ID, id ledger.EventID, index int) error {
	return e.run(ctx, "mark_item_paid", eventFields(id), func(tx ledger.Tx, o *op) error {
		if _, err := e.organizerEvent(tx, organizer, id); err != nil {
			return err
		}
		b, err := ledger.GetBudget(tx, id)
		if err != nil {
			return err
		}
		if !b.Approved() {
			return ErrBudgetNotApproved
		}
		if index < 0 || index >= len(b.Items) {
			return fmt.Errorf("%w: index %d", ErrItemNotFound, index)
		}
		if b.Items[index].Paid {
			return ErrItemPaid
		}

		b.Items[index].Paid = true
		b.Items[index].PaidAt = ledger.SomeTime(o.now)
		b.Completed = true
		for _, it := range b.Items {
			if !it.Paid {
				b.Completed = false
				break
			}
		}
		b.UpdatedAt = o.now
		return ledger.PutBudget(tx, b)
	})
}

// votingPower returns the voter's current non-zero power.
func votingPower(tx ledger.Tx, id ledger.EventID, voter identity.ID) (uint64, error) {
	c, err := ledger.GetContribution(tx, id, voter)
	if errors.Is(err, ledger.ErrContributionNotFound) {
		return 0, ErrInsufficientVotingPower
	}
	if err != nil {
		return 0, err
	}
	if c.VotingPower == 0 {
		return 0, ErrInsufficientVotingPower
	}
	return c.VotingPower, nil
}
