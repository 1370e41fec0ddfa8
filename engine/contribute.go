package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
	"github.com/bitfsorg/gatherfi-go/transfer"
)

// Contribute moves amount from the contributor into the event's escrow and
// accumulates it on the contributor's record. The event becomes funded the
// first time the raised total reaches its target.
func (e *Engine) Contribute(ctx context.Context, contributor identity.ID, id ledger.EventID, amount uint64) (*ledger.Contribution, error) {
	var c *ledger.Contribution
	fields := logrus.Fields{"event": id.Short(), "contributor": contributor.Short()}
	err := e.run(ctx, "contribute", fields, func(tx ledger.Tx, o *op) error {
		if err := requireParty(contributor); err != nil {
			return err
		}
		ev, err := ledger.GetEvent(tx, id)
		if err != nil {
			return err
		}
		switch {
		case ev.Cancelled:
			return ErrAlreadyCancelled
		case ev.Finalized || !ev.Active:
			return ErrEventNotActive
		case ev.Paused:
			return ErrEventPaused
		case !o.now.Before(ev.FundingDeadline):
			return ErrFundingClosed
		case ev.Funded:
			return ErrTargetReached
		case amount < ev.MinContribution || amount == 0:
			return fmt.Errorf("%w: %d below %d", ErrInsufficientContribution, amount, ev.MinContribution)
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}

		var created bool
		c, created, err = ledger.UpsertContribution(tx, id, contributor)
		if err != nil {
			return err
		}
		if c.ClaimedRefund {
			return ErrAlreadyRefunded
		}

		ownTotal, err := ledger.Add(c.Amount, amount)
		if err != nil {
			return err
		}
		raised, err := ledger.Add(ev.AmountRaised, amount)
		if err != nil {
			return err
		}
		escrowTotal, err := ledger.Add(esc.TotalAmount, amount)
		if err != nil {
			return err
		}
		escrowBalance, err := ledger.Add(esc.Balance, amount)
		if err != nil {
			return err
		}
		backers := ev.TotalBackers
		if created {
			if backers == math.MaxUint32 {
				return fmt.Errorf("%w: backer count", ledger.ErrArithmeticOverflow)
			}
			backers++
		}

		if _, err := o.transfer(contributor, ev.EscrowAccount, amount, "contribution"); err != nil {
			return err
		}

		c.Amount = ownTotal
		c.Recompute()
		if created {
			c.CreatedAt = o.now
		}
		c.UpdatedAt = o.now

		ev.AmountRaised = raised
		ev.TotalBackers = backers
		if !ev.Funded && raised >= ev.TargetAmount {
			ev.Funded = true
			ev.FundedAt = ledger.SomeTime(o.now)
			o.fields["funded"] = true
		}
		ev.UpdatedAt = o.now

		esc.TotalAmount = escrowTotal
		esc.Balance = escrowBalance

		if err := ledger.PutContribution(tx, c); err != nil {
			return err
		}
		if err := ledger.PutEvent(tx, ev); err != nil {
			return err
		}
		return ledger.PutEscrow(tx, esc)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ClaimRefund returns the caller's full contribution from escrow.
func (e *Engine) ClaimRefund(ctx context.Context, contributor identity.ID, id ledger.EventID) (uint64, error) {
	return e.refund(ctx, "claim_refund", contributor, contributor, id)
}

// RefundContribution returns a contributor's full contribution on the
// organizer's initiative.
func (e *Engine) RefundContribution(ctx context.Context, organizer identity.ID, id ledger.EventID, contributor identity.ID) (uint64, error) {
	return e.refund(ctx, "refund_contribution", organizer, contributor, id)
}

func (e *Engine) refund(ctx context.Context, name string, caller, contributor identity.ID, id ledger.EventID) (uint64, error) {
	var amount uint64
	fields := logrus.Fields{"event": id.Short(), "contributor": contributor.Short()}
	err := e.run(ctx, name, fields, func(tx ledger.Tx, o *op) error {
		if err := requireParty(caller); err != nil {
			return err
		}
		if err := requireParty(contributor); err != nil {
			return err
		}
		ev, err := ledger.GetEvent(tx, id)
		if err != nil {
			return err
		}
		if caller != contributor && caller != ev.Organizer {
			return ErrNotOrganizer
		}
		if ev.Finalized {
			return ErrAlreadyFinalized
		}
		if !ev.RefundOpen(o.now) {
			return ErrRefundNotAvailable
		}

		c, err := ledger.GetContribution(tx, id, contributor)
		if errors.Is(err, ledger.ErrContributionNotFound) {
			return ErrNotBacker
		}
		if err != nil {
			return err
		}
		if c.ClaimedRefund {
			return ErrAlreadyRefunded
		}
		if c.ClaimedProfits > 0 || ledger.HasClaim(tx, id, ledger.RoleBacker, contributor) {
			return ErrProfitsClaimed
		}
		amount = c.Amount

		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		if esc.Balance < amount {
			return fmt.Errorf("%w: balance %d, refund %d", ErrEscrowShort, esc.Balance, amount)
		}
		balance, err := ledger.Sub(esc.Balance, amount)
		if err != nil {
			return inconsistent(err)
		}
		total, err := ledger.Sub(esc.TotalAmount, amount)
		if err != nil {
			return inconsistent(err)
		}
		raised, err := ledger.Sub(ev.AmountRaised, amount)
		if err != nil {
			return inconsistent(err)
		}
		refunded, err := ledger.Add(esc.RefundedAmount, amount)
		if err != nil {
			return inconsistent(err)
		}

		if _, err := o.transfer(esc.Account, contributor, amount, "refund"); err != nil {
			if errors.Is(err, transfer.ErrInsufficientBalance) {
				// The ledger balance covers the refund but custody does not.
				return inconsistent(err)
			}
			return err
		}

		c.ClaimedRefund = true
		c.RefundedAt = ledger.SomeTime(o.now)
		c.Recompute()
		c.UpdatedAt = o.now

		esc.Balance = balance
		esc.TotalAmount = total
		esc.RefundedAmount = refunded
		ev.AmountRaised = raised
		ev.UpdatedAt = o.now

		if err := ledger.PutContribution(tx, c); err != nil {
			return err
		}
		if err := ledger.PutEscrow(tx, esc); err != nil {
			return err
		}
		return ledger.PutEvent(tx, ev)
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}
