package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
	"github.com/bitfsorg/gatherfi-go/revshare"
)

// ConfigurePool changes an event's fee and split before profits are
// calculated. A calculated pool keeps the parameters it was split with.
func (e *Engine) ConfigurePool(ctx context.Context, platform identity.ID, id ledger.EventID, feeBps uint16, shares revshare.Shares) error {
	return e.run(ctx, "configure_pool", eventFields(id), func(tx ledger.Tx, o *op) error {
		if err := e.requirePlatform(platform); err != nil {
			return err
		}
		if feeBps > e.params.MaxFeeBps {
			return fmt.Errorf("%w: %d over %d", ErrPlatformFeeTooHigh, feeBps, e.params.MaxFeeBps)
		}
		if err := shares.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfitShares, err)
		}
		pool, err := ledger.GetPool(tx, id)
		if err != nil {
			return err
		}
		if pool.Calculated {
			return ErrAlreadyCalculated
		}
		pool.PlatformFeeBps = feeBps
		pool.Shares = shares
		return ledger.PutPool(tx, pool)
	})
}

// CalculateProfits snapshots revenue against approved spending and splits
// any profit between backers, organizer and platform.
func (e *Engine) CalculateProfits(ctx context.Context, caller identity.ID, id ledger.EventID) (*ledger.ProfitPool, error) {
	var pool *ledger.ProfitPool
	err := e.run(ctx, "calculate_profits", eventFields(id), func(tx ledger.Tx, o *op) error {
		ev, err := e.stewardEvent(tx, caller, id)
		if err != nil {
			return err
		}
		if pool, err = ledger.GetPool(tx, id); err != nil {
			return err
		}
		switch {
		case pool.Calculated:
			return ErrAlreadyCalculated
		case ev.Cancelled:
			return ErrAlreadyCancelled
		case !ev.Funded:
			return ErrNotFunded
		case !o.now.After(ev.EventDate):
			return ErrEventNotOver
		}

		var expenses uint64
		b, err := ledger.GetBudget(tx, id)
		switch {
		case err == nil:
			expenses = b.AmountSpent
		case !errors.Is(err, ledger.ErrBudgetNotFound):
			return err
		}
		revenue, err := pool.RevenueIn()
		if err != nil {
			return err
		}
		if revenue > math.MaxInt64 || expenses > math.MaxInt64 {
			return fmt.Errorf("%w: revenue %d, expenses %d", ledger.ErrArithmeticOverflow, revenue, expenses)
		}
		split, err := revshare.Split(int64(revenue)-int64(expenses), pool.PlatformFeeBps, pool.Shares)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfitShares, err)
		}
		if err := revshare.ValidateSplit(split, pool.PlatformFeeBps, pool.Shares); err != nil {
			return inconsistent(err)
		}

		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		var backers uint32
		err = ledger.ForEachContribution(tx, id, func(c *ledger.Contribution) error {
			if c.ClaimedRefund || c.Amount == 0 {
				return nil
			}
			share, err := revshare.Entitlement(c.Amount, esc.TotalAmount, split.Backer)
			if err != nil {
				return inconsistent(err)
			}
			if share > 0 {
				backers++
			}
			return nil
		})
		if err != nil {
			return err
		}

		pool.TotalExpenses = expenses
		pool.Split = split
		pool.TotalContributed = esc.TotalAmount
		pool.TotalBackers = backers
		pool.Calculated = true
		markDistributed(pool, o)
		o.fields["net_profit"] = split.NetProfit
		return ledger.PutPool(tx, pool)
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// ClaimProfits pays a backer their pro-rata share of the backer pool.
func (e *Engine) ClaimProfits(ctx context.Context, backer identity.ID, id ledger.EventID) (*ledger.ProfitClaim, error) {
	var claim *ledger.ProfitClaim
	fields := logrus.Fields{"event": id.Short(), "backer": backer.Short()}
	err := e.run(ctx, "claim_profits", fields, func(tx ledger.Tx, o *op) error {
		if err := requireParty(backer); err != nil {
			return err
		}
		pool, err := ledger.GetPool(tx, id)
		if err != nil {
			return err
		}
		if !pool.Calculated {
			return ErrProfitsNotCalculated
		}
		c, err := ledger.GetContribution(tx, id, backer)
		if errors.Is(err, ledger.ErrContributionNotFound) {
			return ErrNotBacker
		}
		if err != nil {
			return err
		}
		switch {
		case c.ClaimedRefund:
			return ErrAlreadyRefunded
		case c.ClaimedProfits > 0 || ledger.HasClaim(tx, id, ledger.RoleBacker, backer):
			return ErrAlreadyClaimed
		}
		amount, err := revshare.Entitlement(c.Amount, pool.TotalContributed, pool.Split.Backer)
		if err != nil {
			return inconsistent(err)
		}
		if amount == 0 {
			return ErrNoProfits
		}
		claimed, err := ledger.Add(pool.BackerClaimed, amount)
		if err != nil {
			return inconsistent(err)
		}
		if claimed > pool.Split.Backer || pool.BackersPaid >= pool.TotalBackers {
			return fmt.Errorf("%w: backer pool overdrawn", ledger.ErrConsistencyViolation)
		}

		if claim, err = payout(tx, o, pool, backer, ledger.RoleBacker, amount); err != nil {
			return err
		}
		c.ClaimedProfits = amount
		c.UpdatedAt = o.now
		pool.BackerClaimed = claimed
		pool.BackersPaid++
		markDistributed(pool, o)

		if err := ledger.PutContribution(tx, c); err != nil {
			return err
		}
		return ledger.PutPool(tx, pool)
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// ClaimOrganizerShare pays the organizer's share of the profit.
func (e *Engine) ClaimOrganizerShare(ctx context.Context, organizer identity.ID, id ledger.EventID) (*ledger.ProfitClaim, error) {
	var claim *ledger.ProfitClaim
	err := e.run(ctx, "claim_organizer_share", eventFields(id), func(tx ledger.Tx, o *op) error {
		if _, err := e.organizerEvent(tx, organizer, id); err != nil {
			return err
		}
		pool, err := ledger.GetPool(tx, id)
		if err != nil {
			return err
		}
		switch {
		case !pool.Calculated:
			return ErrProfitsNotCalculated
		case pool.OrganizerClaimed:
			return ErrAlreadyClaimed
		case pool.Split.Organizer == 0:
			return ErrNoProfits
		}
		if claim, err = payout(tx, o, pool, organizer, ledger.RoleOrganizer, pool.Split.Organizer); err != nil {
			return err
		}
		pool.OrganizerClaimed = true
		markDistributed(pool, o)
		return ledger.PutPool(tx, pool)
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// WithdrawFees pays the platform its fee, platform share and rounding residual.
func (e *Engine) WithdrawFees(ctx context.Context, platform identity.ID, id ledger.EventID) (*ledger.ProfitClaim, error) {
	var claim *ledger.ProfitClaim
	err := e.run(ctx, "withdraw_fees", eventFields(id), func(tx ledger.Tx, o *op) error {
		if err := e.requirePlatform(platform); err != nil {
			return err
		}
		pool, err := ledger.GetPool(tx, id)
		if err != nil {
			return err
		}
		amount := pool.Split.PlatformTotal()
		switch {
		case !pool.Calculated:
			return ErrProfitsNotCalculated
		case pool.FeesWithdrawn:
			return ErrFeesWithdrawn
		case amount == 0:
			return ErrNoProfits
		}
		if claim, err = payout(tx, o, pool, platform, ledger.RolePlatform, amount); err != nil {
			return err
		}
		pool.FeesWithdrawn = true
		markDistributed(pool, o)
		return ledger.PutPool(tx, pool)
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// payout moves amount out of the pool and records the claim under the
// transfer's reference.
func payout(tx ledger.Tx, o *op, pool *ledger.ProfitPool, to identity.ID, role ledger.ClaimRole, amount uint64) (*ledger.ProfitClaim, error) {
	if pool.Balance < amount {
		return nil, fmt.Errorf("%w: balance %d, payout %d", ErrPoolShort, pool.Balance, amount)
	}
	paidOut, err := ledger.Add(pool.PaidOut, amount)
	if err != nil {
		return nil, inconsistent(err)
	}
	ref, err := o.transfer(pool.Account, to, amount, role.String()+" profit")
	if err != nil {
		return nil, err
	}
	pool.Balance -= amount
	pool.PaidOut = paidOut

	claim := &ledger.ProfitClaim{
		ID:        ref,
		Event:     pool.Event,
		Claimant:  to,
		Role:      role,
		Amount:    amount,
		ClaimedAt: o.now,
	}
	if err := ledger.PutClaim(tx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// markDistributed flags the pool once every stakeholder owed a payout has
// been paid.
func markDistributed(pool *ledger.ProfitPool, o *op) {
	if pool.Distributed {
		return
	}
	done := pool.BackersPaid >= pool.TotalBackers &&
		(pool.OrganizerClaimed || pool.Split.Organizer == 0) &&
		(pool.FeesWithdrawn || pool.Split.PlatformTotal() == 0)
	if done {
		pool.Distributed = true
		pool.DistributionDate = ledger.SomeTime(o.now)
		o.fields["distributed"] = true
	}
}

func (e *Engine) requirePlatform(caller identity.ID) error {
	if err := requireParty(caller); err != nil {
		return err
	}
	if caller != e.params.Platform {
		return ErrNotPlatform
	}
	return nil
}
