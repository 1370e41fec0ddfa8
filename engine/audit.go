package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/gatherfi-go/ledger"
	"github.com/bitfsorg/gatherfi-go/revshare"
)

// auditWorkers bounds concurrent event audits.
const auditWorkers = 8

// AuditReport is the result of checking one event's conservation rules.
type AuditReport struct {
	Event             ledger.EventID
	EscrowTotal       uint64
	EscrowBalance     uint64
	EscrowReleased    uint64
	EscrowRefunded    uint64
	LiveContributions uint64
	Contributors      int
	PoolRevenue       uint64
	PoolBalance       uint64
	PoolPaidOut       uint64
	Violations        []string
}

// OK reports whether the event passed every check.
func (r *AuditReport) OK() bool { return len(r.Violations) == 0 }

// Err returns a consistency violation listing every failed check, or nil.
func (r *AuditReport) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: event %s: %s", ledger.ErrConsistencyViolation, r.Event.Short(), strings.Join(r.Violations, "; "))
}

func (r *AuditReport) failf(format string, args ...interface{}) {
	r.Violations = append(r.Violations, fmt.Sprintf(format, args...))
}

// Audit checks one event. A failing report halts the engine.
func (e *Engine) Audit(ctx context.Context, id ledger.EventID) (*AuditReport, error) {
	var report *AuditReport
	err := e.view(ctx, func(tx ledger.Tx) error {
		var err error
		report, err = auditEvent(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		e.halt(e.log.WithField("op", "audit").WithField("event", id.Short()), err)
	}
	return report, nil
}

// AuditAll checks every event, several at a time.
func (e *Engine) AuditAll(ctx context.Context) ([]*AuditReport, error) {
	var ids []ledger.EventID
	err := e.view(ctx, func(tx ledger.Tx) error {
		return ledger.ForEachEvent(tx, func(ev *ledger.Event) error {
			ids = append(ids, ev.ID)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	reports := make([]*AuditReport, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(auditWorkers)
	for i, id := range ids {
		g.Go(func() error {
			r, err := e.Audit(gctx, id)
			if err != nil {
				return fmt.Errorf("audit %s: %w", id.Short(), err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func auditEvent(tx ledger.Tx, id ledger.EventID) (*AuditReport, error) {
	ev, err := ledger.GetEvent(tx, id)
	if err != nil {
		return nil, err
	}
	esc, err := ledger.GetEscrow(tx, id)
	if err != nil {
		return nil, err
	}
	pool, err := ledger.GetPool(tx, id)
	if err != nil {
		return nil, err
	}

	r := &AuditReport{
		Event:          id,
		EscrowTotal:    esc.TotalAmount,
		EscrowBalance:  esc.Balance,
		EscrowReleased: esc.ReleasedAmount,
		EscrowRefunded: esc.RefundedAmount,
		PoolBalance:    pool.Balance,
		PoolPaidOut:    pool.PaidOut,
	}

	var refunded uint64
	err = ledger.ForEachContribution(tx, id, func(c *ledger.Contribution) error {
		r.Contributors++
		var err error
		if c.ClaimedRefund {
			if refunded, err = ledger.Add(refunded, c.Amount); err != nil {
				r.failf("refunded contributions overflow")
			}
			if c.ClaimedProfits > 0 || ledger.HasClaim(tx, id, ledger.RoleBacker, c.Contributor) {
				r.failf("contributor %s refunded and paid profits", c.Contributor.Short())
			}
			if c.VotingPower != 0 {
				r.failf("contributor %s refunded with voting power %d", c.Contributor.Short(), c.VotingPower)
			}
			return nil
		}
		if r.LiveContributions, err = ledger.Add(r.LiveContributions, c.Amount); err != nil {
			r.failf("contributions overflow")
		}
		if c.VotingPower != c.Amount {
			r.failf("contributor %s voting power %d, amount %d", c.Contributor.Short(), c.VotingPower, c.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sum, err := ledger.Add(esc.Balance, esc.ReleasedAmount); err != nil || sum != esc.TotalAmount {
		r.failf("escrow balance %d + released %d != total %d", esc.Balance, esc.ReleasedAmount, esc.TotalAmount)
	}
	if r.LiveContributions != esc.TotalAmount {
		r.failf("contributions %d != escrow total %d", r.LiveContributions, esc.TotalAmount)
	}
	if refunded != esc.RefundedAmount {
		r.failf("refunded contributions %d != escrow refunded %d", refunded, esc.RefundedAmount)
	}
	if ev.AmountRaised != esc.TotalAmount {
		r.failf("amount raised %d != escrow total %d", ev.AmountRaised, esc.TotalAmount)
	}
	if ev.Funded && !ev.FundedAt.Valid {
		r.failf("funded without timestamp")
	}

	var released uint64
	for _, m := range esc.Milestones {
		if m.Released {
			released += m.ReleasedAmount
			if m.ReleasedAmount > m.Amount {
				r.failf("milestone %d released %d over %d", m.Index, m.ReleasedAmount, m.Amount)
			}
		}
	}
	if released != esc.ReleasedAmount {
		r.failf("milestone releases %d != escrow released %d", released, esc.ReleasedAmount)
	}

	b, err := ledger.GetBudget(tx, id)
	switch {
	case err == nil:
		var items uint64
		for _, it := range b.Items {
			items += it.Amount
		}
		if items != b.TotalAmount {
			r.failf("budget items %d != total %d", items, b.TotalAmount)
		}
		if b.AmountSpent > b.TotalAmount || b.AmountRemaining != b.TotalAmount-b.AmountSpent {
			r.failf("budget spent %d remaining %d total %d", b.AmountSpent, b.AmountRemaining, b.TotalAmount)
		}
		if b.AmountSpent != esc.ReleasedAmount {
			r.failf("budget spent %d != escrow released %d", b.AmountSpent, esc.ReleasedAmount)
		}
	case !errors.Is(err, ledger.ErrBudgetNotFound):
		return nil, err
	case esc.ReleasedAmount != 0:
		r.failf("escrow released %d without budget", esc.ReleasedAmount)
	}

	if r.PoolRevenue, err = pool.RevenueIn(); err != nil {
		r.failf("pool revenue overflow")
	}
	if sum, err := ledger.Add(pool.Balance, pool.PaidOut); err != nil || sum != r.PoolRevenue {
		r.failf("pool balance %d + paid out %d != revenue %d", pool.Balance, pool.PaidOut, r.PoolRevenue)
	}
	if pool.Distributed && !pool.Calculated {
		r.failf("pool distributed before calculation")
	}
	if pool.Calculated {
		if err := revshare.ValidateSplit(pool.Split, pool.PlatformFeeBps, pool.Shares); err != nil {
			r.failf("split: %v", err)
		}
		if pool.BackerClaimed > pool.Split.Backer {
			r.failf("backers claimed %d over pool %d", pool.BackerClaimed, pool.Split.Backer)
		}
	}

	var claimed uint64
	err = ledger.ForEachClaim(tx, id, func(c *ledger.ProfitClaim) error {
		claimed += c.Amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimed != pool.PaidOut {
		r.failf("claims %d != pool paid out %d", claimed, pool.PaidOut)
	}
	return r, nil
}
