package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
	"github.com/bitfsorg/gatherfi-go/ticket"
	"github.com/bitfsorg/gatherfi-go/transfer"
)

// SellTicket charges the buyer the tier price into the profit pool and
// issues the next ticket number.
func (e *Engine) SellTicket(ctx context.Context, buyer identity.ID, id ledger.EventID, typ ticket.Type) (*ledger.Ticket, error) {
	var t *ledger.Ticket
	fields := logrus.Fields{"event": id.Short(), "buyer": buyer.Short(), "tier": typ.String()}
	err := e.run(ctx, "sell_ticket", fields, func(tx ledger.Tx, o *op) error {
		if err := requireParty(buyer); err != nil {
			return err
		}
		ev, pool, err := saleOpen(tx, id, o)
		if err != nil {
			return err
		}
		price, err := ticket.Price(ev.TicketPrice, typ)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTicketPrice, err)
		}
		if err := addTicketRevenue(ev, pool, price); err != nil {
			return err
		}
		number, err := ledger.NextSequence(tx, ledger.TicketSequenceKey(id))
		if err != nil {
			return err
		}
		if number > math.MaxUint32 {
			return fmt.Errorf("%w: ticket number", ledger.ErrArithmeticOverflow)
		}

		if _, err := o.transfer(buyer, pool.Account, price, "ticket"); err != nil {
			return err
		}

		t = &ledger.Ticket{
			Event:       id,
			Number:      uint32(number),
			Type:        typ,
			Owner:       buyer,
			Price:       price,
			PurchasedAt: o.now,
		}
		ev.UpdatedAt = o.now
		o.fields["ticket"] = t.Number
		if err := ledger.PutTicket(tx, t); err != nil {
			return err
		}
		if err := ledger.PutEvent(tx, ev); err != nil {
			return err
		}
		return ledger.PutPool(tx, pool)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// RecordTicketSale books a sale settled by an external ticketing service
// directly into the pool custody account.
func (e *Engine) RecordTicketSale(ctx context.Context, reporter identity.ID, id ledger.EventID, price uint64) error {
	fields := logrus.Fields{"event": id.Short(), "price": price}
	return e.run(ctx, "record_ticket_sale", fields, func(tx ledger.Tx, o *op) error {
		if _, err := e.stewardEvent(tx, reporter, id); err != nil {
			return err
		}
		if price == 0 {
			return ErrInvalidTicketPrice
		}
		ev, pool, err := saleOpen(tx, id, o)
		if err != nil {
			return err
		}
		if err := addTicketRevenue(ev, pool, price); err != nil {
			return err
		}
		ev.UpdatedAt = o.now
		if err := ledger.PutEvent(tx, ev); err != nil {
			return err
		}
		return ledger.PutPool(tx, pool)
	})
}

// CheckIn marks a ticket as used at the door.
func (e *Engine) CheckIn(ctx context.Context, staff identity.ID, id ledger.EventID, number uint32) error {
	fields := logrus.Fields{"event": id.Short(), "ticket": number}
	return e.run(ctx, "check_in", fields, func(tx ledger.Tx, o *op) error {
		if err := requireParty(staff); err != nil {
			return err
		}
		ev, err := ledger.GetEvent(tx, id)
		if err != nil {
			return err
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		if staff != ev.Organizer && !esc.IsApprover(staff) {
			return ErrNotOrganizer
		}
		if ev.Cancelled {
			return ErrAlreadyCancelled
		}
		t, err := ledger.GetTicket(tx, id, number)
		if err != nil {
			return err
		}
		if t.RefundedAt.Valid {
			return ErrTicketRefunded
		}
		if t.CheckedInAt.Valid {
			return ErrAlreadyCheckedIn
		}
		t.CheckedInAt = ledger.SomeTime(o.now)
		t.CheckInStaff = ledger.SomeParty(staff)
		return ledger.PutTicket(tx, t)
	})
}

// RefundTicket returns a ticket's price from the pool to its owner and
// reverses the sale. Only unused tickets can be refunded, before the event
// date and before profits are calculated.
func (e *Engine) RefundTicket(ctx context.Context, caller identity.ID, id ledger.EventID, number uint32) (uint64, error) {
	var price uint64
	fields := logrus.Fields{"event": id.Short(), "ticket": number}
	err := e.run(ctx, "refund_ticket", fields, func(tx ledger.Tx, o *op) error {
		if err := requireParty(caller); err != nil {
			return err
		}
		ev, err := ledger.GetEvent(tx, id)
		if err != nil {
			return err
		}
		t, err := ledger.GetTicket(tx, id, number)
		if err != nil {
			return err
		}
		if caller != t.Owner && caller != ev.Organizer {
			return ErrNotOrganizer
		}
		switch {
		case ev.Finalized:
			return ErrAlreadyFinalized
		case !o.now.Before(ev.EventDate):
			return ErrEventDatePassed
		case t.RefundedAt.Valid:
			return ErrTicketRefunded
		case t.CheckedInAt.Valid:
			return ErrAlreadyCheckedIn
		}
		pool, err := ledger.GetPool(tx, id)
		if err != nil {
			return err
		}
		if pool.Calculated {
			return ErrAlreadyCalculated
		}
		price = t.Price

		fromTickets, err := ledger.Sub(ev.RevenueFromTickets, price)
		if err != nil {
			return inconsistent(err)
		}
		revenue, err := ledger.Sub(pool.TotalRevenue, price)
		if err != nil {
			return inconsistent(err)
		}
		if pool.Balance < price || ev.TicketsSold == 0 {
			return fmt.Errorf("%w: balance %d, refund %d", ErrPoolShort, pool.Balance, price)
		}

		if _, err := o.transfer(pool.Account, t.Owner, price, "ticket refund"); err != nil {
			if errors.Is(err, transfer.ErrInsufficientBalance) {
				return inconsistent(err)
			}
			return err
		}

		t.RefundedAt = ledger.SomeTime(o.now)
		ev.TicketsSold--
		ev.RevenueFromTickets = fromTickets
		ev.UpdatedAt = o.now
		pool.TotalRevenue = revenue
		pool.Balance -= price

		if err := ledger.PutTicket(tx, t); err != nil {
			return err
		}
		if err := ledger.PutEvent(tx, ev); err != nil {
			return err
		}
		return ledger.PutPool(tx, pool)
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

// RecordOtherRevenue moves sponsorship or merchandise income into the pool.
func (e *Engine) RecordOtherRevenue(ctx context.Context, from identity.ID, id ledger.EventID, amount uint64, memo string) error {
	fields := logrus.Fields{"event": id.Short(), "from": from.Short()}
	return e.run(ctx, "record_other_revenue", fields, func(tx ledger.Tx, o *op) error {
		if err := requireParty(from); err != nil {
			return err
		}
		if amount == 0 {
			return fmt.Errorf("%w: zero revenue", ErrInvalidParams)
		}
		ev, err := ledger.GetEvent(tx, id)
		if err != nil {
			return err
		}
		switch {
		case ev.Finalized:
			return ErrAlreadyFinalized
		case ev.Cancelled:
			return ErrAlreadyCancelled
		case !ev.Funded:
			return ErrNotFunded
		}
		pool, err := ledger.GetPool(tx, id)
		if err != nil {
			return err
		}
		if pool.Calculated {
			return ErrAlreadyCalculated
		}
		other, err := ledger.Add(pool.OtherRevenue, amount)
		if err != nil {
			return err
		}
		balance, err := ledger.Add(pool.Balance, amount)
		if err != nil {
			return err
		}
		if _, err := ledger.Add(pool.TotalRevenue, other); err != nil {
			return err
		}

		if memo == "" {
			memo = "other revenue"
		}
		if _, err := o.transfer(from, pool.Account, amount, memo); err != nil {
			return err
		}
		pool.OtherRevenue = other
		pool.Balance = balance
		return ledger.PutPool(tx, pool)
	})
}

// saleOpen loads an event and pool that can accept ticket revenue.
func saleOpen(tx ledger.Tx, id ledger.EventID, o *op) (*ledger.Event, *ledger.ProfitPool, error) {
	ev, err := ledger.GetEvent(tx, id)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case ev.Finalized:
		return nil, nil, ErrAlreadyFinalized
	case ev.Cancelled:
		return nil, nil, ErrAlreadyCancelled
	case !ev.Funded:
		return nil, nil, ErrNotFunded
	case ev.Paused:
		return nil, nil, ErrEventPaused
	case !o.now.Before(ev.EventDate):
		return nil, nil, ErrEventDatePassed
	case ev.TicketsSold >= ev.MaxTickets:
		return nil, nil, ErrTicketsSoldOut
	}
	pool, err := ledger.GetPool(tx, id)
	if err != nil {
		return nil, nil, err
	}
	if pool.Calculated {
		return nil, nil, ErrAlreadyCalculated
	}
	return ev, pool, nil
}

// addTicketRevenue applies one sale to the event and pool counters.
func addTicketRevenue(ev *ledger.Event, pool *ledger.ProfitPool, price uint64) error {
	fromTickets, err := ledger.Add(ev.RevenueFromTickets, price)
	if err != nil {
		return err
	}
	revenue, err := ledger.Add(pool.TotalRevenue, price)
	if err != nil {
		return err
	}
	if _, err := ledger.Add(revenue, pool.OtherRevenue); err != nil {
		return err
	}
	balance, err := ledger.Add(pool.Balance, price)
	if err != nil {
		return err
	}
	ev.TicketsSold++
	ev.RevenueFromTickets = fromTickets
	pool.TotalRevenue = revenue
	pool.Balance = balance
	return nil
}
