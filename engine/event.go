package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
)

// EventParams describe a new event.
type EventParams struct {
	Name        string
	Description string
	Category    ledger.EventCategory
	Location    string

	TargetAmount uint64
	TicketPrice  uint64
	MaxTickets   uint32
	EventDate    time.Time
}

// EventUpdate changes mutable event fields. Nil fields are left untouched.
type EventUpdate struct {
	Name        *string
	Description *string
	TicketPrice *uint64
	MaxTickets  *uint32
}

// CreateEvent registers an event with its escrow and profit pool.
func (e *Engine) CreateEvent(ctx context.Context, organizer identity.ID, p EventParams) (*ledger.Event, error) {
	if e.locations != nil {
		if err := e.locations.ValidateLocation(ctx, p.Location); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
		}
	}

	var ev *ledger.Event
	err := e.run(ctx, "create_event", logrus.Fields{"organizer": organizer.Short()}, func(tx ledger.Tx, o *op) error {
		if err := requireParty(organizer); err != nil {
			return err
		}
		switch {
		case p.Name == "":
			return fmt.Errorf("%w: empty name", ErrInvalidParams)
		case !p.Category.Valid():
			return fmt.Errorf("%w: category %d", ErrInvalidParams, p.Category)
		case p.TargetAmount == 0:
			return fmt.Errorf("%w: zero target", ErrInvalidParams)
		case p.TicketPrice == 0:
			return ErrInvalidTicketPrice
		case p.MaxTickets == 0:
			return fmt.Errorf("%w: zero ticket capacity", ErrInvalidParams)
		case !p.EventDate.After(o.now):
			return fmt.Errorf("%w: event date %s", ErrEventDatePassed, p.EventDate.Format(time.RFC3339))
		case e.params.PlatformFeeBps > e.params.MaxFeeBps:
			return ErrPlatformFeeTooHigh
		case e.params.Platform.IsZero() && (e.params.PlatformFeeBps > 0 || e.params.Shares.Platform > 0):
			// Nobody could withdraw the platform's cut, so the pool would
			// never finish distributing.
			return ErrNoPlatformAccount
		}
		if err := e.params.Shares.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfitShares, err)
		}

		seq, err := ledger.NextSequence(tx, ledger.EventSequenceKey(organizer))
		if err != nil {
			return err
		}
		id := ledger.NewEventID(organizer, seq)
		o.fields["event"] = id.Short()

		deadline := o.now.Add(e.params.FundingWindow)
		if deadline.After(p.EventDate) {
			deadline = p.EventDate
		}

		ev = &ledger.Event{
			ID:              id,
			Organizer:       organizer,
			Name:            p.Name,
			Description:     p.Description,
			Category:        p.Category,
			Location:        p.Location,
			TargetAmount:    p.TargetAmount,
			MinContribution: e.params.MinContribution,
			TicketPrice:     p.TicketPrice,
			MaxTickets:      p.MaxTickets,
			EventDate:       p.EventDate,
			FundingDeadline: deadline,
			VotingEndsAt:    p.EventDate.Add(-e.params.VotingCutoff),
			Active:          true,
			EscrowAccount:   identity.Custody(identity.EscrowCustody, id),
			PoolAccount:     identity.Custody(identity.PoolCustody, id),
			CreatedAt:       o.now,
			UpdatedAt:       o.now,
		}
		esc := &ledger.Escrow{
			Event:            id,
			Account:          ev.EscrowAccount,
			RequiresApproval: true,
			Approvers:        []identity.ID{organizer},
			ApprovalsNeeded:  1,
			CreatedAt:        o.now,
		}
		pool := &ledger.ProfitPool{
			Event:          id,
			Account:        ev.PoolAccount,
			PlatformFeeBps: e.params.PlatformFeeBps,
			Shares:         e.params.Shares,
			CreatedAt:      o.now,
		}

		if err := ledger.PutEvent(tx, ev); err != nil {
			return err
		}
		if err := ledger.PutEscrow(tx, esc); err != nil {
			return err
		}
		return ledger.PutPool(tx, pool)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// UpdateEvent edits descriptive and ticketing fields.
func (e *Engine) UpdateEvent(ctx context.Context, organizer identity.ID, id ledger.EventID, u EventUpdate) (*ledger.Event, error) {
	var ev *ledger.Event
	err := e.run(ctx, "update_event", eventFields(id), func(tx ledger.Tx, o *op) error {
		var err error
		if ev, err = e.organizerEvent(tx, organizer, id); err != nil {
			return err
		}
		if err := openForChanges(ev); err != nil {
			return err
		}
		if u.Name != nil && *u.Name == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidParams)
		}
		if u.TicketPrice != nil && *u.TicketPrice == 0 {
			return ErrInvalidTicketPrice
		}
		if u.MaxTickets != nil && *u.MaxTickets < ev.TicketsSold {
			return fmt.Errorf("%w: capacity %d below tickets sold %d", ErrInvalidParams, *u.MaxTickets, ev.TicketsSold)
		}

		if u.Name != nil {
			ev.Name = *u.Name
		}
		if u.Description != nil {
			ev.Description = *u.Description
		}
		if u.TicketPrice != nil {
			ev.TicketPrice = *u.TicketPrice
		}
		if u.MaxTickets != nil {
			ev.MaxTickets = *u.MaxTickets
		}
		ev.UpdatedAt = o.now
		return ledger.PutEvent(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// UpdateEventCategory recategorizes an event.
func (e *Engine) UpdateEventCategory(ctx context.Context, organizer identity.ID, id ledger.EventID, category ledger.EventCategory) error {
	return e.run(ctx, "update_event_category", eventFields(id), func(tx ledger.Tx, o *op) error {
		ev, err := e.organizerEvent(tx, organizer, id)
		if err != nil {
			return err
		}
		if err := openForChanges(ev); err != nil {
			return err
		}
		if !category.Valid() {
			return fmt.Errorf("%w: category %d", ErrInvalidParams, category)
		}
		ev.Category = category
		ev.UpdatedAt = o.now
		return ledger.PutEvent(tx, ev)
	})
}

// CancelEvent cancels an unfunded event and locks its escrow. Refunds
// become available immediately.
func (e *Engine) CancelEvent(ctx context.Context, organizer identity.ID, id ledger.EventID) error {
	return e.run(ctx, "cancel_event", eventFields(id), func(tx ledger.Tx, o *op) error {
		ev, err := e.organizerEvent(tx, organizer, id)
		if err != nil {
			return err
		}
		switch {
		case ev.Finalized:
			return ErrAlreadyFinalized
		case ev.Cancelled:
			return ErrAlreadyCancelled
		case ev.Funded:
			return ErrCannotCancelFunded
		case !ev.Active:
			return ErrEventNotActive
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}

		ev.Cancelled = true
		ev.Active = false
		ev.UpdatedAt = o.now
		esc.Locked = true
		if err := ledger.PutEvent(tx, ev); err != nil {
			return err
		}
		return ledger.PutEscrow(tx, esc)
	})
}

// PauseEvent suspends contributions, ticket sales and releases.
func (e *Engine) PauseEvent(ctx context.Context, caller identity.ID, id ledger.EventID) error {
	return e.setPaused(ctx, "pause_event", caller, id, true)
}

// ResumeEvent lifts a pause.
func (e *Engine) ResumeEvent(ctx context.Context, caller identity.ID, id ledger.EventID) error {
	return e.setPaused(ctx, "resume_event", caller, id, false)
}

func (e *Engine) setPaused(ctx context.Context, name string, caller identity.ID, id ledger.EventID, paused bool) error {
	return e.run(ctx, name, eventFields(id), func(tx ledger.Tx, o *op) error {
		ev, err := e.stewardEvent(tx, caller, id)
		if err != nil {
			return err
		}
		if err := openForChanges(ev); err != nil {
			return err
		}
		switch {
		case paused && ev.Paused:
			return ErrAlreadyPaused
		case !paused && !ev.Paused:
			return ErrNotPaused
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}

		ev.Paused = paused
		ev.UpdatedAt = o.now
		esc.Locked = paused
		if err := ledger.PutEvent(tx, ev); err != nil {
			return err
		}
		return ledger.PutEscrow(tx, esc)
	})
}

// FinalizeEvent closes an event once profits are fully distributed or
// every contribution has been refunded.
func (e *Engine) FinalizeEvent(ctx context.Context, caller identity.ID, id ledger.EventID) error {
	return e.run(ctx, "finalize_event", eventFields(id), func(tx ledger.Tx, o *op) error {
		ev, err := e.stewardEvent(tx, caller, id)
		if err != nil {
			return err
		}
		if ev.Finalized {
			return ErrAlreadyFinalized
		}
		esc, err := ledger.GetEscrow(tx, id)
		if err != nil {
			return err
		}
		pool, err := ledger.GetPool(tx, id)
		if err != nil {
			return err
		}
		refunded := ev.RefundOpen(o.now) && esc.TotalAmount == 0
		if !pool.Distributed && !refunded {
			return ErrNotFinalizable
		}

		ev.Finalized = true
		ev.Active = false
		ev.UpdatedAt = o.now
		esc.Locked = true
		if err := ledger.PutEvent(tx, ev); err != nil {
			return err
		}
		return ledger.PutEscrow(tx, esc)
	})
}

// Event returns an event record.
func (e *Engine) Event(ctx context.Context, id ledger.EventID) (*ledger.Event, error) {
	var ev *ledger.Event
	err := e.view(ctx, func(tx ledger.Tx) error {
		var err error
		ev, err = ledger.GetEvent(tx, id)
		return err
	})
	return ev, err
}

// Events returns every event in key order.
func (e *Engine) Events(ctx context.Context) ([]*ledger.Event, error) {
	var out []*ledger.Event
	err := e.view(ctx, func(tx ledger.Tx) error {
		return ledger.ForEachEvent(tx, func(ev *ledger.Event) error {
			out = append(out, ev)
			return nil
		})
	})
	return out, err
}

// Escrow returns an event's escrow record.
func (e *Engine) Escrow(ctx context.Context, id ledger.EventID) (*ledger.Escrow, error) {
	var esc *ledger.Escrow
	err := e.view(ctx, func(tx ledger.Tx) error {
		var err error
		esc, err = ledger.GetEscrow(tx, id)
		return err
	})
	return esc, err
}

// Budget returns an event's budget.
func (e *Engine) Budget(ctx context.Context, id ledger.EventID) (*ledger.Budget, error) {
	var b *ledger.Budget
	err := e.view(ctx, func(tx ledger.Tx) error {
		var err error
		b, err = ledger.GetBudget(tx, id)
		return err
	})
	return b, err
}

// ProfitPool returns an event's profit pool.
func (e *Engine) ProfitPool(ctx context.Context, id ledger.EventID) (*ledger.ProfitPool, error) {
	var p *ledger.ProfitPool
	err := e.view(ctx, func(tx ledger.Tx) error {
		var err error
		p, err = ledger.GetPool(tx, id)
		return err
	})
	return p, err
}

// Contribution returns one contributor's record.
func (e *Engine) Contribution(ctx context.Context, id ledger.EventID, contributor identity.ID) (*ledger.Contribution, error) {
	var c *ledger.Contribution
	err := e.view(ctx, func(tx ledger.Tx) error {
		var err error
		c, err = ledger.GetContribution(tx, id, contributor)
		return err
	})
	return c, err
}

// Ticket returns a sold ticket.
func (e *Engine) Ticket(ctx context.Context, id ledger.EventID, number uint32) (*ledger.Ticket, error) {
	var t *ledger.Ticket
	err := e.view(ctx, func(tx ledger.Tx) error {
		var err error
		t, err = ledger.GetTicket(tx, id, number)
		return err
	})
	return t, err
}

// Claims returns every profit claim recorded for an event.
func (e *Engine) Claims(ctx context.Context, id ledger.EventID) ([]*ledger.ProfitClaim, error) {
	var out []*ledger.ProfitClaim
	err := e.view(ctx, func(tx ledger.Tx) error {
		return ledger.ForEachClaim(tx, id, func(c *ledger.ProfitClaim) error {
			out = append(out, c)
			return nil
		})
	})
	return out, err
}

func eventFields(id ledger.EventID) logrus.Fields {
	return logrus.Fields{"event": id.Short()}
}

// organizerEvent loads an event and checks the caller organizes it.
func (e *Engine) organizerEvent(tx ledger.Tx, caller identity.ID, id ledger.EventID) (*ledger.Event, error) {
	if err := requireParty(caller); err != nil {
		return nil, err
	}
	ev, err := ledger.GetEvent(tx, id)
	if err != nil {
		return nil, err
	}
	if ev.Organizer != caller {
		return nil, ErrNotOrganizer
	}
	return ev, nil
}

// stewardEvent loads an event and checks the caller is its organizer or
// the platform.
func (e *Engine) stewardEvent(tx ledger.Tx, caller identity.ID, id ledger.EventID) (*ledger.Event, error) {
	if err := requireParty(caller); err != nil {
		return nil, err
	}
	ev, err := ledger.GetEvent(tx, id)
	if err != nil {
		return nil, err
	}
	if ev.Organizer != caller && e.params.Platform != caller {
		return nil, ErrNotOrganizerOrPlatform
	}
	return ev, nil
}

func openForChanges(ev *ledger.Event) error {
	switch {
	case ev.Finalized:
		return ErrAlreadyFinalized
	case ev.Cancelled:
		return ErrAlreadyCancelled
	case !ev.Active:
		return ErrEventNotActive
	}
	return nil
}
