package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/gatherfi-go/ledger"
	"github.com/bitfsorg/gatherfi-go/ticket"
)

func TestSellTicket(t *testing.T) {
	h := newHarness(t)
	ev, _, _ := h.fundedEvent()
	buyer := party(0x30)
	h.deposit(buyer, 1_000_000)

	tests := []struct {
		typ   ticket.Type
		price uint64
	}{
		{ticket.Regular, 100_000},
		{ticket.VIP, 200_000},
		{ticket.EarlyBird, 80_000},
		{ticket.Student, 60_000},
	}
	var total uint64
	for i, tt := range tests {
		tk, err := h.eng.SellTicket(h.ctx, buyer, ev.ID, tt.typ)
		require.NoError(t, err, tt.typ.String())
		assert.Equal(t, uint32(i+1), tk.Number)
		assert.Equal(t, tt.price, tk.Price)
		assert.Equal(t, buyer, tk.Owner)
		total += tt.price
	}

	got := h.event(ev.ID)
	assert.Equal(t, uint32(4), got.TicketsSold)
	assert.Equal(t, total, got.RevenueFromTickets)
	pool := h.pool(ev.ID)
	assert.Equal(t, total, pool.TotalRevenue)
	assert.Equal(t, total, pool.Balance)
	assert.Equal(t, total, h.bank.Balance(ev.PoolAccount))
	assert.Equal(t, 1_000_000-total, h.bank.Balance(buyer))

	stored, err := h.eng.Ticket(h.ctx, ev.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ticket.VIP, stored.Type)
	assert.False(t, stored.CheckedInAt.Valid)
	h.requireAudit(ev.ID)
}

func TestSellTicket_Rejections(t *testing.T) {
	t.Run("not funded", func(t *testing.T) {
		h := newHarness(t)
		ev := h.createEvent(1_000_000)
		h.deposit(party(0x30), 100_000)
		_, err := h.eng.SellTicket(h.ctx, party(0x30), ev.ID, ticket.Regular)
		assert.ErrorIs(t, err, ErrNotFunded)
	})

	t.Run("sold out", func(t *testing.T) {
		h := newHarness(t)
		ev, _, _ := h.fundedEvent()
		capacity := uint32(1)
		_, err := h.eng.UpdateEvent(h.ctx, h.organizer, ev.ID, EventUpdate{MaxTickets: &capacity})
		require.NoError(t, err)
		h.deposit(party(0x30), 200_000)
		_, err = h.eng.SellTicket(h.ctx, party(0x30), ev.ID, ticket.Regular)
		require.NoError(t, err)
		_, err = h.eng.SellTicket(h.ctx, party(0x30), ev.ID, ticket.Regular)
		assert.ErrorIs(t, err, ErrTicketsSoldOut)
		assert.Equal(t, uint64(100_000), h.bank.Balance(party(0x30)))
	})

	t.Run("event started", func(t *testing.T) {
		h := newHarness(t)
		ev, _, _ := h.fundedEvent()
		h.clock.Set(ev.EventDate)
		h.deposit(party(0x30), 100_000)
		_, err := h.eng.SellTicket(h.ctx, party(0x30), ev.ID, ticket.Regular)
		assert.ErrorIs(t, err, ErrEventDatePassed)
		assert.ErrorIs(t, err, ledger.ErrDeadline)
	})

	t.Run("paused", func(t *testing.T) {
		h := newHarness(t)
		ev, _, _ := h.fundedEvent()
		require.NoError(t, h.eng.PauseEvent(h.ctx, h.organizer, ev.ID))
		h.deposit(party(0x30), 100_000)
		_, err := h.eng.SellTicket(h.ctx, party(0x30), ev.ID, ticket.Regular)
		assert.ErrorIs(t, err, ErrEventPaused)
	})

	t.Run("unknown tier", func(t *testing.T) {
		h := newHarness(t)
		ev, _, _ := h.fundedEvent()
		h.deposit(party(0x30), 100_000)
		_, err := h.eng.SellTicket(h.ctx, party(0x30), ev.ID, ticket.Type(77))
		assert.ErrorIs(t, err, ErrInvalidTicketPrice)
	})

	t.Run("buyer short of funds", func(t *testing.T) {
		h := newHarness(t)
		ev, _, _ := h.fundedEvent()
		h.deposit(party(0x30), 100_000)
		_, err := h.eng.SellTicket(h.ctx, party(0x30), ev.ID, ticket.Table)
		assert.ErrorIs(t, err, ErrTransferFailed)
		assert.Equal(t, uint32(0), h.event(ev.ID).TicketsSold)
		_, err = h.eng.Ticket(h.ctx, ev.ID, 1)
		assert.ErrorIs(t, err, ledger.ErrTicketNotFound)
	})
}

func TestRecordTicketSale(t *testing.T) {
	h := newHarness(t)
	ev, _, _ := h.fundedEvent()

	assert.ErrorIs(t, h.eng.RecordTicketSale(h.ctx, party(0x09), ev.ID, 50_000), ErrNotOrganizerOrPlatform)
	assert.ErrorIs(t, h.eng.RecordTicketSale(h.ctx, h.organizer, ev.ID, 0), ErrInvalidTicketPrice)

	require.NoError(t, h.eng.RecordTicketSale(h.ctx, h.organizer, ev.ID, 50_000))
	require.NoError(t, h.eng.RecordTicketSale(h.ctx, h.platform, ev.ID, 75_000))

	got := h.event(ev.ID)
	assert.Equal(t, uint32(2), got.TicketsSold)
	assert.Equal(t, uint64(125_000), got.RevenueFromTickets)
	pool := h.pool(ev.ID)
	assert.Equal(t, uint64(125_000), pool.TotalRevenue)
	assert.Equal(t, uint64(125_000), pool.Balance)
}

func TestCheckIn(t *testing.T) {
	h := newHarness(t)
	ev, _, _ := h.fundedEvent()
	buyer := party(0x30)
	h.deposit(buyer, 100_000)
	tk, err := h.eng.SellTicket(h.ctx, buyer, ev.ID, ticket.Regular)
	require.NoError(t, err)

	assert.ErrorIs(t, h.eng.CheckIn(h.ctx, buyer, ev.ID, tk.Number), ErrNotOrganizer)
	assert.ErrorIs(t, h.eng.CheckIn(h.ctx, h.organizer, ev.ID, 99), ledger.ErrTicketNotFound)

	h.clock.Set(ev.EventDate.Add(time.Hour))
	require.NoError(t, h.eng.CheckIn(h.ctx, h.organizer, ev.ID, tk.Number))
	stored, err := h.eng.Ticket(h.ctx, ev.ID, tk.Number)
	require.NoError(t, err)
	at, ok := stored.CheckedInAt.Get()
	assert.True(t, ok)
	assert.True(t, at.Equal(ev.EventDate.Add(time.Hour)))
	staff, ok := stored.CheckInStaff.Get()
	assert.True(t, ok)
	assert.Equal(t, h.organizer, staff)

	assert.ErrorIs(t, h.eng.CheckIn(h.ctx, h.organizer, ev.ID, tk.Number), ErrAlreadyCheckedIn)
}

func TestRecordOtherRevenue(t *testing.T) {
	h := newHarness(t)
	ev, _, _ := h.fundedEvent()
	sponsor := party(0x40)
	h.deposit(sponsor, 300_000)

	require.NoError(t, h.eng.RecordOtherRevenue(h.ctx, sponsor, ev.ID, 300_000, "sponsorship"))
	pool := h.pool(ev.ID)
	assert.Equal(t, uint64(300_000), pool.OtherRevenue)
	assert.Equal(t, uint64(300_000), pool.Balance)
	assert.Equal(t, uint64(300_000), h.bank.Balance(ev.PoolAccount))

	assert.ErrorIs(t, h.eng.RecordOtherRevenue(h.ctx, sponsor, ev.ID, 0, ""), ErrInvalidParams)
	h.requireAudit(ev.ID)
}

func TestRefundTicket(t *testing.T) {
	h := newHarness(t)
	ev, _, _ := h.fundedEvent()
	buyer := party(0x30)
	h.deposit(buyer, 300_000)
	kept, err := h.eng.SellTicket(h.ctx, buyer, ev.ID, ticket.Regular)
	require.NoError(t, err)
	tk, err := h.eng.SellTicket(h.ctx, buyer, ev.ID, ticket.VIP)
	require.NoError(t, err)

	_, err = h.eng.RefundTicket(h.ctx, party(0x31), ev.ID, tk.Number)
	assert.ErrorIs(t, err, ErrNotOrganizer)
	_, err = h.eng.RefundTicket(h.ctx, buyer, ev.ID, 99)
	assert.ErrorIs(t, err, ledger.ErrTicketNotFound)

	amount, err := h.eng.RefundTicket(h.ctx, buyer, ev.ID, tk.Number)
	require.NoError(t, err)
	assert.Equal(t, uint64(200_000), amount)

	got := h.event(ev.ID)
	assert.Equal(t, uint32(1), got.TicketsSold)
	assert.Equal(t, kept.Price, got.RevenueFromTickets)
	pool := h.pool(ev.ID)
	assert.Equal(t, kept.Price, pool.TotalRevenue)
	assert.Equal(t, kept.Price, pool.Balance)
	assert.Equal(t, kept.Price, h.bank.Balance(ev.PoolAccount))
	assert.Equal(t, 300_000-kept.Price, h.bank.Balance(buyer))

	stored, err := h.eng.Ticket(h.ctx, ev.ID, tk.Number)
	require.NoError(t, err)
	assert.True(t, stored.RefundedAt.Valid)
	h.requireAudit(ev.ID)

	_, err = h.eng.RefundTicket(h.ctx, buyer, ev.ID, tk.Number)
	assert.ErrorIs(t, err, ErrTicketRefunded)
	assert.ErrorIs(t, h.eng.CheckIn(h.ctx, h.organizer, ev.ID, tk.Number), ErrTicketRefunded)
}

func TestRefundTicket_Rejections(t *testing.T) {
	t.Run("checked in", func(t *testing.T) {
		h := newHarness(t)
		ev, _, _ := h.fundedEvent()
		buyer := party(0x30)
		h.deposit(buyer, 100_000)
		tk, err := h.eng.SellTicket(h.ctx, buyer, ev.ID, ticket.Regular)
		require.NoError(t, err)
		require.NoError(t, h.eng.CheckIn(h.ctx, h.organizer, ev.ID, tk.Number))

		_, err = h.eng.RefundTicket(h.ctx, h.organizer, ev.ID, tk.Number)
		assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
		assert.Equal(t, uint32(1), h.event(ev.ID).TicketsSold)
	})

	t.Run("after event date", func(t *testing.T) {
		h := newHarness(t)
		ev, _, _ := h.fundedEvent()
		buyer := party(0x30)
		h.deposit(buyer, 100_000)
		tk, err := h.eng.SellTicket(h.ctx, buyer, ev.ID, ticket.Regular)
		require.NoError(t, err)

		h.clock.Set(ev.EventDate)
		_, err = h.eng.RefundTicket(h.ctx, buyer, ev.ID, tk.Number)
		assert.ErrorIs(t, err, ErrEventDatePassed)

		h.afterEvent(ev)
		_, err = h.eng.CalculateProfits(h.ctx, h.organizer, ev.ID)
		require.NoError(t, err)
		_, err = h.eng.RefundTicket(h.ctx, buyer, ev.ID, tk.Number)
		assert.ErrorIs(t, err, ErrEventDatePassed)
		assert.Equal(t, tk.Price, h.pool(ev.ID).TotalRevenue)
		h.requireAudit(ev.ID)
	})
}
