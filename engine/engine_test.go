package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/gatherfi-go/config"
	"github.com/bitfsorg/gatherfi-go/governance"
	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
	"github.com/bitfsorg/gatherfi-go/logging"
	"github.com/bitfsorg/gatherfi-go/revshare"
	"github.com/bitfsorg/gatherfi-go/transfer"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testEventLead is how far ahead of the clock test events are scheduled.
const testEventLead = 60 * 24 * time.Hour

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func party(seed byte) identity.ID {
	var id identity.ID
	for i := range id {
		id[i] = seed
	}
	return id
}

type harness struct {
	t         *testing.T
	ctx       context.Context
	clock     *fakeClock
	bank      *transfer.Bank
	store     ledger.Store
	eng       *Engine
	hook      *logtest.Hook
	organizer identity.ID
	platform  identity.ID
}

func newHarness(t *testing.T, tweak ...func(*Params)) *harness {
	return newHarnessWithStore(t, ledger.NewMemStore(), tweak...)
}

func newHarnessWithStore(t *testing.T, store ledger.Store, tweak ...func(*Params)) *harness {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		t:         t,
		ctx:       context.Background(),
		clock:     &fakeClock{now: testStart},
		bank:      transfer.NewBank(),
		store:     store,
		hook:      hook,
		organizer: party(0xA0),
		platform:  party(0xF0),
	}
	params := DefaultParams(h.platform)
	params.MinContribution = 100_000
	for _, f := range tweak {
		f(&params)
	}
	h.eng = New(store, h.bank, params, WithClock(h.clock), WithLogger(logger))
	return h
}

func (h *harness) deposit(who identity.ID, amount uint64) {
	h.t.Helper()
	require.NoError(h.t, h.bank.Deposit(who, amount))
}

func (h *harness) createEvent(target uint64) *ledger.Event {
	h.t.Helper()
	ev, err := h.eng.CreateEvent(h.ctx, h.organizer, EventParams{
		Name:         "Lekki Owambe",
		Category:     ledger.CategoryOwambe,
		Location:     "Lagos",
		TargetAmount: target,
		TicketPrice:  100_000,
		MaxTickets:   100,
		EventDate:    h.clock.Now().Add(testEventLead),
	})
	require.NoError(h.t, err)
	return ev
}

func (h *harness) contribute(who identity.ID, id ledger.EventID, amount uint64) *ledger.Contribution {
	h.t.Helper()
	h.deposit(who, amount)
	c, err := h.eng.Contribute(h.ctx, who, id, amount)
	require.NoError(h.t, err)
	return c
}

func (h *harness) event(id ledger.EventID) *ledger.Event {
	h.t.Helper()
	ev, err := h.eng.Event(h.ctx, id)
	require.NoError(h.t, err)
	return ev
}

func (h *harness) escrow(id ledger.EventID) *ledger.Escrow {
	h.t.Helper()
	esc, err := h.eng.Escrow(h.ctx, id)
	require.NoError(h.t, err)
	return esc
}

func (h *harness) pool(id ledger.EventID) *ledger.ProfitPool {
	h.t.Helper()
	p, err := h.eng.ProfitPool(h.ctx, id)
	require.NoError(h.t, err)
	return p
}

func (h *harness) requireAudit(id ledger.EventID) {
	h.t.Helper()
	r, err := h.eng.Audit(h.ctx, id)
	require.NoError(h.t, err)
	require.True(h.t, r.OK(), "audit violations: %v", r.Violations)
}

// fundedEvent creates an event with a 1,000,000 target funded by a backer
// with 200,000 and a backer with 800,000.
func (h *harness) fundedEvent() (ev *ledger.Event, small, large identity.ID) {
	h.t.Helper()
	ev = h.createEvent(1_000_000)
	small, large = party(0x01), party(0x02)
	h.contribute(small, ev.ID, 200_000)
	h.contribute(large, ev.ID, 800_000)
	require.True(h.t, h.event(ev.ID).Funded)
	return ev, small, large
}

// approveBudget submits a one-item budget and approves it with voter.
func (h *harness) approveBudget(id ledger.EventID, voter identity.ID, total uint64) {
	h.t.Helper()
	items := []ledger.BudgetItem{{Name: "Venue", Vendor: "Eko Hotel", Amount: total, Category: ledger.BudgetVenue}}
	_, err := h.eng.SubmitBudget(h.ctx, h.organizer, id, items, total)
	require.NoError(h.t, err)
	require.NoError(h.t, h.eng.VoteOnBudget(h.ctx, voter, id, true))
	b, err := h.eng.Budget(h.ctx, id)
	require.NoError(h.t, err)
	require.True(h.t, b.Approved(), "budget should be approved by quorum")
}

// failingStore fails every Put into one bucket.
type failingStore struct {
	ledger.Store
	bucket ledger.Bucket
}

func (s *failingStore) Update(fn func(tx ledger.Tx) error) error {
	return s.Store.Update(func(tx ledger.Tx) error {
		return fn(failingTx{Tx: tx, bucket: s.bucket})
	})
}

type failingTx struct {
	ledger.Tx
	bucket ledger.Bucket
}

func (t failingTx) Put(b ledger.Bucket, key, value []byte) error {
	if b == t.bucket {
		return errors.New("disk full")
	}
	return t.Tx.Put(b, key, value)
}

func TestParamsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PlatformAccount = party(0xF0).String()
	cfg.MilestoneVotePolicy = "always"

	p, err := ParamsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, party(0xF0), p.Platform)
	assert.Equal(t, governance.PolicyAlways, p.MilestonePolicy)
	assert.Equal(t, revshare.DefaultShares, p.Shares)
	assert.Equal(t, uint16(500), p.PlatformFeeBps)
	assert.Equal(t, 30*24*time.Hour, p.FundingWindow)
}

func TestParamsFromConfig_PlatformPublicKey(t *testing.T) {
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey()

	cfg := config.DefaultConfig()
	cfg.PlatformAccount = hex.EncodeToString(pub.Compressed())
	p, err := ParamsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, identity.FromPublicKey(pub), p.Platform)
}

func TestParamsFromConfig_EmptyPlatform(t *testing.T) {
	p, err := ParamsFromConfig(config.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, p.Platform.IsZero())
}

func TestParamsFromConfig_Invalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BackerShareBps = 9000
	_, err := ParamsFromConfig(cfg)
	assert.Error(t, err)
}

func TestEngine_HaltsWhenCommitFailsAfterTransfer(t *testing.T) {
	store := &failingStore{Store: ledger.NewMemStore(), bucket: ledger.BucketContributions}
	h := newHarnessWithStore(t, store)
	ev := h.createEvent(1_000_000)

	backer := party(0x01)
	h.deposit(backer, 300_000)
	_, err := h.eng.Contribute(h.ctx, backer, ev.ID, 300_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrConsistencyViolation)

	halted, reason := h.eng.Halted()
	assert.True(t, halted)
	assert.ErrorIs(t, reason, ledger.ErrConsistencyViolation)

	// The transfer happened; the ledger did not record it.
	assert.Equal(t, uint64(300_000), h.bank.Balance(ev.EscrowAccount))
	assert.Equal(t, uint64(0), h.event(ev.ID).AmountRaised)

	entry := h.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, true, entry.Data[logging.FieldAlert])
	assert.Equal(t, "contribute", entry.Data["op"])

	_, err = h.eng.Contribute(h.ctx, backer, ev.ID, 100_000)
	assert.ErrorIs(t, err, ErrHalted)
	_, err = h.eng.CreateEvent(h.ctx, h.organizer, EventParams{})
	assert.ErrorIs(t, err, ErrHalted)
}

func TestEngine_TransferFailureLeavesLedgerUntouched(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(1_000_000)

	backer := party(0x01)
	h.deposit(backer, 50_000)
	_, err := h.eng.Contribute(h.ctx, backer, ev.ID, 200_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, ledger.ErrInsufficientFunds, ledger.KindOf(err))

	halted, _ := h.eng.Halted()
	assert.False(t, halted)
	_, err = h.eng.Contribution(h.ctx, ev.ID, backer)
	assert.ErrorIs(t, err, ledger.ErrContributionNotFound)
	assert.Equal(t, uint64(0), h.escrow(ev.ID).TotalAmount)
	assert.Equal(t, uint32(0), h.event(ev.ID).TotalBackers)
	h.requireAudit(ev.ID)
}

func TestEngine_MockTransferError(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(1_000_000)

	calls := 0
	mock := &transfer.MockService{
		TransferFn: func(ctx context.Context, req transfer.Request) error {
			calls++
			return errors.New("rail offline")
		},
	}
	eng := New(h.store, mock, h.eng.Params(), WithClock(h.clock))
	_, err := eng.Contribute(h.ctx, party(0x01), ev.ID, 200_000)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Nil(t, ledger.KindOf(err))
	assert.Equal(t, 1, calls, "a failed transfer is never retried")
}

func TestEngine_CanceledContext(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(1_000_000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.deposit(party(0x01), 200_000)
	_, err := h.eng.Contribute(ctx, party(0x01), ev.ID, 200_000)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = h.eng.Event(ctx, ev.ID)
	assert.ErrorIs(t, err, context.Canceled)
}

type locationFunc func(ctx context.Context, location string) error

func (f locationFunc) ValidateLocation(ctx context.Context, location string) error {
	return f(ctx, location)
}

func TestEngine_LocationValidator(t *testing.T) {
	h := newHarness(t)
	eng := New(h.store, h.bank, h.eng.Params(), WithClock(h.clock),
		WithLocationValidator(locationFunc(func(ctx context.Context, location string) error {
			if location != "Lagos" && location != "Abuja" {
				return errors.New("unknown city")
			}
			return nil
		})))

	p := EventParams{
		Name:         "Campus Jam",
		Category:     ledger.CategoryCampusEvent,
		Location:     "Atlantis",
		TargetAmount: 1_000_000,
		TicketPrice:  10_000,
		MaxTickets:   10,
		EventDate:    testStart.Add(testEventLead),
	}
	_, err := eng.CreateEvent(h.ctx, h.organizer, p)
	assert.ErrorIs(t, err, ErrInvalidLocation)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	p.Location = "Abuja"
	_, err = eng.CreateEvent(h.ctx, h.organizer, p)
	assert.NoError(t, err)
}

func TestEngine_LogsCommitsAndRejections(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(1_000_000)

	entry := h.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "create_event", entry.Data["op"])
	assert.Equal(t, ev.ID.Short(), entry.Data["event"])

	_, err := h.eng.Contribute(h.ctx, party(0x01), ev.ID, 1)
	require.Error(t, err)
	entry = h.hook.LastEntry()
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "rejected", entry.Message)
}
