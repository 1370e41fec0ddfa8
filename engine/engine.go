// Package engine implements the fund lifecycle of community-funded events:
// contribution intake into escrow, budget and milestone governance,
// milestone-gated release, ticket revenue, profit calculation and
// distribution, and the refund path.
//
// Every mutating operation runs inside one store transaction. All
// preconditions are checked and every new record value is computed before
// the single transfer the operation needs is executed; records are written
// only after the transfer succeeds. A failed check or transfer leaves the
// ledger untouched.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/gatherfi-go/config"
	"github.com/bitfsorg/gatherfi-go/governance"
	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
	"github.com/bitfsorg/gatherfi-go/logging"
	"github.com/bitfsorg/gatherfi-go/revshare"
	"github.com/bitfsorg/gatherfi-go/transfer"
)

// Clock supplies the authoritative current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// LocationValidator checks an event location string.
type LocationValidator interface {
	ValidateLocation(ctx context.Context, location string) error
}

// Params are the economic and timing rules applied to new events.
type Params struct {
	Platform              identity.ID
	PlatformFeeBps        uint16
	MaxFeeBps             uint16
	Shares                revshare.Shares
	QuorumBps             uint16
	MinContribution       uint64
	FundingWindow         time.Duration
	BudgetVotingWindow    time.Duration
	MilestoneVotingWindow time.Duration
	VotingCutoff          time.Duration
	MilestonePolicy       governance.Policy
}

// ParamsFromConfig converts validated configuration into engine parameters.
// The platform account may be given as an identifier or a public key.
func ParamsFromConfig(cfg config.Config) (Params, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return Params{}, err
	}
	var platform identity.ID
	if cfg.PlatformAccount != "" {
		var err error
		if platform, err = identity.ParseParty(cfg.PlatformAccount); err != nil {
			return Params{}, err
		}
	}
	policy, err := governance.ParsePolicy(cfg.MilestoneVotePolicy)
	if err != nil {
		return Params{}, err
	}
	return Params{
		Platform:       platform,
		PlatformFeeBps: cfg.PlatformFeeBps,
		MaxFeeBps:      cfg.MaxFeeBps,
		Shares: revshare.Shares{
			Backer:    cfg.BackerShareBps,
			Organizer: cfg.OrganizerShareBps,
			Platform:  cfg.PlatformShareBps,
		},
		QuorumBps:             cfg.QuorumBps,
		MinContribution:       cfg.MinContribution,
		FundingWindow:         cfg.FundingWindow,
		BudgetVotingWindow:    cfg.BudgetVotingWindow,
		MilestoneVotingWindow: cfg.MilestoneVotingWindow,
		VotingCutoff:          cfg.VotingCutoff,
		MilestonePolicy:       policy,
	}, nil
}

// DefaultParams returns the default rules with the given platform account.
func DefaultParams(platform identity.ID) Params {
	p, err := ParamsFromConfig(config.DefaultConfig())
	if err != nil {
		panic("engine: default config invalid: " + err.Error())
	}
	p.Platform = platform
	return p
}

// Engine executes ledger operations against a store and a transfer service.
type Engine struct {
	store     ledger.Store
	bank      transfer.Service
	params    Params
	clock     Clock
	log       *logrus.Logger
	locations LocationValidator

	halted     atomic.Bool
	haltMu     sync.Mutex
	haltReason error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option { return func(e *Engine) { e.log = l } }

// WithLocationValidator sets the collaborator that checks event locations.
func WithLocationValidator(v LocationValidator) Option {
	return func(e *Engine) { e.locations = v }
}

// New creates an engine.
func New(store ledger.Store, bank transfer.Service, params Params, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		bank:   bank,
		params: params,
		clock:  systemClock{},
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the engine's rules.
func (e *Engine) Params() Params { return e.params }

// Halted reports whether the engine stopped after a consistency violation,
// and the violation that caused it.
func (e *Engine) Halted() (bool, error) {
	if !e.halted.Load() {
		return false, nil
	}
	e.haltMu.Lock()
	defer e.haltMu.Unlock()
	return true, e.haltReason
}

func (e *Engine) halt(entry *logrus.Entry, err error) {
	e.haltMu.Lock()
	if e.haltReason == nil {
		e.haltReason = err
	}
	e.haltMu.Unlock()
	e.halted.Store(true)
	entry.WithError(err).WithField(logging.FieldAlert, true).Error("consistency violation, engine halted")
}

// op carries per-operation state through a transaction.
type op struct {
	ctx    context.Context
	engine *Engine
	name   string
	now    time.Time
	fields logrus.Fields
	moved  bool
}

// run executes fn in one update transaction and classifies the outcome.
func (e *Engine) run(ctx context.Context, name string, fields logrus.Fields, fn func(tx ledger.Tx, o *op) error) error {
	if e.halted.Load() {
		return ErrHalted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	o := &op{ctx: ctx, engine: e, name: name, now: e.clock.Now(), fields: fields}
	if o.fields == nil {
		o.fields = logrus.Fields{}
	}
	err := e.store.Update(func(tx ledger.Tx) error { return fn(tx, o) })
	entry := e.log.WithFields(o.fields).WithField("op", name)

	switch {
	case err == nil:
		entry.Info("committed")
		return nil
	case o.moved:
		err = fmt.Errorf("%w: transfer executed but ledger commit failed: %v", ledger.ErrConsistencyViolation, err)
		e.halt(entry, err)
		return err
	case errors.Is(err, ledger.ErrConsistencyViolation):
		e.halt(entry, err)
		return err
	default:
		entry.WithError(err).Debug("rejected")
		return err
	}
}

// view runs fn in a read-only transaction.
func (e *Engine) view(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.store.View(fn)
}

// transfer executes the operation's single transfer. It returns the
// reference so records can point at the movement that backs them.
func (o *op) transfer(from, to identity.ID, amount uint64, memo string) (uuid.UUID, error) {
	if o.moved {
		return uuid.Nil, fmt.Errorf("%w: second transfer in %s", ledger.ErrConsistencyViolation, o.name)
	}
	req := transfer.Request{Reference: uuid.New(), From: from, To: to, Amount: amount, Memo: memo}
	if err := o.engine.bank.Transfer(o.ctx, req); err != nil {
		if errors.Is(err, transfer.ErrInsufficientBalance) {
			return uuid.Nil, fmt.Errorf("%w: %w: %w", ErrTransferFailed, ledger.ErrInsufficientFunds, err)
		}
		return uuid.Nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	o.moved = true
	o.fields["transfer"] = req.Reference.String()
	o.fields["amount"] = amount
	return req.Reference, nil
}

func requireParty(id identity.ID) error {
	if id.IsZero() {
		return fmt.Errorf("%w: zero party", ErrInvalidParams)
	}
	return nil
}
