package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bitfsorg/gatherfi-go/governance"
	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/revshare"
	"github.com/bitfsorg/gatherfi-go/ticket"
)

// EventID identifies an event: SHA256(organizer || sequence).
type EventID [32]byte

// NewEventID derives the id of the organizer's seq-th event.
func NewEventID(organizer identity.ID, seq uint64) EventID {
	var buf [identity.Size + 8]byte
	copy(buf[:], organizer[:])
	binary.BigEndian.PutUint64(buf[identity.Size:], seq)
	return EventID(sha256.Sum256(buf[:]))
}

// ParseEventID decodes a 64-character hex event id.
func ParseEventID(s string) (EventID, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(EventID{}) {
		return EventID{}, fmt.Errorf("%w: %q", ErrInvalidEventID, s)
	}
	var id EventID
	copy(id[:], b)
	return id, nil
}

func (id EventID) String() string { return hex.EncodeToString(id[:]) }

// Short returns the first four bytes in hex, for log fields.
func (id EventID) Short() string { return hex.EncodeToString(id[:4]) }

// OptionalTime is a timestamp that may be absent. The zero value is absent.
type OptionalTime struct {
	At    time.Time
	Valid bool
}

// SomeTime returns a present timestamp.
func SomeTime(t time.Time) OptionalTime { return OptionalTime{At: t, Valid: true} }

// Get returns the timestamp and whether it is present.
func (o OptionalTime) Get() (time.Time, bool) { return o.At, o.Valid }

// OptionalParty is a party identifier that may be absent.
type OptionalParty struct {
	ID    identity.ID
	Valid bool
}

// SomeParty returns a present party.
func SomeParty(id identity.ID) OptionalParty { return OptionalParty{ID: id, Valid: true} }

// Get returns the party and whether it is present.
func (o OptionalParty) Get() (identity.ID, bool) { return o.ID, o.Valid }

// Status is the event's position in the fund lifecycle. Paused is tracked
// separately and does not change it.
type Status uint8

const (
	StatusActive Status = iota
	StatusFunded
	StatusExpired
	StatusCancelled
	StatusFinalized
)

var statusNames = [...]string{"active", "funded", "expired", "cancelled", "finalized"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Event is the root record of a funded initiative.
type Event struct {
	ID          EventID
	Organizer   identity.ID
	Name        string
	Description string
	Category    EventCategory
	Location    string

	TargetAmount    uint64
	AmountRaised    uint64
	MinContribution uint64

	TicketPrice        uint64
	TicketsSold        uint32
	MaxTickets         uint32
	RevenueFromTickets uint64

	EventDate       time.Time
	FundingDeadline time.Time
	VotingEndsAt    time.Time

	Active    bool
	Funded    bool
	Cancelled bool
	Paused    bool
	Finalized bool
	FundedAt  OptionalTime

	TotalBackers uint32
	TotalVotes   uint64
	VotesFor     uint64
	VotesAgainst uint64

	EscrowAccount identity.ID
	PoolAccount   identity.ID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status derives the lifecycle state at now.
func (e *Event) Status(now time.Time) Status {
	switch {
	case e.Finalized:
		return StatusFinalized
	case e.Cancelled:
		return StatusCancelled
	case e.Funded:
		return StatusFunded
	case !now.Before(e.FundingDeadline):
		return StatusExpired
	default:
		return StatusActive
	}
}

// RefundOpen reports whether contributions may be refunded at now: the
// event was cancelled, or the deadline passed without reaching the target.
func (e *Event) RefundOpen(now time.Time) bool {
	if e.Cancelled {
		return true
	}
	return !e.Funded && !now.Before(e.FundingDeadline)
}

// Contribution is one contributor's cumulative pledge to an event.
type Contribution struct {
	Event          EventID
	Contributor    identity.ID
	Amount         uint64
	VotingPower    uint64
	ClaimedProfits uint64
	ClaimedRefund  bool
	RefundedAt     OptionalTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Recompute derives voting power from the amount. A refunded contribution
// carries no power.
func (c *Contribution) Recompute() {
	if c.ClaimedRefund {
		c.VotingPower = 0
		return
	}
	c.VotingPower = c.Amount
}

// Milestone is one scheduled release point in an escrow.
type Milestone struct {
	Index          uint16
	Description    string
	Amount         uint64
	DueDate        time.Time
	RequiresVote   bool
	Released       bool
	ReleasedAmount uint64
	ReleasedAt     OptionalTime
	ReleasedBy     OptionalParty
	// VoteRound counts milestone votes opened; a rejected vote may be
	// reopened under the next round.
	VoteRound uint16
	Vote      governance.Tally
}

// Withdrawn reports whether the milestone's last vote was rejected and it
// has not been released. A withdrawn milestone does not count against the
// budget until its vote is reopened.
func (m *Milestone) Withdrawn() bool {
	return !m.Released && m.Vote.Rejected()
}

// Escrow is the custody balance of an event's contributions.
type Escrow struct {
	Event            EventID
	Account          identity.ID
	TotalAmount      uint64
	ReleasedAmount   uint64
	Balance          uint64
	RefundedAmount   uint64
	CurrentMilestone uint16
	Milestones       []Milestone
	Locked           bool
	RequiresApproval bool
	Approvers        []identity.ID
	ApprovalsNeeded  uint8
	CreatedAt        time.Time
}

// IsApprover reports whether id may release from this escrow.
func (e *Escrow) IsApprover(id identity.ID) bool {
	for _, a := range e.Approvers {
		if a == id {
			return true
		}
	}
	return false
}

// Milestone returns the milestone at index, or nil.
func (e *Escrow) Milestone(index uint16) *Milestone {
	if int(index) >= len(e.Milestones) {
		return nil
	}
	return &e.Milestones[index]
}

// AdvanceCurrent moves CurrentMilestone past every contiguous released
// milestone. It never moves backward.
func (e *Escrow) AdvanceCurrent() {
	for int(e.CurrentMilestone) < len(e.Milestones) && e.Milestones[e.CurrentMilestone].Released {
		e.CurrentMilestone++
	}
}

// ScheduledAmount returns the sum of all milestone amounts, excluding
// withdrawn milestones.
func (e *Escrow) ScheduledAmount() (uint64, error) {
	var total uint64
	for i := range e.Milestones {
		m := &e.Milestones[i]
		if m.Withdrawn() {
			continue
		}
		var err error
		if total, err = Add(total, m.Amount); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// BudgetItem is one line of a spending plan.
type BudgetItem struct {
	Name        string
	Description string
	Vendor      string
	Amount      uint64
	Category    BudgetCategory
	Paid        bool
	PaidAt      OptionalTime
}

// Budget is the organizer's spending plan and its approval vote.
type Budget struct {
	Event           EventID
	Organizer       identity.ID
	Round           uint32
	Items           []BudgetItem
	TotalAmount     uint64
	AmountSpent     uint64
	AmountRemaining uint64
	Tally           governance.Tally
	Locked          bool
	Completed       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Approved reports whether the budget vote passed.
func (b *Budget) Approved() bool { return b.Tally.Approved }

// VoteSubject distinguishes budget votes from milestone votes.
type VoteSubject uint8

const (
	SubjectBudget VoteSubject = iota + 1
	SubjectMilestone
)

// Vote is one voter's recorded ballot. Weight is frozen at cast time.
type Vote struct {
	Event   EventID
	Voter   identity.ID
	Subject VoteSubject
	// Round is the budget round, or MilestoneRound(index, vote round).
	Round   uint32
	Approve bool
	Weight  uint64
	VotedAt time.Time
}

// MilestoneRound packs a milestone index and its vote round into the
// round slot of a ballot key.
func MilestoneRound(index, voteRound uint16) uint32 {
	return uint32(index)<<16 | uint32(voteRound)
}

// ProfitPool holds event revenue and its computed distribution.
type ProfitPool struct {
	Event          EventID
	Account        identity.ID
	TotalRevenue   uint64
	OtherRevenue   uint64
	TotalExpenses  uint64
	PlatformFeeBps uint16
	Shares         revshare.Shares

	// Snapshot taken by profit calculation.
	Split            revshare.Result
	TotalContributed uint64
	Calculated       bool
	Distributed      bool
	DistributionDate OptionalTime

	TotalBackers     uint32
	BackersPaid      uint32
	BackerClaimed    uint64
	OrganizerClaimed bool
	FeesWithdrawn    bool

	// Balance is value currently held in the pool custody account.
	Balance uint64
	PaidOut uint64

	CreatedAt time.Time
}

// RevenueIn returns total inflow to the pool.
func (p *ProfitPool) RevenueIn() (uint64, error) {
	return Add(p.TotalRevenue, p.OtherRevenue)
}

// ClaimRole is the stakeholder class of a profit claim.
type ClaimRole uint8

const (
	RoleBacker ClaimRole = iota + 1
	RoleOrganizer
	RolePlatform
)

func (r ClaimRole) String() string {
	switch r {
	case RoleBacker:
		return "backer"
	case RoleOrganizer:
		return "organizer"
	case RolePlatform:
		return "platform"
	}
	return fmt.Sprintf("ClaimRole(%d)", uint8(r))
}

// ProfitClaim is the proof that a stakeholder was paid once.
type ProfitClaim struct {
	ID        uuid.UUID
	Event     EventID
	Claimant  identity.ID
	Role      ClaimRole
	Amount    uint64
	ClaimedAt time.Time
}

// Ticket is the ledger's view of one sold ticket.
type Ticket struct {
	Event        EventID
	Number       uint32
	Type         ticket.Type
	Owner        identity.ID
	Price        uint64
	PurchasedAt  time.Time
	CheckedInAt  OptionalTime
	CheckInStaff OptionalParty
	RefundedAt   OptionalTime
}

// Sequence is a monotonically increasing counter scoped to one key.
type Sequence struct {
	Count uint64
}

// Next allocates the next value, starting at 1.
func (s *Sequence) Next() (uint64, error) {
	n, err := Add(s.Count, 1)
	if err != nil {
		return 0, err
	}
	s.Count = n
	return n, nil
}
