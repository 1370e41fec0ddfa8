package engine

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/gatherfi-go/governance"
	"github.com/bitfsorg/gatherfi-go/ledger"
)

var (
	// ErrHalted indicates the engine stopped after a consistency violation.
	ErrHalted = errors.New("engine: halted after consistency violation")

	// ErrTransferFailed indicates the transfer collaborator rejected a movement.
	ErrTransferFailed = errors.New("engine: transfer failed")
)

// State violations.
var (
	ErrEventNotActive       = ledger.NewError(ledger.ErrStateViolation, "engine: event is not active")
	ErrEventPaused          = ledger.NewError(ledger.ErrStateViolation, "engine: event is paused")
	ErrNotPaused            = ledger.NewError(ledger.ErrStateViolation, "engine: event is not paused")
	ErrAlreadyCancelled     = ledger.NewError(ledger.ErrStateViolation, "engine: event is already cancelled")
	ErrCannotCancelFunded   = ledger.NewError(ledger.ErrStateViolation, "engine: cannot cancel funded event")
	ErrTargetReached        = ledger.NewError(ledger.ErrStateViolation, "engine: funding target already reached")
	ErrNotFunded            = ledger.NewError(ledger.ErrStateViolation, "engine: event is not funded")
	ErrNotFinalizable       = ledger.NewError(ledger.ErrStateViolation, "engine: distribution or refunds not complete")
	ErrEscrowLocked         = ledger.NewError(ledger.ErrStateViolation, "engine: escrow is locked")
	ErrBudgetNotApproved    = ledger.NewError(ledger.ErrStateViolation, "engine: budget not approved")
	ErrBudgetLocked         = ledger.NewError(ledger.ErrStateViolation, "engine: budget is locked")
	ErrBudgetPending        = ledger.NewError(ledger.ErrStateViolation, "engine: budget vote still pending")
	ErrVoteNotOpen          = ledger.NewError(ledger.ErrStateViolation, "engine: voting not open")
	ErrMilestoneVoteNeeded  = ledger.NewError(ledger.ErrStateViolation, "engine: milestone vote has not passed")
	ErrProfitsNotCalculated = ledger.NewError(ledger.ErrStateViolation, "engine: profits not calculated")
	ErrRefundNotAvailable   = ledger.NewError(ledger.ErrStateViolation, "engine: refunds not available")
	ErrTicketsSoldOut       = ledger.NewError(ledger.ErrStateViolation, "engine: tickets sold out")
	ErrNoProfits            = ledger.NewError(ledger.ErrStateViolation, "engine: no profits to distribute")
)

// Duplicate actions.
var (
	ErrAlreadyFinalized  = ledger.NewError(ledger.ErrAlreadyDone, "engine: event already finalized")
	ErrAlreadyPaused     = ledger.NewError(ledger.ErrAlreadyDone, "engine: event already paused")
	ErrAlreadyVoted      = ledger.NewError(ledger.ErrAlreadyDone, "engine: already voted")
	ErrVoteResolved      = ledger.NewError(ledger.ErrAlreadyDone, "engine: vote already resolved")
	ErrVoteAlreadyOpen   = ledger.NewError(ledger.ErrAlreadyDone, "engine: milestone vote already opened")
	ErrAlreadyReleased   = ledger.NewError(ledger.ErrAlreadyDone, "engine: milestone already released")
	ErrAlreadyRefunded   = ledger.NewError(ledger.ErrAlreadyDone, "engine: contribution already refunded")
	ErrProfitsClaimed    = ledger.NewError(ledger.ErrAlreadyDone, "engine: profits already claimed for contribution")
	ErrAlreadyClaimed    = ledger.NewError(ledger.ErrAlreadyDone, "engine: profits already claimed")
	ErrAlreadyCalculated = ledger.NewError(ledger.ErrAlreadyDone, "engine: profits already calculated")
	ErrFeesWithdrawn     = ledger.NewError(ledger.ErrAlreadyDone, "engine: fees already withdrawn")
	ErrAlreadyCheckedIn  = ledger.NewError(ledger.ErrAlreadyDone, "engine: ticket already checked in")
	ErrTicketRefunded    = ledger.NewError(ledger.ErrAlreadyDone, "engine: ticket already refunded")
	ErrItemPaid          = ledger.NewError(ledger.ErrAlreadyDone, "engine: budget item already paid")
)

// Authorization violations.
var (
	ErrNotOrganizer            = ledger.NewError(ledger.ErrUnauthorized, "engine: not event organizer")
	ErrNotPlatform             = ledger.NewError(ledger.ErrUnauthorized, "engine: not platform")
	ErrNotOrganizerOrPlatform  = ledger.NewError(ledger.ErrUnauthorized, "engine: not organizer or platform")
	ErrNotApprover             = ledger.NewError(ledger.ErrUnauthorized, "engine: not an escrow approver")
	ErrNotBacker               = ledger.NewError(ledger.ErrUnauthorized, "engine: not a backer")
	ErrInsufficientVotingPower = ledger.NewError(ledger.ErrUnauthorized, "engine: not enough voting power")
)

// Deadline violations.
var (
	ErrFundingClosed   = ledger.NewError(ledger.ErrDeadline, "engine: funding deadline passed")
	ErrVotingEnded     = ledger.NewError(ledger.ErrDeadline, "engine: voting period ended")
	ErrVotingStillOpen = ledger.NewError(ledger.ErrDeadline, "engine: voting period still open")
	ErrEventDatePassed = ledger.NewError(ledger.ErrDeadline, "engine: event date has passed")
	ErrEventNotOver    = ledger.NewError(ledger.ErrDeadline, "engine: event date has not passed")
)

// Insufficient funds.
var (
	ErrEscrowInsufficient     = ledger.NewError(ledger.ErrInsufficientFunds, "engine: amount exceeds escrow balance")
	ErrExceedsMilestone       = ledger.NewError(ledger.ErrInsufficientFunds, "engine: amount exceeds milestone amount")
	ErrMilestoneExceedsBudget = ledger.NewError(ledger.ErrInsufficientFunds, "engine: milestone amount exceeds budget")
	ErrBudgetExceedsEscrow    = ledger.NewError(ledger.ErrInsufficientFunds, "engine: budget exceeds escrowed total")
)

// Invalid parameters.
var (
	ErrInvalidParams            = ledger.NewError(ledger.ErrInvalidArgument, "engine: invalid parameters")
	ErrInsufficientContribution = ledger.NewError(ledger.ErrInvalidArgument, "engine: contribution below minimum")
	ErrInvalidTicketPrice       = ledger.NewError(ledger.ErrInvalidArgument, "engine: invalid ticket price")
	ErrPlatformFeeTooHigh       = ledger.NewError(ledger.ErrInvalidArgument, "engine: platform fee too high")
	ErrInvalidProfitShares      = ledger.NewError(ledger.ErrInvalidArgument, "engine: invalid profit distribution")
	ErrBudgetMismatch           = ledger.NewError(ledger.ErrInvalidArgument, "engine: budget items do not sum to total")
	ErrInvalidLocation          = ledger.NewError(ledger.ErrInvalidArgument, "engine: invalid event location")
	ErrNoPlatformAccount        = ledger.NewError(ledger.ErrInvalidArgument, "engine: platform fees configured without a platform account")
	ErrMilestoneNotFound        = ledger.NewError(ledger.ErrNotFound, "engine: milestone not found")
	ErrItemNotFound             = ledger.NewError(ledger.ErrNotFound, "engine: budget item not found")
)

// Consistency violations. Returning one of these halts the engine.
var (
	ErrEscrowShort = ledger.NewError(ledger.ErrConsistencyViolation, "engine: escrow balance below refund amount")
	ErrPoolShort   = ledger.NewError(ledger.ErrConsistencyViolation, "engine: pool balance below payout amount")
)

// voteError maps tally failures to engine errors.
func voteError(err error) error {
	switch {
	case errors.Is(err, governance.ErrVotingClosed):
		return fmt.Errorf("%w: %v", ErrVotingEnded, err)
	case errors.Is(err, governance.ErrVotingOpen):
		return ErrVotingStillOpen
	case errors.Is(err, governance.ErrResolved):
		return ErrVoteResolved
	case errors.Is(err, governance.ErrNoWeight):
		return ErrInsufficientVotingPower
	case errors.Is(err, governance.ErrNotOpen):
		return ErrVoteNotOpen
	case errors.Is(err, governance.ErrOverflow):
		return fmt.Errorf("%w: %v", ledger.ErrArithmeticOverflow, err)
	case errors.Is(err, governance.ErrInvalidQuorum):
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return err
}

// inconsistent marks an arithmetic failure on a path where it can only mean
// the ledger is already broken.
func inconsistent(err error) error {
	return fmt.Errorf("%w: %w", ledger.ErrConsistencyViolation, err)
}
