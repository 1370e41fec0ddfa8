package ledger

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/bitfsorg/gatherfi-go/identity"
)

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func get[T any](tx Tx, b Bucket, key []byte, notFound error) (*T, error) {
	data := tx.Get(b, key)
	if data == nil {
		return nil, notFound
	}
	var v T
	if err := decodeGob(data, &v); err != nil {
		return nil, fmt.Errorf("ledger: decode %s: %w", b, err)
	}
	return &v, nil
}

func put(tx Tx, b Bucket, key []byte, v interface{}) error {
	data, err := encodeGob(v)
	if err != nil {
		return fmt.Errorf("ledger: encode %s: %w", b, err)
	}
	return tx.Put(b, key, data)
}

func exists(tx Tx, b Bucket, key []byte) bool {
	return tx.Get(b, key) != nil
}

// GetEvent loads an event.
func GetEvent(tx Tx, id EventID) (*Event, error) {
	return get[Event](tx, BucketEvents, EventKey(id), ErrEventNotFound)
}

// PutEvent stores an event.
func PutEvent(tx Tx, e *Event) error {
	return put(tx, BucketEvents, EventKey(e.ID), e)
}

// ForEachEvent calls fn for every stored event in id order.
func ForEachEvent(tx Tx, fn func(*Event) error) error {
	return tx.ForEach(BucketEvents, nil, func(k, v []byte) error {
		var e Event
		if err := decodeGob(v, &e); err != nil {
			return fmt.Errorf("ledger: decode event: %w", err)
		}
		return fn(&e)
	})
}

// GetEscrow loads an event's escrow.
func GetEscrow(tx Tx, id EventID) (*Escrow, error) {
	return get[Escrow](tx, BucketEscrows, EventKey(id), ErrEscrowNotFound)
}

// PutEscrow stores an escrow.
func PutEscrow(tx Tx, e *Escrow) error {
	return put(tx, BucketEscrows, EventKey(e.Event), e)
}

// GetBudget loads an event's budget.
func GetBudget(tx Tx, id EventID) (*Budget, error) {
	return get[Budget](tx, BucketBudgets, EventKey(id), ErrBudgetNotFound)
}

// PutBudget stores a budget.
func PutBudget(tx Tx, b *Budget) error {
	return put(tx, BucketBudgets, EventKey(b.Event), b)
}

// GetPool loads an event's profit pool.
func GetPool(tx Tx, id EventID) (*ProfitPool, error) {
	return get[ProfitPool](tx, BucketPools, EventKey(id), ErrPoolNotFound)
}

// PutPool stores a profit pool.
func PutPool(tx Tx, p *ProfitPool) error {
	return put(tx, BucketPools, EventKey(p.Event), p)
}

// GetContribution loads a contributor's record.
func GetContribution(tx Tx, id EventID, contributor identity.ID) (*Contribution, error) {
	return get[Contribution](tx, BucketContributions, ContributionKey(id, contributor), ErrContributionNotFound)
}

// UpsertContribution returns the existing record for the key, or a new one
// with zeroed accumulators. created reports which.
func UpsertContribution(tx Tx, id EventID, contributor identity.ID) (c *Contribution, created bool, err error) {
	c, err = GetContribution(tx, id, contributor)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrContributionNotFound) {
		return nil, false, err
	}
	return &Contribution{Event: id, Contributor: contributor}, true, nil
}

// PutContribution stores a contribution.
func PutContribution(tx Tx, c *Contribution) error {
	return put(tx, BucketContributions, ContributionKey(c.Event, c.Contributor), c)
}

// ForEachContribution calls fn for every contribution to an event.
func ForEachContribution(tx Tx, id EventID, fn func(*Contribution) error) error {
	return tx.ForEach(BucketContributions, id[:], func(k, v []byte) error {
		var c Contribution
		if err := decodeGob(v, &c); err != nil {
			return fmt.Errorf("ledger: decode contribution: %w", err)
		}
		return fn(&c)
	})
}

func voteBucket(s VoteSubject) Bucket {
	if s == SubjectMilestone {
		return BucketMilestoneVotes
	}
	return BucketVotes
}

// GetVote loads a ballot.
func GetVote(tx Tx, s VoteSubject, id EventID, round uint32, voter identity.ID) (*Vote, error) {
	return get[Vote](tx, voteBucket(s), VoteKey(id, round, voter), ErrVoteNotFound)
}

// HasVote reports whether a ballot exists.
func HasVote(tx Tx, s VoteSubject, id EventID, round uint32, voter identity.ID) bool {
	return exists(tx, voteBucket(s), VoteKey(id, round, voter))
}

// PutVote stores a ballot.
func PutVote(tx Tx, v *Vote) error {
	return put(tx, voteBucket(v.Subject), VoteKey(v.Event, v.Round, v.Voter), v)
}

// GetClaim loads a profit claim.
func GetClaim(tx Tx, id EventID, role ClaimRole, claimant identity.ID) (*ProfitClaim, error) {
	return get[ProfitClaim](tx, BucketClaims, ClaimKey(id, role, claimant), ErrClaimNotFound)
}

// HasClaim reports whether a profit claim exists.
func HasClaim(tx Tx, id EventID, role ClaimRole, claimant identity.ID) bool {
	return exists(tx, BucketClaims, ClaimKey(id, role, claimant))
}

// PutClaim stores a profit claim.
func PutClaim(tx Tx, c *ProfitClaim) error {
	return put(tx, BucketClaims, ClaimKey(c.Event, c.Role, c.Claimant), c)
}

// ForEachClaim calls fn for every profit claim on an event.
func ForEachClaim(tx Tx, id EventID, fn func(*ProfitClaim) error) error {
	return tx.ForEach(BucketClaims, id[:], func(k, v []byte) error {
		var c ProfitClaim
		if err := decodeGob(v, &c); err != nil {
			return fmt.Errorf("ledger: decode claim: %w", err)
		}
		return fn(&c)
	})
}

// GetTicket loads a ticket.
func GetTicket(tx Tx, id EventID, number uint32) (*Ticket, error) {
	return get[Ticket](tx, BucketTickets, TicketKey(id, number), ErrTicketNotFound)
}

// PutTicket stores a ticket.
func PutTicket(tx Tx, t *Ticket) error {
	return put(tx, BucketTickets, TicketKey(t.Event, t.Number), t)
}

// NextSequence allocates the next value of the counter at key. The counter
// is created at zero on first use.
func NextSequence(tx Tx, key []byte) (uint64, error) {
	seq, err := get[Sequence](tx, BucketCounters, key, nil)
	if err != nil {
		return 0, err
	}
	if seq == nil {
		seq = &Sequence{}
	}
	n, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if err := put(tx, BucketCounters, key, seq); err != nil {
		return 0, err
	}
	return n, nil
}
