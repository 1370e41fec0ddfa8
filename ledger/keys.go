package ledger

import (
	"encoding/binary"

	"github.com/bitfsorg/gatherfi-go/identity"
)

// Record keys are derived from (kind, event, [secondary]). The kind is the
// bucket; the event id leads every key so one event's records form a
// contiguous prefix.

// EventKey keys the event, escrow, budget, and pool records.
func EventKey(id EventID) []byte {
	return append([]byte(nil), id[:]...)
}

// ContributionKey keys a contributor's record for an event.
func ContributionKey(id EventID, contributor identity.ID) []byte {
	k := make([]byte, 0, len(id)+identity.Size)
	k = append(k, id[:]...)
	return append(k, contributor[:]...)
}

// VoteKey keys a ballot: event || round or index (4 bytes BE) || voter.
func VoteKey(id EventID, round uint32, voter identity.ID) []byte {
	k := make([]byte, 0, len(id)+4+identity.Size)
	k = append(k, id[:]...)
	k = binary.BigEndian.AppendUint32(k, round)
	return append(k, voter[:]...)
}

// ClaimKey keys a profit claim: event || role || claimant.
func ClaimKey(id EventID, role ClaimRole, claimant identity.ID) []byte {
	k := make([]byte, 0, len(id)+1+identity.Size)
	k = append(k, id[:]...)
	k = append(k, byte(role))
	return append(k, claimant[:]...)
}

// TicketKey keys a ticket by number.
func TicketKey(id EventID, number uint32) []byte {
	k := make([]byte, 0, len(id)+4)
	k = append(k, id[:]...)
	return binary.BigEndian.AppendUint32(k, number)
}

// EventSequenceKey scopes the event counter to one organizer.
func EventSequenceKey(organizer identity.ID) []byte {
	return append([]byte("event"), organizer[:]...)
}

// TicketSequenceKey scopes the ticket counter to one event.
func TicketSequenceKey(id EventID) []byte {
	return append([]byte("ticket"), id[:]...)
}
