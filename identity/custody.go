package identity

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// CustodyKind names a per-event custody account.
type CustodyKind string

const (
	// EscrowCustody holds contributions until milestone release or refund.
	EscrowCustody CustodyKind = "gatherfi-escrow"

	// PoolCustody holds ticket and other revenue until profit distribution.
	PoolCustody CustodyKind = "gatherfi-profit-pool"
)

// Custody derives the deterministic custody account for an event.
//
//	id = HKDF-SHA256(eventID, nil, kind)[:20]
//
// Distinct kinds never collide for the same event.
func Custody(kind CustodyKind, eventID [32]byte) ID {
	r := hkdf.New(sha256.New, eventID[:], nil, []byte(kind))
	var id ID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		// hkdf only fails past 255*HashLen bytes of output.
		panic("identity: hkdf read: " + err.Error())
	}
	return id
}
