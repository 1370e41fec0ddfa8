// Package identity defines party identifiers and the custody accounts the
// ledger moves value between.
//
// A party identifier is HASH160(compressed secp256k1 public key), the same
// 20-byte digest used for P2PKH addresses. Callers are trusted to supply a
// verified identity; nothing here checks signatures.
package identity

import (
	"encoding/hex"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

// Size is the length of an identifier in bytes.
const Size = 20

// ID identifies a contributor, organizer, platform, or custody account.
type ID [Size]byte

// Zero is the unset identifier.
var Zero ID

// FromPublicKey returns the identifier for a public key.
func FromPublicKey(pub *ec.PublicKey) ID {
	var id ID
	copy(id[:], bsvhash.Hash160(pub.Compressed()))
	return id
}

// ParsePublicKey decodes a hex-encoded public key (compressed or
// uncompressed) and returns its identifier.
func ParsePublicKey(hexStr string) (ID, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, err := ec.PublicKeyFromBytes(b)
	if err != nil {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return FromPublicKey(pub), nil
}

// Parse decodes a 40-character hex identifier.
func Parse(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != Size {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// ParseParty accepts either a 40-character hex identifier or a hex-encoded
// public key, which is reduced to its identifier.
func ParseParty(s string) (ID, error) {
	if len(s) == 2*Size {
		return Parse(s)
	}
	return ParsePublicKey(s)
}

// MustParse is like Parse but panics on error. Use only with constants.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether id is unset.
func (id ID) IsZero() bool { return id == Zero }

// String returns the lowercase hex encoding.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// Short returns the first four bytes in hex, for log fields.
func (id ID) Short() string { return hex.EncodeToString(id[:4]) }
