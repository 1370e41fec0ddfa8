// Package ticket prices ticket sales by type.
//
// Sale mechanics (minting, seating, metadata) live outside the ledger; this
// package only turns a base ticket price and a ticket type into the amount
// the buyer pays.
package ticket

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrUnknownType indicates a ticket type missing from the multiplier table.
	ErrUnknownType = errors.New("ticket: unknown ticket type")

	// ErrZeroPrice indicates a base price of zero.
	ErrZeroPrice = errors.New("ticket: zero base price")

	// ErrPriceOverflow indicates price * multiplier does not fit in 64 bits.
	ErrPriceOverflow = errors.New("ticket: price overflow")
)

// Type is a ticket class.
type Type uint8

const (
	Regular Type = iota
	VIP
	EarlyBird
	Student
	Group
	VVIP
	Backstage
	Table
)

// PercentBase is the denominator of a multiplier.
const PercentBase = 100

type class struct {
	name       string
	multiplier uint64
}

// classes maps every ticket type to its name and price multiplier in percent.
var classes = map[Type]class{
	Regular:   {"regular", 100},
	VIP:       {"vip", 200},
	EarlyBird: {"early_bird", 80},
	Student:   {"student", 60},
	Group:     {"group", 150},
	VVIP:      {"vvip", 300},
	Backstage: {"backstage", 500},
	Table:     {"table", 1000},
}

func (t Type) String() string {
	if c, ok := classes[t]; ok {
		return c.name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Multiplier returns the price multiplier for t in percent.
func Multiplier(t Type) (uint64, error) {
	c, ok := classes[t]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	return c.multiplier, nil
}

// ParseType maps a ticket type name to its Type.
func ParseType(name string) (Type, error) {
	for t, c := range classes {
		if c.name == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Price returns base * multiplier / 100, rounded down.
func Price(base uint64, t Type) (uint64, error) {
	if base == 0 {
		return 0, ErrZeroPrice
	}
	m, err := Multiplier(t)
	if err != nil {
		return 0, err
	}
	hi, lo := bits.Mul64(base, m)
	if hi >= PercentBase {
		return 0, fmt.Errorf("%w: %d x %d%%", ErrPriceOverflow, base, m)
	}
	q, _ := bits.Div64(hi, lo, PercentBase)
	return q, nil
}
