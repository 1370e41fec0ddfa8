package ticket

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		typ  Type
		want uint64
	}{
		{Regular, 1000},
		{VIP, 2000},
		{EarlyBird, 800},
		{Student, 600},
		{Group, 1500},
		{VVIP, 3000},
		{Backstage, 5000},
		{Table, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			got, err := Price(1000, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrice_RoundsDown(t *testing.T) {
	got, err := Price(7, Student)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got) // 7 * 60 / 100 = 4.2
}

func TestPrice_LargeBase(t *testing.T) {
	got, err := Price(math.MaxUint64, Student)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64/100*60+(math.MaxUint64%100)*60/100), got)

	_, err = Price(math.MaxUint64, VIP)
	assert.ErrorIs(t, err, ErrPriceOverflow)
}

func TestPrice_Errors(t *testing.T) {
	_, err := Price(0, Regular)
	assert.ErrorIs(t, err, ErrZeroPrice)

	_, err = Price(100, Type(200))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestParseType_RoundTrip(t *testing.T) {
	for typ := range classes {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseType("balcony")
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, "Type(99)", Type(99).String())
}
