// Package amount implements the atomic-unit integer arithmetic used for all
// balances, reserves and supplies. Values are unsigned 128-bit integers held
// in 256-bit words so that intermediate products in the AMM math never wrap.
package amount

import (
	"errors"

	"github.com/holiman/uint256"
)

// AtomicUnitsPerSLTN is the number of atomic units in one native token.
// The native denom has a fixed 9 decimals.
const AtomicUnitsPerSLTN = 1_000_000_000

var (
	// ErrSyntax is returned when a string is not a plain decimal integer.
	ErrSyntax = errors.New("amount is not a non-negative integer string")

	// ErrRange is returned when a value does not fit in 128 bits.
	ErrRange = errors.New("amount exceeds 128-bit range")
)

// maxU128 is 2^128 - 1, the largest representable balance.
var maxU128 = func() *uint256.Int {
	one := uint256.NewInt(1)
	m := new(uint256.Int).Lsh(one, 128)
	return m.Sub(m, one)
}()

// Zero returns a fresh zero amount.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// FromUint64 converts a uint64 into an amount.
func FromUint64(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Parse converts a decimal string into an amount. The string must consist of
// digits only; signs, whitespace, exponents and decimal points are rejected.
func Parse(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, ErrSyntax
		}
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, ErrRange
	}
	if !FitsU128(v) {
		return nil, ErrRange
	}
	return v, nil
}

// Format renders an amount as the decimal string form used in signing
// payloads and wire responses.
func Format(v *uint256.Int) string {
	return v.Dec()
}

// FitsU128 reports whether v is within the unsigned 128-bit range.
func FitsU128(v *uint256.Int) bool {
	return v.Cmp(maxU128) <= 0
}

// Add returns a + b, failing with ErrRange if the sum leaves the 128-bit
// range. Inputs are not modified.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum := new(uint256.Int).Add(a, b)
	if !FitsU128(sum) {
		return nil, ErrRange
	}
	return sum, nil
}

// Sub returns a - b, failing with ErrRange on underflow. Inputs are not
// modified.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, ErrRange
	}
	return new(uint256.Int).Sub(a, b), nil
}
