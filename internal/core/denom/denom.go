// Package denom defines the asset identifier scheme: the native token, the
// factory tokens minted through the token registry, and the LP share tokens
// issued by liquidity pools.
package denom

import (
	"errors"
	"fmt"
	"strings"
)

// Native is the denom string of the native token (fixed 9 decimals).
const Native = "sltn"

// NativeDecimals is the decimal precision of the native token.
const NativeDecimals = 9

// factoryPrefix and lpPrefix identify the two derived denom families.
const (
	factoryPrefix = "factory/"
	lpPrefix      = "lp-"
)

// Kind discriminates the denom families.
type Kind int

const (
	KindNative Kind = iota
	KindFactory
	KindLP
)

var (
	// ErrInvalidDenom is returned when a string is not a well-formed denom.
	ErrInvalidDenom = errors.New("invalid denom")

	// ErrInvalidSymbol is returned when a factory symbol contains characters
	// that would break denom or pair-id parsing.
	ErrInvalidSymbol = errors.New("invalid token symbol")
)

// Denom is the parsed form of a denom string.
type Denom struct {
	Kind    Kind
	Creator string // factory denoms only
	Symbol  string // factory denoms only
	PairID  string // lp denoms only
}

// String reassembles the canonical denom string.
func (d Denom) String() string {
	switch d.Kind {
	case KindFactory:
		return factoryPrefix + d.Creator + "/" + d.Symbol
	case KindLP:
		return lpPrefix + d.PairID
	default:
		return Native
	}
}

// Factory builds the denom string for a factory token.
func Factory(creator, symbol string) string {
	return factoryPrefix + creator + "/" + symbol
}

// LP builds the denom string of the share token for a pool.
func LP(pairID string) string {
	return lpPrefix + pairID
}

// ValidateSymbol checks a factory token symbol. Symbols are limited to
// letters and digits so that factory denoms never contain '-' or '/', which
// pair ids and denom paths use as separators.
func ValidateSymbol(symbol string) error {
	if len(symbol) == 0 || len(symbol) > 16 {
		return ErrInvalidSymbol
	}
	for i := 0; i < len(symbol); i++ {
		c := symbol[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			continue
		}
		return ErrInvalidSymbol
	}
	return nil
}

// Parse splits a denom string into its parsed form.
func Parse(s string) (Denom, error) {
	switch {
	case s == Native:
		return Denom{Kind: KindNative}, nil
	case strings.HasPrefix(s, factoryPrefix):
		rest := s[len(factoryPrefix):]
		idx := strings.IndexByte(rest, '/')
		if idx <= 0 || idx == len(rest)-1 {
			return Denom{}, fmt.Errorf("%w: %q", ErrInvalidDenom, s)
		}
		creator, symbol := rest[:idx], rest[idx+1:]
		if err := ValidateSymbol(symbol); err != nil {
			return Denom{}, fmt.Errorf("%w: %q", ErrInvalidDenom, s)
		}
		return Denom{Kind: KindFactory, Creator: creator, Symbol: symbol}, nil
	case strings.HasPrefix(s, lpPrefix) && len(s) > len(lpPrefix):
		return Denom{Kind: KindLP, PairID: s[len(lpPrefix):]}, nil
	default:
		return Denom{}, fmt.Errorf("%w: %q", ErrInvalidDenom, s)
	}
}

// Compare is the canonical total order over denom strings: plain bytewise
// comparison. It is applied uniformly to native and factory denoms; the only
// property the system relies on is determinism.
func Compare(a, b string) int {
	return strings.Compare(a, b)
}

// SortPair returns the two denoms in canonical order (tokenA first).
func SortPair(a, b string) (tokenA, tokenB string) {
	if Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

// PairID derives the canonical pool identifier for two denoms, so that
// (a, b) and (b, a) resolve to the same pool.
func PairID(a, b string) string {
	tokenA, tokenB := SortPair(a, b)
	return tokenA + "-" + tokenB
}
