package amm

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrArithmeticOverflow is returned when an intermediate product would not
// fit in 256 bits. With 128-bit reserves and inputs this needs adversarial
// values, but it must reject rather than wrap.
var ErrArithmeticOverflow = errors.New("amm arithmetic overflow")

// swapOutput computes the constant-product output with the fee deducted from
// the input:
//
//	inputWithFee = inputAmount * (10000 - feeBps)
//	outputAmount = inputWithFee * reserveOut / (reserveIn * 10000 + inputWithFee)
//
// Division truncates toward zero, favoring the pool. The denominator shape
// guarantees output < reserveOut for any positive finite input, so reserves
// can never be drained to zero by a swap.
func swapOutput(inputAmount, reserveIn, reserveOut *uint256.Int, feeBps uint32) (*uint256.Int, error) {
	feeFactor := uint256.NewInt(uint64(FeeDenominator - feeBps))

	inputWithFee, overflow := new(uint256.Int).MulOverflow(inputAmount, feeFactor)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	numerator, overflow := new(uint256.Int).MulOverflow(inputWithFee, reserveOut)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	scaledIn, overflow := new(uint256.Int).MulOverflow(reserveIn, uint256.NewInt(FeeDenominator))
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	denominator, carry := new(uint256.Int).AddOverflow(scaledIn, inputWithFee)
	if carry {
		return nil, ErrArithmeticOverflow
	}
	return new(uint256.Int).Div(numerator, denominator), nil
}

// initialLPTokens is the bootstrap mint for a new pool:
// floor(sqrt(reserveA * reserveB)). Anchoring the share price to the
// geometric mean keeps the first depositor from manipulating it.
func initialLPTokens(reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(reserveA, reserveB)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return new(uint256.Int).Sqrt(product), nil
}

// proportionalLP computes contributed * totalLP / reserve, the LP tokens a
// single-side contribution is worth.
func proportionalLP(contributed, totalLP, reserve *uint256.Int) (*uint256.Int, error) {
	num, overflow := new(uint256.Int).MulOverflow(contributed, totalLP)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return new(uint256.Int).Div(num, reserve), nil
}

// withdrawalShare computes lpTokens * reserve / totalLP, the underlying
// amount a share burn is worth.
func withdrawalShare(lpTokens, reserve, totalLP *uint256.Int) (*uint256.Int, error) {
	num, overflow := new(uint256.Int).MulOverflow(lpTokens, reserve)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return new(uint256.Int).Div(num, totalLP), nil
}

// feeCharged is the display-only fee portion of a swap input:
// floor(inputAmount * feeBps / 10000).
func feeCharged(inputAmount *uint256.Int, feeBps uint32) *uint256.Int {
	num := new(uint256.Int).Mul(inputAmount, uint256.NewInt(uint64(feeBps)))
	return num.Div(num, uint256.NewInt(FeeDenominator))
}

// minAmount returns the smaller of two amounts.
func minAmount(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
