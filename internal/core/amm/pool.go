// Package amm implements the constant-product market maker: pair creation,
// swap execution and liquidity provisioning. All engine-internal arithmetic
// is integer-only with truncation toward zero, which always favors the pool,
// and every intermediate product is computed in 256-bit words so 128-bit
// reserves can never wrap.
package amm

import (
	"strconv"
	"sync"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/amount"
	"github.com/sultan-labs/sultand/internal/core/denom"
)

// FeeDenominator is the basis-point scale: fee_bps out of 10,000.
const FeeDenominator = 10_000

// Pool holds the state of one liquidity pair. TokenA/TokenB are in the
// canonical denom order, so (a, b) and (b, a) requests resolve here alike.
// The pool mutex linearizes all writers against the reserve pair; a lost
// update on reserves is the critical bug class this guards against.
type Pool struct {
	mu sync.Mutex

	PairID  string
	TokenA  string
	TokenB  string
	FeeBps  uint32
	Reserve struct {
		A *uint256.Int
		B *uint256.Int
	}
	TotalLP *uint256.Int
}

// LPDenom returns the denom under which this pool's share tokens are
// ledgered.
func (p *Pool) LPDenom() string {
	return denom.LP(p.PairID)
}

// PoolState is the read-side snapshot of a pool.
type PoolState struct {
	PairID   string `json:"pair_id"`
	TokenA   string `json:"token_a"`
	TokenB   string `json:"token_b"`
	ReserveA string `json:"reserve_a"`
	ReserveB string `json:"reserve_b"`
	TotalLP  string `json:"total_lp_tokens"`
	FeeBps   uint32 `json:"fee_bps"`
}

// state copies the pool into its snapshot form. Callers must hold p.mu.
func (p *Pool) state() PoolState {
	return PoolState{
		PairID:   p.PairID,
		TokenA:   p.TokenA,
		TokenB:   p.TokenB,
		ReserveA: amount.Format(p.Reserve.A),
		ReserveB: amount.Format(p.Reserve.B),
		TotalLP:  amount.Format(p.TotalLP),
		FeeBps:   p.FeeBps,
	}
}

// State returns a consistent snapshot of the pool.
func (p *Pool) State() PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state()
}

// SpotPrice returns the display-only a→b price derived from the integer
// reserves at read time. It never feeds back into engine arithmetic.
func (p *Pool) SpotPrice() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ra := toFloat(p.Reserve.A)
	rb := toFloat(p.Reserve.B)
	if ra == 0 {
		return 0
	}
	return rb / ra
}

// toFloat converts an integer amount to a float for display fields only.
func toFloat(v *uint256.Int) float64 {
	f, _ := strconv.ParseFloat(v.Dec(), 64)
	return f
}
