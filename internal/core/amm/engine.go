package amm

import (
	"errors"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/amount"
	"github.com/sultan-labs/sultand/internal/core/denom"
	"github.com/sultan-labs/sultand/internal/core/ledger"
	"github.com/sultan-labs/sultand/internal/core/registry"
)

var (
	ErrPoolNotFound      = errors.New("pool not found")
	ErrPairExists        = errors.New("pair already exists")
	ErrInvalidDenom      = errors.New("denom is not part of this pool")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrSlippageExceeded  = errors.New("slippage limit exceeded")
	ErrIdenticalDenoms   = errors.New("pair denoms must differ")
	ErrInvalidFee        = errors.New("fee_bps out of range")
	ErrPoolDrained       = errors.New("pool has no liquidity")
	ErrUnknownPairDenom  = errors.New("denom is not registered")
	ErrPoolDenomNotAsset = errors.New("lp tokens cannot be pooled")
)

// Engine owns all pool state. Pools transition once from non-existent to
// active and are never closed or paused. Every failure is a pure validation
// rejection: reserves and ledger balances move only on success, atomically.
type Engine struct {
	mu    sync.RWMutex
	pools map[string]*Pool

	ledger   *ledger.Ledger
	registry *registry.Registry
}

// NewEngine creates an empty pool engine over the given ledger and registry.
func NewEngine(l *ledger.Ledger, r *registry.Registry) *Engine {
	return &Engine{
		pools:    make(map[string]*Pool),
		ledger:   l,
		registry: r,
	}
}

// SwapResult carries the wire-facing outcome of a swap.
type SwapResult struct {
	OutputAmount *uint256.Int
	Fee          *uint256.Int // input-denominated fee portion, display only
	PriceImpact  float64      // display only, derived from integer values
}

// LiquidityResult carries the outcome of an add-liquidity call.
type LiquidityResult struct {
	LPTokensMinted *uint256.Int
	ShareOfPool    float64 // display only
}

// WithdrawResult carries the outcome of a remove-liquidity call.
type WithdrawResult struct {
	AmountA *uint256.Int
	AmountB *uint256.Int
}

// validAmount rejects nil, zero and out-of-range amounts.
func validAmount(v *uint256.Int) bool {
	return v != nil && !v.IsZero() && amount.FitsU128(v)
}

// checkPairDenom validates a denom for pool membership: it must parse, be
// registered, and not itself be an LP share token.
func (e *Engine) checkPairDenom(d string) error {
	parsed, err := denom.Parse(d)
	if err != nil {
		return ErrUnknownPairDenom
	}
	if parsed.Kind == denom.KindLP {
		return ErrPoolDenomNotAsset
	}
	if !e.registry.Exists(d) {
		return ErrUnknownPairDenom
	}
	return nil
}

// CreatePair creates the pool for (tokenA, tokenB), debits the creator for
// both initial deposits and mints floor(sqrt(reserveA*reserveB)) LP tokens
// to the creator.
func (e *Engine) CreatePair(creator, tokenA, tokenB string, amountA, amountB *uint256.Int, feeBps uint32) (PoolState, error) {
	if tokenA == tokenB {
		return PoolState{}, ErrIdenticalDenoms
	}
	if err := e.checkPairDenom(tokenA); err != nil {
		return PoolState{}, err
	}
	if err := e.checkPairDenom(tokenB); err != nil {
		return PoolState{}, err
	}
	if !validAmount(amountA) || !validAmount(amountB) {
		return PoolState{}, ErrInvalidAmount
	}
	if feeBps >= FeeDenominator {
		return PoolState{}, ErrInvalidFee
	}

	// Canonicalize: amounts follow their denoms through the reorder.
	canonA, canonB := denom.SortPair(tokenA, tokenB)
	reserveA, reserveB := amountA, amountB
	if canonA != tokenA {
		reserveA, reserveB = amountB, amountA
	}
	pairID := canonA + "-" + canonB

	lpTokens, err := initialLPTokens(reserveA, reserveB)
	if err != nil {
		return PoolState{}, err
	}
	if lpTokens.IsZero() {
		return PoolState{}, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pools[pairID]; ok {
		return PoolState{}, ErrPairExists
	}

	pool := &Pool{
		PairID:  pairID,
		TokenA:  canonA,
		TokenB:  canonB,
		FeeBps:  feeBps,
		TotalLP: lpTokens,
	}
	pool.Reserve.A = new(uint256.Int).Set(reserveA)
	pool.Reserve.B = new(uint256.Int).Set(reserveB)

	err = e.ledger.NewBatch().
		Debit(creator, canonA, reserveA).
		Debit(creator, canonB, reserveB).
		Credit(creator, pool.LPDenom(), lpTokens).
		Apply()
	if err != nil {
		return PoolState{}, err
	}

	e.pools[pairID] = pool
	return pool.State(), nil
}

// Swap trades inputAmount of inputDenom for the other side of the pool.
func (e *Engine) Swap(user, inputDenom, outputDenom string, inputAmount, minOutput *uint256.Int) (SwapResult, error) {
	if !validAmount(inputAmount) {
		return SwapResult{}, ErrInvalidAmount
	}
	pool, err := e.lookup(denom.PairID(inputDenom, outputDenom))
	if err != nil {
		return SwapResult{}, err
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	// A fully withdrawn pool has nothing to price against; the constant
	// product over zero reserves would quote output 0 for any input.
	if pool.TotalLP.IsZero() {
		return SwapResult{}, ErrPoolDrained
	}

	var reserveIn, reserveOut *uint256.Int
	switch {
	case inputDenom == pool.TokenA && outputDenom == pool.TokenB:
		reserveIn, reserveOut = pool.Reserve.A, pool.Reserve.B
	case inputDenom == pool.TokenB && outputDenom == pool.TokenA:
		reserveIn, reserveOut = pool.Reserve.B, pool.Reserve.A
	default:
		return SwapResult{}, ErrInvalidDenom
	}

	output, err := swapOutput(inputAmount, reserveIn, reserveOut, pool.FeeBps)
	if err != nil {
		return SwapResult{}, err
	}
	if minOutput != nil && output.Cmp(minOutput) < 0 {
		return SwapResult{}, ErrSlippageExceeded
	}

	err = e.ledger.NewBatch().
		Debit(user, inputDenom, inputAmount).
		Credit(user, outputDenom, output).
		Apply()
	if err != nil {
		return SwapResult{}, err
	}

	// output < reserveOut holds structurally, so reserves stay positive.
	priceImpact := computePriceImpact(inputAmount, output, reserveIn, reserveOut)
	reserveIn.Add(reserveIn, inputAmount)
	reserveOut.Sub(reserveOut, output)

	return SwapResult{
		OutputAmount: output,
		Fee:          feeCharged(inputAmount, pool.FeeBps),
		PriceImpact:  priceImpact,
	}, nil
}

// computePriceImpact derives the display-only relative deviation of the
// execution price from the pre-trade spot price.
func computePriceImpact(input, output, reserveIn, reserveOut *uint256.Int) float64 {
	spot := toFloat(reserveOut) / toFloat(reserveIn)
	if spot == 0 {
		return 0
	}
	exec := toFloat(output) / toFloat(input)
	impact := 1 - exec/spot
	if impact < 0 {
		return 0
	}
	return impact
}

// AddLiquidity deposits amountA/amountB into the pool. LP tokens minted are
// the minimum of the two proportional contributions; the full requested
// amounts are debited regardless, so an imbalanced deposit costs the
// depositor the excess on the stronger side.
func (e *Engine) AddLiquidity(user, pairID string, amountA, amountB, minLPTokens *uint256.Int) (LiquidityResult, error) {
	if !validAmount(amountA) || !validAmount(amountB) {
		return LiquidityResult{}, ErrInvalidAmount
	}
	pool, err := e.lookup(pairID)
	if err != nil {
		return LiquidityResult{}, err
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	var minted *uint256.Int
	if pool.TotalLP.IsZero() {
		// The pool was fully withdrawn. This deposit re-seeds it: the
		// amounts set a fresh ratio and mint the geometric-mean bootstrap
		// amount, exactly as at pair creation.
		minted, err = initialLPTokens(amountA, amountB)
		if err != nil {
			return LiquidityResult{}, err
		}
	} else {
		lpFromA, err := proportionalLP(amountA, pool.TotalLP, pool.Reserve.A)
		if err != nil {
			return LiquidityResult{}, err
		}
		lpFromB, err := proportionalLP(amountB, pool.TotalLP, pool.Reserve.B)
		if err != nil {
			return LiquidityResult{}, err
		}
		minted = new(uint256.Int).Set(minAmount(lpFromA, lpFromB))
	}
	if minted.IsZero() {
		return LiquidityResult{}, ErrInvalidAmount
	}
	if minLPTokens != nil && minted.Cmp(minLPTokens) < 0 {
		return LiquidityResult{}, ErrSlippageExceeded
	}

	err = e.ledger.NewBatch().
		Debit(user, pool.TokenA, amountA).
		Debit(user, pool.TokenB, amountB).
		Credit(user, pool.LPDenom(), minted).
		Apply()
	if err != nil {
		return LiquidityResult{}, err
	}

	pool.Reserve.A.Add(pool.Reserve.A, amountA)
	pool.Reserve.B.Add(pool.Reserve.B, amountB)
	pool.TotalLP.Add(pool.TotalLP, minted)

	share := toFloat(minted) / toFloat(pool.TotalLP)
	return LiquidityResult{LPTokensMinted: minted, ShareOfPool: share}, nil
}

// RemoveLiquidity burns lpTokens and returns the proportional share of both
// reserves.
func (e *Engine) RemoveLiquidity(user, pairID string, lpTokens, minAmountA, minAmountB *uint256.Int) (WithdrawResult, error) {
	if !validAmount(lpTokens) {
		return WithdrawResult{}, ErrInvalidAmount
	}
	pool, err := e.lookup(pairID)
	if err != nil {
		return WithdrawResult{}, err
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if lpTokens.Cmp(pool.TotalLP) > 0 {
		return WithdrawResult{}, ledger.ErrInsufficientBalance
	}
	amountA, err := withdrawalShare(lpTokens, pool.Reserve.A, pool.TotalLP)
	if err != nil {
		return WithdrawResult{}, err
	}
	amountB, err := withdrawalShare(lpTokens, pool.Reserve.B, pool.TotalLP)
	if err != nil {
		return WithdrawResult{}, err
	}
	if minAmountA != nil && amountA.Cmp(minAmountA) < 0 {
		return WithdrawResult{}, ErrSlippageExceeded
	}
	if minAmountB != nil && amountB.Cmp(minAmountB) < 0 {
		return WithdrawResult{}, ErrSlippageExceeded
	}

	err = e.ledger.NewBatch().
		Debit(user, pool.LPDenom(), lpTokens).
		Credit(user, pool.TokenA, amountA).
		Credit(user, pool.TokenB, amountB).
		Apply()
	if err != nil {
		return WithdrawResult{}, err
	}

	pool.Reserve.A.Sub(pool.Reserve.A, amountA)
	pool.Reserve.B.Sub(pool.Reserve.B, amountB)
	pool.TotalLP.Sub(pool.TotalLP, lpTokens)

	return WithdrawResult{AmountA: amountA, AmountB: amountB}, nil
}

// lookup resolves a pool by pair id.
func (e *Engine) lookup(pairID string) (*Pool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pool, ok := e.pools[pairID]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

// Pool returns a snapshot of one pool.
func (e *Engine) Pool(pairID string) (PoolState, error) {
	pool, err := e.lookup(pairID)
	if err != nil {
		return PoolState{}, err
	}
	return pool.State(), nil
}

// PoolDetail returns a pool snapshot together with the display-only spot
// price at read time.
func (e *Engine) PoolDetail(pairID string) (PoolState, float64, error) {
	pool, err := e.lookup(pairID)
	if err != nil {
		return PoolState{}, 0, err
	}
	return pool.State(), pool.SpotPrice(), nil
}

// Pools returns snapshots of all pools sorted by pair id.
func (e *Engine) Pools() []PoolState {
	e.mu.RLock()
	pools := make([]*Pool, 0, len(e.pools))
	for _, p := range e.pools {
		pools = append(pools, p)
	}
	e.mu.RUnlock()

	out := make([]PoolState, 0, len(pools))
	for _, p := range pools {
		out = append(out, p.State())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PairID < out[j].PairID })
	return out
}

// Snapshot exports all pool state for checkpointing.
func (e *Engine) Snapshot() []PoolState {
	return e.Pools()
}

// Restore replaces the pool set from a snapshot.
func (e *Engine) Restore(states []PoolState) error {
	pools := make(map[string]*Pool, len(states))
	for _, st := range states {
		ra, err := amount.Parse(st.ReserveA)
		if err != nil {
			return err
		}
		rb, err := amount.Parse(st.ReserveB)
		if err != nil {
			return err
		}
		lp, err := amount.Parse(st.TotalLP)
		if err != nil {
			return err
		}
		pool := &Pool{
			PairID:  st.PairID,
			TokenA:  st.TokenA,
			TokenB:  st.TokenB,
			FeeBps:  st.FeeBps,
			TotalLP: lp,
		}
		pool.Reserve.A = ra
		pool.Reserve.B = rb
		pools[st.PairID] = pool
	}
	e.mu.Lock()
	e.pools = pools
	e.mu.Unlock()
	return nil
}
