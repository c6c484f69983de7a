package amm

import (
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sultan-labs/sultand/internal/core/amount"
	"github.com/sultan-labs/sultand/internal/core/denom"
	"github.com/sultan-labs/sultand/internal/core/ledger"
	"github.com/sultan-labs/sultand/internal/core/registry"
)

const (
	alice = "sultan1aliceaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob   = "sultan1bobbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func amt(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := amount.Parse(s)
	require.NoError(t, err)
	return v
}

// newTestEnv funds alice with native and a factory token and returns an
// engine over a fresh ledger.
func newTestEnv(t *testing.T) (*Engine, *ledger.Ledger, string) {
	t.Helper()
	l := ledger.New()
	genesis := amt(t, "10000000000000000")
	require.NoError(t, l.NewBatch().Credit(alice, denom.Native, genesis).Apply())

	r := registry.New(l, genesis)
	usdt, err := r.CreateToken(alice, "Tether", "USDT", 6, amt(t, "10000000000000"), true, true)
	require.NoError(t, err)

	return NewEngine(l, r), l, usdt
}

// poolK returns reserveA*reserveB. Both reserves fit in 128 bits so the
// product always fits in 256.
func poolK(t *testing.T, e *Engine, pairID string) *uint256.Int {
	t.Helper()
	st, err := e.Pool(pairID)
	require.NoError(t, err)
	ra := amt(t, st.ReserveA)
	rb := amt(t, st.ReserveB)
	return new(uint256.Int).Mul(ra, rb)
}

func TestCreatePair(t *testing.T) {
	e, l, usdt := newTestEnv(t)

	// 1.5M SLTN against 750k USDT.
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1500000000000000"), amt(t, "750000000000"), 30)
	require.NoError(t, err)

	// Canonical order is bytewise, so the factory denom is side A.
	assert.Equal(t, usdt, st.TokenA)
	assert.Equal(t, denom.Native, st.TokenB)
	assert.Equal(t, usdt+"-"+denom.Native, st.PairID)
	assert.Equal(t, "750000000000", st.ReserveA)
	assert.Equal(t, "1500000000000000", st.ReserveB)

	// floor(sqrt(750000000000 * 1500000000000000))
	assert.Equal(t, "33541019662496", st.TotalLP)
	assert.Equal(t, "33541019662496", amount.Format(l.Balance(alice, denom.LP(st.PairID))))

	// Deposits left alice's balances.
	assert.Equal(t, "8500000000000000", amount.Format(l.Balance(alice, denom.Native)))
	assert.Equal(t, "9250000000000", amount.Format(l.Balance(alice, usdt)))
}

func TestCreatePairDuplicate(t *testing.T) {
	e, _, usdt := newTestEnv(t)

	_, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1000"), amt(t, "1000"), 30)
	require.NoError(t, err)

	// Same pair in either denom order is a duplicate.
	_, err = e.CreatePair(alice, denom.Native, usdt, amt(t, "1000"), amt(t, "1000"), 30)
	assert.ErrorIs(t, err, ErrPairExists)
	_, err = e.CreatePair(alice, usdt, denom.Native, amt(t, "1000"), amt(t, "1000"), 30)
	assert.ErrorIs(t, err, ErrPairExists)
}

func TestCreatePairValidation(t *testing.T) {
	e, _, usdt := newTestEnv(t)
	one := amt(t, "1000")

	_, err := e.CreatePair(alice, denom.Native, denom.Native, one, one, 30)
	assert.ErrorIs(t, err, ErrIdenticalDenoms)

	_, err = e.CreatePair(alice, denom.Native, "factory/"+bob+"/GHOST", one, one, 30)
	assert.ErrorIs(t, err, ErrUnknownPairDenom)

	_, err = e.CreatePair(alice, denom.Native, denom.LP("a-b"), one, one, 30)
	assert.ErrorIs(t, err, ErrPoolDenomNotAsset)

	_, err = e.CreatePair(alice, denom.Native, usdt, uint256.NewInt(0), one, 30)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = e.CreatePair(alice, denom.Native, usdt, one, nil, 30)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = e.CreatePair(alice, denom.Native, usdt, one, one, 10000)
	assert.ErrorIs(t, err, ErrInvalidFee)

	// Creator cannot fund the deposit.
	_, err = e.CreatePair(bob, denom.Native, usdt, one, one, 30)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Len(t, e.Pools(), 0)
}

func TestSwap(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1500000000000000"), amt(t, "750000000000"), 30)
	require.NoError(t, err)

	require.NoError(t, l.NewBatch().Credit(bob, denom.Native, amt(t, "100000000000")).Apply())
	kBefore := poolK(t, e, st.PairID)

	// 100 SLTN in at a 0.30% fee against the fixture reserves.
	res, err := e.Swap(bob, denom.Native, usdt, amt(t, "100000000000"), nil)
	require.NoError(t, err)
	assert.Equal(t, "49846686", amount.Format(res.OutputAmount))
	assert.Equal(t, "300000000", amount.Format(res.Fee))
	assert.Greater(t, res.PriceImpact, 0.0)

	assert.Equal(t, "0", amount.Format(l.Balance(bob, denom.Native)))
	assert.Equal(t, "49846686", amount.Format(l.Balance(bob, usdt)))

	after, err := e.Pool(st.PairID)
	require.NoError(t, err)
	assert.Equal(t, "749950153314", after.ReserveA)
	assert.Equal(t, "1500100000000000", after.ReserveB)

	// With a nonzero fee the invariant strictly grows.
	assert.Equal(t, 1, poolK(t, e, st.PairID).Cmp(kBefore))
}

func TestSwapZeroFeePreservesK(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1000"), amt(t, "1000"), 0)
	require.NoError(t, err)

	require.NoError(t, l.NewBatch().Credit(bob, denom.Native, amt(t, "1000")).Apply())
	kBefore := poolK(t, e, st.PairID)

	// Exact division: 1000 in against 1000/1000 yields exactly 500 out.
	res, err := e.Swap(bob, denom.Native, usdt, amt(t, "1000"), nil)
	require.NoError(t, err)
	assert.Equal(t, "500", amount.Format(res.OutputAmount))
	assert.Equal(t, "0", amount.Format(res.Fee))

	assert.Equal(t, 0, poolK(t, e, st.PairID).Cmp(kBefore))
}

func TestSwapRejections(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	_, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1500000000000000"), amt(t, "750000000000"), 30)
	require.NoError(t, err)
	require.NoError(t, l.NewBatch().Credit(bob, denom.Native, amt(t, "100000000000")).Apply())

	_, err = e.Swap(bob, denom.Native, "factory/"+alice+"/GHOST", amt(t, "1000"), nil)
	assert.ErrorIs(t, err, ErrPoolNotFound)

	_, err = e.Swap(bob, denom.Native, usdt, uint256.NewInt(0), nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// Output would be 49846686; demanding one more trips the limit.
	_, err = e.Swap(bob, denom.Native, usdt, amt(t, "100000000000"), amt(t, "49846687"))
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	// Nothing moved on the failed attempts.
	assert.Equal(t, "100000000000", amount.Format(l.Balance(bob, denom.Native)))
	assert.Equal(t, "0", amount.Format(l.Balance(bob, usdt)))

	// Unfunded trader.
	_, err = e.Swap(bob, usdt, denom.Native, amt(t, "1000"), nil)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestSwapOutputBelowReserve(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1000000"), amt(t, "1000"), 30)
	require.NoError(t, err)

	// An input dwarfing the pool still cannot drain the output side.
	huge := amt(t, "340282366920938463463374607431768211455")
	require.NoError(t, l.NewBatch().Credit(bob, denom.Native, huge).Apply())
	res, err := e.Swap(bob, denom.Native, usdt, huge, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, res.OutputAmount.Cmp(amt(t, "1000")))

	after, err := e.Pool(st.PairID)
	require.NoError(t, err)
	assert.NotEqual(t, "0", after.ReserveA)
}

func TestAddLiquidityBalanced(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1500000000000000"), amt(t, "750000000000"), 30)
	require.NoError(t, err)

	require.NoError(t, l.NewBatch().
		Credit(bob, usdt, amt(t, "75000000000")).
		Credit(bob, denom.Native, amt(t, "150000000000000")).
		Apply())

	// A tenth of each reserve mints a tenth of the (floored) LP supply.
	res, err := e.AddLiquidity(bob, st.PairID, amt(t, "75000000000"), amt(t, "150000000000000"), nil)
	require.NoError(t, err)
	assert.Equal(t, "3354101966249", amount.Format(res.LPTokensMinted))
	assert.InDelta(t, 1.0/11.0, res.ShareOfPool, 1e-6)

	assert.Equal(t, "0", amount.Format(l.Balance(bob, usdt)))
	assert.Equal(t, "0", amount.Format(l.Balance(bob, denom.Native)))
	assert.Equal(t, "3354101966249", amount.Format(l.Balance(bob, denom.LP(st.PairID))))

	after, err := e.Pool(st.PairID)
	require.NoError(t, err)
	assert.Equal(t, "825000000000", after.ReserveA)
	assert.Equal(t, "1650000000000000", after.ReserveB)
	assert.Equal(t, "36895121628745", after.TotalLP)
}

func TestAddLiquidityImbalanced(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1000000"), amt(t, "1000000"), 30)
	require.NoError(t, err)

	require.NoError(t, l.NewBatch().
		Credit(bob, usdt, amt(t, "200000")).
		Credit(bob, denom.Native, amt(t, "100000")).
		Apply())

	// The weaker side caps the mint, but both full amounts are taken.
	res, err := e.AddLiquidity(bob, st.PairID, amt(t, "200000"), amt(t, "100000"), nil)
	require.NoError(t, err)
	assert.Equal(t, "100000", amount.Format(res.LPTokensMinted))
	assert.Equal(t, "0", amount.Format(l.Balance(bob, usdt)))
	assert.Equal(t, "0", amount.Format(l.Balance(bob, denom.Native)))

	after, err := e.Pool(st.PairID)
	require.NoError(t, err)
	assert.Equal(t, "1200000", after.ReserveA)
	assert.Equal(t, "1100000", after.ReserveB)
}

func TestAddLiquiditySlippage(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1000000"), amt(t, "1000000"), 30)
	require.NoError(t, err)
	require.NoError(t, l.NewBatch().
		Credit(bob, usdt, amt(t, "100000")).
		Credit(bob, denom.Native, amt(t, "100000")).
		Apply())

	_, err = e.AddLiquidity(bob, st.PairID, amt(t, "100000"), amt(t, "100000"), amt(t, "100001"))
	assert.ErrorIs(t, err, ErrSlippageExceeded)
	assert.Equal(t, "100000", amount.Format(l.Balance(bob, usdt)))

	_, err = e.AddLiquidity(bob, "nope-pair", amt(t, "1"), amt(t, "1"), nil)
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestRemoveLiquidity(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1500000000000000"), amt(t, "750000000000"), 30)
	require.NoError(t, err)

	deposA, deposB := amt(t, "75000000000"), amt(t, "150000000000000")
	require.NoError(t, l.NewBatch().
		Credit(bob, usdt, deposA).
		Credit(bob, denom.Native, deposB).
		Apply())
	add, err := e.AddLiquidity(bob, st.PairID, deposA, deposB, nil)
	require.NoError(t, err)

	res, err := e.RemoveLiquidity(bob, st.PairID, add.LPTokensMinted, nil, nil)
	require.NoError(t, err)

	// Floor rounding means a round trip never returns more than deposited.
	assert.True(t, res.AmountA.Cmp(deposA) <= 0)
	assert.True(t, res.AmountB.Cmp(deposB) <= 0)
	assert.Equal(t, "0", amount.Format(l.Balance(bob, denom.LP(st.PairID))))
	assert.Equal(t, amount.Format(res.AmountA), amount.Format(l.Balance(bob, usdt)))
	assert.Equal(t, amount.Format(res.AmountB), amount.Format(l.Balance(bob, denom.Native)))
}

func TestRemoveLiquidityRejections(t *testing.T) {
	e, _, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1000000"), amt(t, "1000000"), 30)
	require.NoError(t, err)

	// More LP than exists.
	_, err = e.RemoveLiquidity(alice, st.PairID, amt(t, "1000001"), nil, nil)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// Holder without the LP tokens.
	_, err = e.RemoveLiquidity(bob, st.PairID, amt(t, "1000"), nil, nil)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// Minimum-out guards.
	_, err = e.RemoveLiquidity(alice, st.PairID, amt(t, "100000"), amt(t, "100001"), nil)
	assert.ErrorIs(t, err, ErrSlippageExceeded)
	_, err = e.RemoveLiquidity(alice, st.PairID, amt(t, "100000"), nil, amt(t, "100001"))
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	_, err = e.RemoveLiquidity(alice, st.PairID, uint256.NewInt(0), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// Failed attempts left the pool untouched.
	after, err := e.Pool(st.PairID)
	require.NoError(t, err)
	assert.Equal(t, "1000000", after.ReserveA)
	assert.Equal(t, "1000000", after.TotalLP)
}

func TestDrainedPoolRejectsSwapsAndReseeds(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1000000"), amt(t, "1000000"), 30)
	require.NoError(t, err)

	// Withdraw the entire LP supply.
	_, err = e.RemoveLiquidity(alice, st.PairID, amt(t, "1000000"), nil, nil)
	require.NoError(t, err)
	after, err := e.Pool(st.PairID)
	require.NoError(t, err)
	assert.Equal(t, "0", after.ReserveA)
	assert.Equal(t, "0", after.ReserveB)
	assert.Equal(t, "0", after.TotalLP)

	// A swap against the empty pool must not consume the input for nothing.
	require.NoError(t, l.NewBatch().Credit(bob, denom.Native, amt(t, "1000")).Apply())
	_, err = e.Swap(bob, denom.Native, usdt, amt(t, "1000"), nil)
	assert.ErrorIs(t, err, ErrPoolDrained)
	assert.Equal(t, "1000", amount.Format(l.Balance(bob, denom.Native)))

	// The pair id survives, so re-creating it is still a duplicate.
	_, err = e.CreatePair(alice, denom.Native, usdt, amt(t, "1000"), amt(t, "1000"), 30)
	assert.ErrorIs(t, err, ErrPairExists)

	// A deposit re-seeds the pool: fresh ratio, bootstrap mint.
	res, err := e.AddLiquidity(alice, st.PairID, amt(t, "400"), amt(t, "100"), nil)
	require.NoError(t, err)
	assert.Equal(t, "200", amount.Format(res.LPTokensMinted)) // floor(sqrt(400*100))
	assert.InDelta(t, 1.0, res.ShareOfPool, 1e-9)

	reseeded, err := e.Pool(st.PairID)
	require.NoError(t, err)
	assert.Equal(t, "400", reseeded.ReserveA)
	assert.Equal(t, "100", reseeded.ReserveB)
	assert.Equal(t, "200", reseeded.TotalLP)

	// The pool trades again.
	swapped, err := e.Swap(bob, denom.Native, usdt, amt(t, "10"), nil)
	require.NoError(t, err)
	assert.Equal(t, "36", amount.Format(swapped.OutputAmount))
}

func TestConcurrentSwapsNeverShrinkK(t *testing.T) {
	e, l, usdt := newTestEnv(t)
	st, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1000000000000"), amt(t, "1000000000000"), 30)
	require.NoError(t, err)

	const workers = 8
	for i := 0; i < workers; i++ {
		require.NoError(t, l.NewBatch().Credit(bob, denom.Native, amt(t, "10000000")).Apply())
	}
	kBefore := poolK(t, e, st.PairID)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := e.Swap(bob, denom.Native, usdt, uint256.NewInt(200000), nil)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, poolK(t, e, st.PairID).Cmp(kBefore))
}

func TestPoolsListingAndSnapshot(t *testing.T) {
	e, _, usdt := newTestEnv(t)
	_, err := e.CreatePair(alice, denom.Native, usdt, amt(t, "1000000"), amt(t, "2000000"), 30)
	require.NoError(t, err)

	pools := e.Pools()
	require.Len(t, pools, 1)

	restored := NewEngine(ledger.New(), registry.New(ledger.New(), uint256.NewInt(0)))
	require.NoError(t, restored.Restore(e.Snapshot()))

	got, err := restored.Pool(pools[0].PairID)
	require.NoError(t, err)
	assert.Equal(t, pools[0], got)
}
