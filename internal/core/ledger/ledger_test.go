package ledger

import (
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sultan-labs/sultand/internal/core/amount"
)

const (
	alice = "sultan1alice"
	bob   = "sultan1bob"
	sltn  = "sltn"
)

func TestCreditDebit(t *testing.T) {
	l := New()

	require.NoError(t, l.Credit(alice, sltn, uint256.NewInt(100)))
	assert.Equal(t, uint64(100), l.Balance(alice, sltn).Uint64())

	require.NoError(t, l.Debit(alice, sltn, uint256.NewInt(40)))
	assert.Equal(t, uint64(60), l.Balance(alice, sltn).Uint64())

	err := l.Debit(alice, sltn, uint256.NewInt(61))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(60), l.Balance(alice, sltn).Uint64())
}

func TestDebitUnknownAccount(t *testing.T) {
	l := New()
	err := l.Debit("sultan1nobody", sltn, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestZeroBalanceIsNotDeletion(t *testing.T) {
	l := New()
	require.NoError(t, l.Credit(alice, sltn, uint256.NewInt(5)))
	require.NoError(t, l.CheckAndIncrementNonce(alice, 0))
	require.NoError(t, l.Debit(alice, sltn, uint256.NewInt(5)))

	// Account survives with zero balance; its nonce is retained.
	assert.True(t, l.Balance(alice, sltn).IsZero())
	assert.Equal(t, uint64(1), l.Nonce(alice))
}

func TestCreditOverflow(t *testing.T) {
	l := New()
	max, err := amount.Parse("340282366920938463463374607431768211455")
	require.NoError(t, err)

	require.NoError(t, l.Credit(alice, sltn, max))
	err = l.Credit(alice, sltn, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, max, l.Balance(alice, sltn))
}

func TestNonceMonotonicity(t *testing.T) {
	l := New()
	require.NoError(t, l.Credit(alice, sltn, uint256.NewInt(1000)))

	for i := uint64(0); i < 10; i++ {
		require.NoError(t, l.CheckAndIncrementNonce(alice, i))
	}
	assert.Equal(t, uint64(10), l.Nonce(alice))

	// Out-of-order submissions fail and leave the nonce unchanged.
	assert.ErrorIs(t, l.CheckAndIncrementNonce(alice, 9), ErrNonceMismatch)
	assert.ErrorIs(t, l.CheckAndIncrementNonce(alice, 11), ErrNonceMismatch)
	assert.Equal(t, uint64(10), l.Nonce(alice))
}

func TestBatchAtomicity(t *testing.T) {
	l := New()
	require.NoError(t, l.Credit(alice, sltn, uint256.NewInt(50)))

	// The debit exceeds alice's balance, so the whole batch, including the
	// nonce advance and bob's credit, must be rejected.
	err := l.NewBatch().
		RequireNonce(alice, 0).
		Debit(alice, sltn, uint256.NewInt(80)).
		Credit(bob, sltn, uint256.NewInt(80)).
		Apply()
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(0), l.Nonce(alice))
	assert.True(t, l.Balance(bob, sltn).IsZero())
	assert.Equal(t, uint64(50), l.Balance(alice, sltn).Uint64())

	// A valid transfer applies everything at once.
	err = l.NewBatch().
		RequireNonce(alice, 0).
		Debit(alice, sltn, uint256.NewInt(30)).
		Credit(bob, sltn, uint256.NewInt(30)).
		Apply()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), l.Nonce(alice))
	assert.Equal(t, uint64(20), l.Balance(alice, sltn).Uint64())
	assert.Equal(t, uint64(30), l.Balance(bob, sltn).Uint64())
}

func TestBatchSequentialEntriesOnSameKey(t *testing.T) {
	l := New()
	require.NoError(t, l.Credit(alice, sltn, uint256.NewInt(10)))

	// Credit then debit of the same key inside one batch is evaluated in
	// staging order against the working copy.
	err := l.NewBatch().
		Credit(alice, sltn, uint256.NewInt(5)).
		Debit(alice, sltn, uint256.NewInt(12)).
		Apply()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), l.Balance(alice, sltn).Uint64())

	// Debit first fails if the starting balance cannot cover it.
	err = l.NewBatch().
		Debit(alice, sltn, uint256.NewInt(4)).
		Credit(alice, sltn, uint256.NewInt(100)).
		Apply()
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(3), l.Balance(alice, sltn).Uint64())
}

func TestBatchRejectsNilAmount(t *testing.T) {
	l := New()
	err := l.NewBatch().Credit(alice, sltn, nil).Apply()
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestConcurrentTransfersConserveTotal(t *testing.T) {
	l := New()
	require.NoError(t, l.Credit(alice, sltn, uint256.NewInt(10_000)))
	require.NoError(t, l.Credit(bob, sltn, uint256.NewInt(10_000)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		from, to := alice, bob
		if i%2 == 0 {
			from, to = bob, alice
		}
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = l.NewBatch().
					Debit(from, sltn, uint256.NewInt(1)).
					Credit(to, sltn, uint256.NewInt(1)).
					Apply()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(20_000), l.TotalBalance(sltn).Uint64())
}

func TestSnapshotRestore(t *testing.T) {
	l := New()
	require.NoError(t, l.Credit(alice, sltn, uint256.NewInt(123)))
	require.NoError(t, l.Credit(alice, "factory/sultan1x/GOLD", uint256.NewInt(7)))
	require.NoError(t, l.CheckAndIncrementNonce(alice, 0))
	require.NoError(t, l.Credit(bob, sltn, uint256.NewInt(456)))

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, alice, snap[0].Address) // sorted by address

	restored := New()
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, uint64(123), restored.Balance(alice, sltn).Uint64())
	assert.Equal(t, uint64(7), restored.Balance(alice, "factory/sultan1x/GOLD").Uint64())
	assert.Equal(t, uint64(1), restored.Nonce(alice))
	assert.Equal(t, uint64(456), restored.Balance(bob, sltn).Uint64())
}
