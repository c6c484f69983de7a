package statestore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sultan-labs/sultand/internal/core/ledger"
)

func sampleCheckpoint(height uint64) *Checkpoint {
	return &Checkpoint{
		Height:    height,
		BlockTime: 1735689600 + int64(height)*2,
		Accounts: []ledger.AccountState{
			{
				Address:  "sultan1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq",
				Nonce:    height,
				Balances: map[string]string{"sltn": "1000000000"},
			},
		},
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	pb, err := OpenPebble(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { pb.Close() })
	return map[string]Store{"pebble": pb, "memory": NewMemory()}
}

func TestSaveLoadLatest(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Latest()
			assert.ErrorIs(t, err, ErrNotFound)

			for h := uint64(1); h <= 5; h++ {
				require.NoError(t, store.Save(sampleCheckpoint(h)))
			}

			cp, err := store.Load(3)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), cp.Height)
			assert.Equal(t, "1000000000", cp.Accounts[0].Balances["sltn"])

			latest, err := store.Latest()
			require.NoError(t, err)
			assert.Equal(t, uint64(5), latest.Height)

			_, err = store.Load(42)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSaveOverwriteSameHeight(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(sampleCheckpoint(7)))
			updated := sampleCheckpoint(7)
			updated.Accounts[0].Balances["sltn"] = "42"
			require.NoError(t, store.Save(updated))

			cp, err := store.Load(7)
			require.NoError(t, err)
			assert.Equal(t, "42", cp.Accounts[0].Balances["sltn"])
		})
	}
}

func TestPebblePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenPebble(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleCheckpoint(9)))
	require.NoError(t, store.Close())

	reopened, err := OpenPebble(dir)
	require.NoError(t, err)
	defer reopened.Close()

	latest, err := reopened.Latest()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), latest.Height)
}

func TestEncodeRoundTrip(t *testing.T) {
	// Small checkpoints stay raw, large repetitive ones compress.
	small := &Checkpoint{Height: 1}
	value, err := encode(small)
	require.NoError(t, err)
	assert.Equal(t, flagRaw, value[0])

	big := sampleCheckpoint(2)
	big.Accounts[0].Balances[strings.Repeat("factory/a/", 40)] = "1"
	value, err = encode(big)
	require.NoError(t, err)
	assert.Equal(t, flagLZ4, value[0])

	decoded, err := decode(value)
	require.NoError(t, err)
	assert.Equal(t, big.Height, decoded.Height)
}

func TestClosedStoreRejects(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Save(sampleCheckpoint(1)), ErrClosed)
	_, err := store.Latest()
	assert.ErrorIs(t, err, ErrClosed)
}
