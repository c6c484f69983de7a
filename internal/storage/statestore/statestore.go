package statestore

import (
	"errors"

	"github.com/sultan-labs/sultand/internal/core/amm"
	"github.com/sultan-labs/sultand/internal/core/ledger"
	"github.com/sultan-labs/sultand/internal/core/registry"
)

var (
	ErrNotFound = errors.New("checkpoint not found")
	ErrClosed   = errors.New("statestore is closed")
)

// Checkpoint is a full snapshot of chain state after the block at Height.
type Checkpoint struct {
	Height    uint64                `json:"height"`
	BlockTime int64                 `json:"block_time"`
	Accounts  []ledger.AccountState `json:"accounts"`
	Tokens    []registry.TokenState `json:"tokens"`
	Pools     []amm.PoolState       `json:"pools"`
}

// Store persists checkpoints keyed by height. Implementations must tolerate
// concurrent readers alongside one writer.
type Store interface {
	// Save persists a checkpoint and advances the latest marker when the
	// height is the highest seen.
	Save(cp *Checkpoint) error
	// Load returns the checkpoint at an exact height.
	Load(height uint64) (*Checkpoint, error)
	// Latest returns the highest persisted checkpoint, or ErrNotFound when
	// the store is empty.
	Latest() (*Checkpoint, error)
	Close() error
}
