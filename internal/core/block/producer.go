package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sultan-labs/sultand/internal/core/amm"
	"github.com/sultan-labs/sultand/internal/core/ledger"
	"github.com/sultan-labs/sultand/internal/core/registry"
	"github.com/sultan-labs/sultand/internal/core/tx"
	"github.com/sultan-labs/sultand/internal/storage/statestore"
	"github.com/sultan-labs/sultand/internal/storage/txindex"
)

// Publisher receives chain events as they happen. Implementations must not
// block; the producer calls into them on its sealing path.
type Publisher interface {
	PublishTx(rec txindex.Record)
	PublishBlock(b Block)
}

// NopPublisher drops all events.
type NopPublisher struct{}

func (NopPublisher) PublishTx(txindex.Record) {}
func (NopPublisher) PublishBlock(Block)       {}

// Options tune block production.
type Options struct {
	// Interval between sealed blocks.
	Interval time.Duration
	// CheckpointEvery persists a state checkpoint every N blocks. Zero
	// disables checkpointing.
	CheckpointEvery uint64
	// SealEmpty seals height-advancing blocks even with no transactions.
	SealEmpty bool
	// Clock overrides time.Now.
	Clock func() time.Time
}

// Producer accepts signed requests, executes them synchronously through the
// request engine, and seals the accepted ones into blocks on a fixed
// cadence. Execution is final at submission; sealing only assigns a height
// and persists a checkpoint, so a crash between the two loses confirmation
// metadata but never re-executes a transaction.
type Producer struct {
	mu      sync.Mutex
	engine  *tx.Engine
	index   *txindex.Index
	store   statestore.Store
	ledger  *ledger.Ledger
	tokens  *registry.Registry
	pools   *amm.Engine
	pub     Publisher
	opts    Options
	log     zerolog.Logger

	height   uint64
	lastHash string
	lastTime int64
	pending  []string
}

// NewProducer wires a producer. pub may be nil.
func NewProducer(
	engine *tx.Engine,
	index *txindex.Index,
	store statestore.Store,
	l *ledger.Ledger,
	tokens *registry.Registry,
	pools *amm.Engine,
	pub Publisher,
	opts Options,
	log zerolog.Logger,
) *Producer {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Producer{
		engine: engine,
		index:  index,
		store:  store,
		ledger: l,
		tokens: tokens,
		pools:  pools,
		pub:    pub,
		opts:   opts,
		log:    log,
	}
}

// RestoreLatest loads the newest checkpoint and rebuilds in-memory state
// from it. A missing checkpoint means genesis; that is not an error.
func (p *Producer) RestoreLatest() error {
	cp, err := p.store.Latest()
	if err == statestore.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if err := p.ledger.Restore(cp.Accounts); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	if err := p.tokens.Restore(cp.Tokens); err != nil {
		return fmt.Errorf("restore registry: %w", err)
	}
	if err := p.pools.Restore(cp.Pools); err != nil {
		return fmt.Errorf("restore pools: %w", err)
	}
	p.mu.Lock()
	p.height = cp.Height
	p.lastTime = cp.BlockTime
	p.mu.Unlock()
	p.log.Info().Uint64("height", cp.Height).Msg("state restored from checkpoint")
	return nil
}

// Submit executes one signed request. Accepted transactions are indexed as
// pending and announced; they confirm at the next seal.
func (p *Producer) Submit(req tx.Request, env tx.Envelope) (tx.Applied, error) {
	applied, err := p.engine.Apply(req, env)
	if err != nil {
		return applied, err
	}

	payload, perr := tx.SigningBytes(req)
	if perr != nil {
		payload = nil
	}
	rec := txindex.Record{
		Hash:      applied.Hash,
		Type:      string(req.Type()),
		Sender:    req.SignerAddress(),
		Payload:   payload,
		Result:    applied.Result.String(),
		Status:    txindex.StatusPending,
		CreatedAt: p.opts.Clock().Unix(),
	}
	if err := p.index.InsertPending(rec); err != nil {
		// State already moved; the index is best-effort bookkeeping.
		p.log.Error().Str("tx", applied.Hash).Err(err).Msg("failed to index transaction")
	}

	p.mu.Lock()
	p.pending = append(p.pending, applied.Hash)
	p.mu.Unlock()

	p.pub.PublishTx(rec)
	return applied, nil
}

// Run seals blocks on the configured cadence until ctx is done.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	p.log.Info().Dur("interval", p.opts.Interval).Msg("block producer started")
	for {
		select {
		case <-ctx.Done():
			// Seal whatever is pending so accepted txs confirm before
			// shutdown.
			if _, err := p.Seal(); err != nil {
				p.log.Error().Err(err).Msg("final seal failed")
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Seal(); err != nil {
				p.log.Error().Err(err).Msg("seal failed")
			}
		}
	}
}

// Seal closes the current block: pending transactions confirm at the new
// height and a checkpoint is persisted on the configured interval. With no
// pending transactions and SealEmpty off it is a no-op.
func (p *Producer) Seal() (Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 && !p.opts.SealEmpty {
		return Block{}, nil
	}

	now := p.opts.Clock().Unix()
	b := Block{
		Height:   p.height + 1,
		Parent:   p.lastHash,
		Time:     now,
		TxHashes: p.pending,
	}
	b.Hash = ComputeHash(b.Height, b.Parent, b.Time, b.TxHashes)

	if err := p.index.ConfirmBlock(b.Height, b.TxHashes); err != nil {
		return Block{}, fmt.Errorf("confirm block %d: %w", b.Height, err)
	}

	p.height = b.Height
	p.lastHash = b.Hash
	p.lastTime = b.Time
	p.pending = nil

	if p.opts.CheckpointEvery > 0 && b.Height%p.opts.CheckpointEvery == 0 {
		cp := &statestore.Checkpoint{
			Height:    b.Height,
			BlockTime: b.Time,
			Accounts:  p.ledger.Snapshot(),
			Tokens:    p.tokens.Snapshot(),
			Pools:     p.pools.Snapshot(),
		}
		if err := p.store.Save(cp); err != nil {
			p.log.Error().Uint64("height", b.Height).Err(err).Msg("checkpoint save failed")
		}
	}

	p.log.Info().Uint64("height", b.Height).Int("txs", len(b.TxHashes)).Msg("block sealed")
	p.pub.PublishBlock(b)
	return b, nil
}

// Status is the producer's public view for the status endpoint.
type Status struct {
	Height        uint64 `json:"height"`
	LastBlockHash string `json:"last_block_hash"`
	LastBlockTime int64  `json:"last_block_time"`
	PendingTxs    int    `json:"pending_txs"`
}

func (p *Producer) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Height:        p.height,
		LastBlockHash: p.lastHash,
		LastBlockTime: p.lastTime,
		PendingTxs:    len(p.pending),
	}
}
