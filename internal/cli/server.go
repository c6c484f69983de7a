package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sultan-labs/sultand/internal/config"
	"github.com/sultan-labs/sultand/internal/core/amm"
	"github.com/sultan-labs/sultand/internal/core/amount"
	"github.com/sultan-labs/sultand/internal/core/block"
	"github.com/sultan-labs/sultand/internal/core/denom"
	"github.com/sultan-labs/sultand/internal/core/ledger"
	"github.com/sultan-labs/sultand/internal/core/registry"
	"github.com/sultan-labs/sultand/internal/core/tx"
	"github.com/sultan-labs/sultand/internal/corelog"
	"github.com/sultan-labs/sultand/internal/rpc"
	"github.com/sultan-labs/sultand/internal/storage/statestore"
	"github.com/sultan-labs/sultand/internal/storage/txindex"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Sultan node",
	Long: `Start the node: restores the latest checkpoint (or applies genesis
allocations on first start), then serves the HTTP/WebSocket API and seals
blocks on the configured cadence until interrupted.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.RunE = runServer
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log := corelog.New("node", cfg.Log)

	node, cleanup, err := buildNode(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      node.server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := node.producer.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.ListenAddr).Msg("api server listening")
		err := httpSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	log.Info().Str("chain_id", cfg.ChainID).Msg("node started")
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("node stopped")
	return nil
}

// node bundles the assembled components.
type node struct {
	producer *block.Producer
	server   *rpc.Server
}

// buildNode assembles storage, core state and the API surface from config.
// The returned cleanup closes the stores.
func buildNode(cfg *config.Config, log zerolog.Logger) (*node, func(), error) {
	allocations, total, err := parseGenesis(cfg.Chain.GenesisAllocations)
	if err != nil {
		return nil, nil, err
	}

	l := ledger.New()
	tokens := registry.New(l, total)
	pools := amm.NewEngine(l, tokens)
	engine := tx.NewEngine(l, tokens, pools, tx.Options{
		DefaultFeeBps:   cfg.DEX.DefaultFeeBps,
		TimestampWindow: cfg.Signing.TimestampWindow,
	}, log)

	store, index, cleanup, err := openStores(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	hub := rpc.NewHub(log)
	producer := block.NewProducer(engine, index, store, l, tokens, pools, hub, block.Options{
		Interval:        cfg.Chain.BlockInterval,
		CheckpointEvery: cfg.Chain.CheckpointEvery,
		SealEmpty:       cfg.Chain.SealEmpty,
	}, log)

	// First start applies genesis; any later start restores the newest
	// checkpoint instead.
	if _, err := store.Latest(); errors.Is(err, statestore.ErrNotFound) {
		if err := applyGenesis(l, allocations); err != nil {
			cleanup()
			return nil, nil, err
		}
		log.Info().Int("accounts", len(allocations)).Str("supply", amount.Format(total)).Msg("genesis applied")
	} else if err != nil {
		cleanup()
		return nil, nil, err
	} else if err := producer.RestoreLatest(); err != nil {
		cleanup()
		return nil, nil, err
	}

	server := rpc.NewServer(cfg.ChainID, producer, l, tokens, pools, index, hub, log)
	return &node{producer: producer, server: server}, cleanup, nil
}

func openStores(cfg *config.Config, log zerolog.Logger) (statestore.Store, *txindex.Index, func(), error) {
	if cfg.Storage.InMemory {
		index, err := txindex.Open(":memory:")
		if err != nil {
			return nil, nil, nil, err
		}
		store := statestore.NewMemory()
		return store, index, func() { index.Close() }, nil
	}

	store, err := statestore.OpenPebble(filepath.Join(cfg.Storage.DataDir, "state"))
	if err != nil {
		return nil, nil, nil, err
	}
	index, err := txindex.Open(filepath.Join(cfg.Storage.DataDir, "txindex.db"))
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := index.Close(); err != nil {
			log.Error().Err(err).Msg("close txindex")
		}
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close statestore")
		}
	}
	return store, index, cleanup, nil
}

// parseGenesis validates the configured allocations and sums the native
// supply they create.
func parseGenesis(raw map[string]string) (map[string]*uint256.Int, *uint256.Int, error) {
	allocations := make(map[string]*uint256.Int, len(raw))
	total := new(uint256.Int)
	for address, s := range raw {
		v, err := amount.Parse(s)
		if err != nil {
			return nil, nil, fmt.Errorf("genesis allocation for %s: %w", address, err)
		}
		sum, err := amount.Add(total, v)
		if err != nil {
			return nil, nil, fmt.Errorf("genesis supply: %w", err)
		}
		allocations[address] = v
		total = sum
	}
	return allocations, total, nil
}

func applyGenesis(l *ledger.Ledger, allocations map[string]*uint256.Int) error {
	for address, v := range allocations {
		if err := l.Credit(address, denom.Native, v); err != nil {
			return fmt.Errorf("credit genesis allocation for %s: %w", address, err)
		}
	}
	return nil
}
