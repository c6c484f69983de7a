package config

import (
	"fmt"
	"time"

	"github.com/sultan-labs/sultand/internal/core/amm"
	"github.com/sultan-labs/sultand/internal/corelog"
)

// Config is the complete node configuration.
type Config struct {
	ChainID string `mapstructure:"chain_id"`

	Server  ServerConfig   `mapstructure:"server"`
	Chain   ChainConfig    `mapstructure:"chain"`
	Signing SigningConfig  `mapstructure:"signing"`
	DEX     DEXConfig      `mapstructure:"dex"`
	Storage StorageConfig  `mapstructure:"storage"`
	Log     corelog.Config `mapstructure:"log"`
}

// ServerConfig covers the HTTP/WebSocket surface.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	// ReadTimeout and WriteTimeout bound slow clients.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ChainConfig covers block production and genesis.
type ChainConfig struct {
	// BlockInterval is the seal cadence.
	BlockInterval time.Duration `mapstructure:"block_interval"`
	// CheckpointEvery persists state every N blocks; 0 disables.
	CheckpointEvery uint64 `mapstructure:"checkpoint_every"`
	// SealEmpty advances height even for empty blocks.
	SealEmpty bool `mapstructure:"seal_empty"`
	// GenesisAllocations credits native balances at first start,
	// address -> atomic-unit decimal string.
	GenesisAllocations map[string]string `mapstructure:"genesis_allocations"`
}

// SigningConfig covers request authentication.
type SigningConfig struct {
	// TimestampWindow bounds request timestamp drift; 0 disables.
	TimestampWindow time.Duration `mapstructure:"timestamp_window"`
}

// DEXConfig covers pool parameters.
type DEXConfig struct {
	// DefaultFeeBps is assigned to newly created pools, in basis points
	// out of 10000.
	DefaultFeeBps uint32 `mapstructure:"default_fee_bps"`
}

// StorageConfig covers on-disk state.
type StorageConfig struct {
	// DataDir is the root for all persistent state.
	DataDir string `mapstructure:"data_dir"`
	// InMemory disables persistence entirely.
	InMemory bool `mapstructure:"in_memory"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		ChainID: "sultan-1",
		Server: ServerConfig{
			ListenAddr:   ":26657",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Chain: ChainConfig{
			BlockInterval:   2 * time.Second,
			CheckpointEvery: 1,
		},
		Signing: SigningConfig{
			TimestampWindow: 300 * time.Second,
		},
		DEX: DEXConfig{
			DefaultFeeBps: 30,
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Log: corelog.DefaultConfig(),
	}
}

// Validate rejects configurations the node cannot run with.
func Validate(cfg *Config) error {
	if cfg.ChainID == "" {
		return fmt.Errorf("chain_id must not be empty")
	}
	if cfg.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if cfg.Chain.BlockInterval <= 0 {
		return fmt.Errorf("chain.block_interval must be positive")
	}
	if cfg.DEX.DefaultFeeBps >= amm.FeeDenominator {
		return fmt.Errorf("dex.default_fee_bps must be below %d", amm.FeeDenominator)
	}
	if cfg.Signing.TimestampWindow < 0 {
		return fmt.Errorf("signing.timestamp_window must not be negative")
	}
	if !cfg.Storage.InMemory && cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must be set unless storage.in_memory is enabled")
	}
	return nil
}
