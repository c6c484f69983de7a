package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load builds the node configuration in priority order: built-in defaults,
// then the config file (when path is non-empty), then SULTAND_* environment
// variables. Dots in keys map to underscores in the environment, so
// server.listen_addr is SULTAND_SERVER_LISTEN_ADDR.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("SULTAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("chain_id", def.ChainID)

	v.SetDefault("server.listen_addr", def.Server.ListenAddr)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)

	v.SetDefault("chain.block_interval", def.Chain.BlockInterval)
	v.SetDefault("chain.checkpoint_every", def.Chain.CheckpointEvery)
	v.SetDefault("chain.seal_empty", def.Chain.SealEmpty)

	v.SetDefault("signing.timestamp_window", def.Signing.TimestampWindow)

	v.SetDefault("dex.default_fee_bps", def.DEX.DefaultFeeBps)

	v.SetDefault("storage.data_dir", def.Storage.DataDir)
	v.SetDefault("storage.in_memory", def.Storage.InMemory)

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.json", def.Log.JSON)
	v.SetDefault("log.disable_console", def.Log.DisableConsole)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.directory", def.Log.Directory)
	v.SetDefault("log.filename", def.Log.Filename)
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("log.max_age_days", def.Log.MaxAgeDays)
}
