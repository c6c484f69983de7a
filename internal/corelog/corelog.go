package corelog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config for logging.
type Config struct {
	// Level is the minimum level emitted: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
	// JSON switches console output from the human console writer to raw
	// JSON lines.
	JSON bool `mapstructure:"json"`
	// DisableConsole turns off terminal output entirely.
	DisableConsole bool `mapstructure:"disable_console"`
	// File enables rolling-file output into Directory.
	File       bool   `mapstructure:"file"`
	Directory  string `mapstructure:"directory"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfig logs human-readable output to stderr only.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Directory:  "logs",
		Filename:   "sultand.log",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// New builds the process logger. unit tags every line with the emitting
// subsystem.
func New(unit string, cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	if !cfg.DisableConsole && !cfg.JSON {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		out.FormatLevel = func(i any) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s| %s |", i, unit))
		}
		writers = append(writers, out)
	}
	if !cfg.DisableConsole && cfg.JSON {
		writers = append(writers, os.Stdout)
	}
	if cfg.File {
		if w := newRollingFile(cfg); w != nil {
			writers = append(writers, w)
		}
	}
	if len(writers) == 0 {
		return zerolog.Nop()
	}

	return zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().
		Str("app", "sultand").
		Str("unit", unit).
		Timestamp().
		Logger()
}

func newRollingFile(cfg Config) io.Writer {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "cannot create log directory %s: %v\n", cfg.Directory, err)
		return nil
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, cfg.Filename),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}
