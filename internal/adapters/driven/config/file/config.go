// Package file provides TOML-backed engine configuration.
package file

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default engine tuning. Conservative enough to stay under provider
// rate limits without configuration.
const (
	DefaultBatchSize  = 100
	DefaultWorkers    = 4
	DefaultCooldownMS = 200
	DefaultPageSize   = 100
)

// Config is the engine configuration loaded from a TOML file.
type Config struct {
	// BatchSize is the committer flush threshold.
	BatchSize int `toml:"batch_size"`

	// Workers bounds the number of concurrently running scopes.
	Workers int `toml:"workers"`

	// CooldownMS is the pause between launched scopes, in milliseconds.
	CooldownMS int `toml:"cooldown_ms"`

	// PageSize is the requested provider page size.
	PageSize int `toml:"page_size"`

	// DataDir is the SQLite store directory.
	DataDir string `toml:"data_dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:  DefaultBatchSize,
		Workers:    DefaultWorkers,
		CooldownMS: DefaultCooldownMS,
		PageSize:   DefaultPageSize,
	}
}

// Cooldown returns the cooldown as a duration.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownMS) * time.Millisecond
}

// Load reads configuration from a TOML file, filling unset fields with
// defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.CooldownMS <= 0 {
		cfg.CooldownMS = DefaultCooldownMS
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	return cfg, nil
}

// Save writes the configuration to a TOML file.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
