// Package config loads and validates the validator engine configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the validator engine configuration.
type Config struct {
	// DatabasePath is the SQLite database file location.
	DatabasePath string `yaml:"database_path"`

	// ValidatorHotkey identifies this validator in the registry; used
	// for the stake gate before weight submission.
	ValidatorHotkey string `yaml:"validator_hotkey"`

	// AllocationInterval is the minimum time between weight allocations.
	AllocationInterval time.Duration `yaml:"allocation_interval"`

	// AllocationTimeout bounds a whole allocation cycle, including the
	// weight submission call.
	AllocationTimeout time.Duration `yaml:"allocation_timeout"`

	// MinValidatorStake is the minimum stake required to submit weights.
	MinValidatorStake float64 `yaml:"min_validator_stake"`

	// DiversityWindowDays is the trailing window for the distinct-market
	// aggregate.
	DiversityWindowDays int `yaml:"diversity_window_days"`

	// DiversityCutoffFraction scales the average distinct-market count
	// into the diversity cutoff.
	DiversityCutoffFraction float64 `yaml:"diversity_cutoff_fraction"`

	// StaleScoreAfter is how long a miner may go without a score update
	// before the staleness penalty applies.
	StaleScoreAfter time.Duration `yaml:"stale_score_after"`

	// MetricsAddr, if set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		DatabasePath:            "data/validator.db",
		AllocationInterval:      3 * time.Hour,
		AllocationTimeout:       3 * time.Minute,
		MinValidatorStake:       1000.0,
		DiversityWindowDays:     5,
		DiversityCutoffFraction: 0.75,
		StaleScoreAfter:         5 * 24 * time.Hour,
	}
}

// Load reads a YAML config file over the defaults and validates the
// result. An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("config: database_path is required")
	}
	if c.AllocationInterval <= 0 {
		return fmt.Errorf("config: allocation_interval must be positive")
	}
	if c.AllocationTimeout <= 0 {
		return fmt.Errorf("config: allocation_timeout must be positive")
	}
	if c.MinValidatorStake < 0 {
		return fmt.Errorf("config: min_validator_stake must not be negative")
	}
	if c.DiversityWindowDays <= 0 {
		return fmt.Errorf("config: diversity_window_days must be positive")
	}
	if c.DiversityCutoffFraction < 0 || c.DiversityCutoffFraction > 1 {
		return fmt.Errorf("config: diversity_cutoff_fraction must be in [0,1]")
	}
	if c.StaleScoreAfter <= 0 {
		return fmt.Errorf("config: stale_score_after must be positive")
	}
	return nil
}
