package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

const (
	defaultInterval = 500 * time.Millisecond
	defaultBackend  = "auto"
	envInterval     = "MEMTRAIL_INTERVAL"
	envBackend      = "MEMTRAIL_BACKEND"
)

// Config aggregates tunable defaults for a profiling run. Command-line
// flags still win over anything loaded here.
type Config struct {
	Interval time.Duration
	Backend  string
}

// Load builds a Config from an optional JSON file path plus environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Config{
		Interval: defaultInterval,
		Backend:  defaultBackend,
	}

	if path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		if fileCfg.Interval != 0 {
			cfg.Interval = fileCfg.Interval
		}
		if fileCfg.Backend != "" {
			cfg.Backend = fileCfg.Backend
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envInterval); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.Interval = dur
		} else if err != nil {
			log.Printf("invalid %s value %q: %v", envInterval, v, err)
		}
	}

	if v := os.Getenv(envBackend); v != "" {
		cfg.Backend = v
	}
}

type fileConfig struct {
	Interval string `json:"interval"`
	Backend  string `json:"backend"`
}

func loadFromFile(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	var raw fileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg, err
	}

	if raw.Interval != "" {
		dur, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return cfg, fmt.Errorf("parse interval: %w", err)
		}
		if dur <= 0 {
			return cfg, errors.New("interval must be > 0")
		}
		cfg.Interval = dur
	}
	cfg.Backend = raw.Backend

	return cfg, nil
}
