// Package config loads the daemon's policy configuration: the knobs that
// are tuning parameters rather than protocol (§9 Open Question 2), kept out
// of compiled-in constants so a host can retune them without a rebuild.
// Shaped after the lvt CLI's config loader (YAML file, default-on-missing,
// Validate before use).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPath, when set, overrides the config file location.
	EnvPath = "MINIMACTD_CONFIG"

	// DefaultPath is used when EnvPath is unset and no path is given.
	DefaultPath = "/etc/minimactd/config.yaml"
)

// Config is the daemon's tunable policy.
type Config struct {
	// DemotionRatio is the incorrect/usage threshold past which a template
	// prediction is demoted to its concrete fallback (§4.5.3).
	DemotionRatio float64 `yaml:"demotion_ratio"`

	// MinUsesForDemotion guards against demoting a template off a single
	// early miss; a template must be used at least this many times before
	// its error ratio is judged.
	MinUsesForDemotion int64 `yaml:"min_uses_for_demotion"`

	// SimulatorMaxCombinations is loaded and validated with the rest of the
	// policy, but neither the Conditional Path Simulator nor the Engine
	// reads it: Simulate enumerates every boolean assignment of a guard
	// chain (2^N for N independent gates) without any cap.
	SimulatorMaxCombinations int `yaml:"simulator_max_combinations"`

	// Version tracks the config file schema for future migrations.
	Version string `yaml:"version,omitempty"`
}

// DefaultConfig returns the daemon's built-in policy.
func DefaultConfig() *Config {
	return &Config{
		DemotionRatio:            0.2,
		MinUsesForDemotion:       5,
		SimulatorMaxCombinations: 1024,
		Version:                  "1.0",
	}
}

// Load reads the config file at path, or at EnvPath/DefaultPath if path is
// empty. A missing file is not an error: DefaultConfig is returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects policy values that would make the Predictor or Simulator
// misbehave rather than merely perform poorly.
func (c *Config) Validate() error {
	if c.DemotionRatio < 0 || c.DemotionRatio > 1 {
		return fmt.Errorf("demotion_ratio must be within [0,1], got %v", c.DemotionRatio)
	}
	if c.MinUsesForDemotion < 1 {
		return fmt.Errorf("min_uses_for_demotion must be >= 1, got %d", c.MinUsesForDemotion)
	}
	if c.SimulatorMaxCombinations < 1 {
		return fmt.Errorf("simulator_max_combinations must be >= 1, got %d", c.SimulatorMaxCombinations)
	}
	return nil
}
