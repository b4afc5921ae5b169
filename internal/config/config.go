// Package config holds the driver configuration: evaluation limits, the
// coverage database location, and logging switches. Configuration loads
// from a YAML file, then environment overrides, then validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full driver configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Eval     EvalConfig     `yaml:"eval"`
	Coverage CoverageConfig `yaml:"coverage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EvalConfig bounds one evaluation.
type EvalConfig struct {
	// MaxDepth bounds relation/function recursion.
	MaxDepth int `yaml:"max_depth"`
	// Timeout is the per-evaluation deadline ("30s", "5m"); empty disables.
	Timeout string `yaml:"timeout"`
	// Jobs is the number of inputs evaluated in parallel.
	Jobs int `yaml:"jobs"`
}

// CoverageConfig configures the persistent phantom coverage store.
type CoverageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the categorized logger.
type LoggingConfig struct {
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Name:    "p4spectec",
		Version: "0.1.0",
		Eval: EvalConfig{
			MaxDepth: 512,
			Timeout:  "",
			Jobs:     4,
		},
		Coverage: CoverageConfig{},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path when non-empty, layering it over the defaults, then
// applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the fuzzing harness steer limits without editing
// files: SPECTEC_MAX_DEPTH, SPECTEC_TIMEOUT, SPECTEC_JOBS,
// SPECTEC_COVERAGE_DB, SPECTEC_LOG_LEVEL.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SPECTEC_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Eval.MaxDepth = n
		}
	}
	if v := os.Getenv("SPECTEC_TIMEOUT"); v != "" {
		c.Eval.Timeout = v
	}
	if v := os.Getenv("SPECTEC_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Eval.Jobs = n
		}
	}
	if v := os.Getenv("SPECTEC_COVERAGE_DB"); v != "" {
		c.Coverage.DatabasePath = v
	}
	if v := os.Getenv("SPECTEC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	if c.Eval.MaxDepth < 1 {
		return fmt.Errorf("config: eval.max_depth must be >= 1")
	}
	if c.Eval.Jobs < 1 {
		return fmt.Errorf("config: eval.jobs must be >= 1")
	}
	if _, err := c.EvalTimeout(); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not one of debug/info/warn/error", c.Logging.Level)
	}
	return nil
}

// EvalTimeout parses the per-evaluation timeout; zero means none.
func (c *Config) EvalTimeout() (time.Duration, error) {
	if c.Eval.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Eval.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: eval.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: eval.timeout must not be negative")
	}
	return d, nil
}
