package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hupe1980/rpcmesh/logging"
	"github.com/hupe1980/rpcmesh/retry"
)

// Config is the declarative client configuration loaded from YAML and
// environment variables.
type Config struct {
	Logging LoggingConfig `koanf:"logging"`
	Retry   RetryConfig   `koanf:"retry"`
}

// LoggingConfig selects the built-in slog logger's level and handler.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// RetryConfig declares the retry strategy. Durations are integer
// milliseconds.
type RetryConfig struct {
	Mode                       string  `koanf:"mode"` // standard, never
	MaxAttempts                int     `koanf:"max_attempts"`
	InitialBackoffMS           int     `koanf:"initial_backoff_ms"`
	MaxBackoffMS               int     `koanf:"max_backoff_ms"`
	Jitter                     bool    `koanf:"jitter"`
	TokenBucketCapacity        int     `koanf:"token_bucket_capacity"`
	TokenBucketRefillPerSecond float64 `koanf:"token_bucket_refill_per_second"`
}

// EnvPrefix is the prefix for environment overrides. Double underscores
// separate nesting levels, e.g. RPCMESH_RETRY__MAX_ATTEMPTS.
const EnvPrefix = "RPCMESH_"

// Load reads configuration from the YAML file at path, then applies
// environment overrides and defaults. A missing file is not an error; an
// empty path skips the file entirely.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	// Default values
	if !k.Exists("logging.level") {
		k.Set("logging.level", "info")
	}
	if !k.Exists("logging.format") {
		k.Set("logging.format", "json")
	}
	if !k.Exists("retry.mode") {
		k.Set("retry.mode", "standard")
	}
	if !k.Exists("retry.max_attempts") {
		k.Set("retry.max_attempts", 3)
	}
	if !k.Exists("retry.initial_backoff_ms") {
		k.Set("retry.initial_backoff_ms", 100)
	}
	if !k.Exists("retry.max_backoff_ms") {
		k.Set("retry.max_backoff_ms", 20000)
	}
	if !k.Exists("retry.jitter") {
		k.Set("retry.jitter", true)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Logger builds the logger declared by the logging section.
func (c *Config) Logger() logging.Logger {
	return logging.NewSlogLogger(logging.ParseLevel(c.Logging.Level), c.Logging.Format)
}

// RetryStrategy builds the strategy declared by the retry section.
func (c *Config) RetryStrategy() (retry.Strategy, error) {
	switch c.Retry.Mode {
	case "never":
		return retry.Never{}, nil
	case "standard", "":
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = c.Retry.MaxAttempts
			backoff := retry.WithCap(
				retry.Exponential(time.Duration(c.Retry.InitialBackoffMS)*time.Millisecond),
				time.Duration(c.Retry.MaxBackoffMS)*time.Millisecond,
			)
			if c.Retry.Jitter {
				backoff = retry.WithJitter(backoff)
			}
			o.Backoff = backoff
			o.TokenBucketCapacity = c.Retry.TokenBucketCapacity
			o.TokenBucketRefillPerSecond = c.Retry.TokenBucketRefillPerSecond
		}), nil
	default:
		return nil, fmt.Errorf("unknown retry mode %q", c.Retry.Mode)
	}
}
