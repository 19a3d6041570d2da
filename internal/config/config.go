// Package config loads CLI configuration from the environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	API    APIConfig
	Client ClientConfig
}

type APIConfig struct {
	URL string // internal only

	ReadKey  string `env:"PURPLEAIR_READ_API_KEY, required"`
	WriteKey string `env:"PURPLEAIR_WRITE_API_KEY"`

	// VerifyKeys checks the configured keys against the API before use.
	VerifyKeys bool `env:"PURPLEAIR_VERIFY_KEYS, default=true"`

	CacheTTLSeconds int `env:"PURPLEAIR_CACHE_TTL_SECS, default=60"`
	CacheMaxEntries int `env:"PURPLEAIR_CACHE_MAX_ENTRIES, default=256"`
}

type ClientConfig struct {
	OutgoingHTTPMaxIdleConns    int `env:"PURPLEAIR_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"PURPLEAIR_OUTGOING_MAX_CONNS_PER_HOST, default=20"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	err = cfg.API.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid api configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the API configuration is usable.
func (c *APIConfig) Validate() error {
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("PURPLEAIR_CACHE_TTL_SECS must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("PURPLEAIR_CACHE_MAX_ENTRIES must be positive")
	}
	return nil
}

// CacheTTL returns the configured TTL as a duration.
func (c *APIConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
