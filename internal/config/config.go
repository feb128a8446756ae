// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

// Package config loads the process-wide Vigil configuration: feature
// flags, per-operation timeout budgets, cache TTL, and remote endpoint
// and credential material. Loaded once at process start, never reloaded.
package config

import (
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vigil-health/vigil/internal/secrets"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// Config is the top-level Vigil configuration. It is read-only after
// process start; nothing in the core ever mutates it.
type Config struct {
	Networking   NetworkingConfig   `mapstructure:"networking"`
	Inference    InferenceConfig    `mapstructure:"inference"`
	Capabilities CapabilitiesConfig `mapstructure:"capabilities"`
	Storage      StorageConfig      `mapstructure:"storage"`
}

// NetworkingConfig controls how Vigil listens for connections.
type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// InferenceConfig holds the fallback-orchestration flags.
type InferenceConfig struct {
	// Enabled gates every remote path at once. When false all
	// capabilities run in fallback-only mode.
	Enabled         bool                     `mapstructure:"enabled"`
	FallbackEnabled bool                     `mapstructure:"fallback_enabled"`
	CacheEnabled    bool                     `mapstructure:"cache_enabled"`
	CacheTTL        time.Duration            `mapstructure:"cache_ttl"`
	DefaultsFile    string                   `mapstructure:"defaults_file"`
	Timeouts        map[string]time.Duration `mapstructure:"timeouts"`
}

// TimeoutFor returns the configured timeout budget for an operation,
// or zero when none is set (adapters apply their own defaults).
func (c InferenceConfig) TimeoutFor(operation string) time.Duration {
	return c.Timeouts[operation]
}

// CapabilitiesConfig holds per-capability endpoint and credential material.
type CapabilitiesConfig struct {
	Vitals   VitalsConfig   `mapstructure:"vitals"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Forecast ForecastConfig `mapstructure:"forecast"`
}

// VitalsConfig configures the health-metrics inference endpoint.
type VitalsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// RiskConfig configures the risk-scoring model.
type RiskConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// ForecastConfig configures the forecasting model endpoint.
type ForecastConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// StorageConfig selects the observation-log backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "sqlite" or "none"
	Path    string `mapstructure:"path"`
}

// secretStore resolves keyring:// URIs during Load. Package-level so
// tests can substitute a mock implementation.
var secretStore secrets.Store = secrets.NewKeyringStore()

// SetDefaults installs the default configuration values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:18890")
	v.SetDefault("inference.enabled", true)
	v.SetDefault("inference.fallback_enabled", true)
	v.SetDefault("inference.cache_enabled", true)
	v.SetDefault("inference.cache_ttl", "5m")
	v.SetDefault("inference.timeouts.health_metrics", "5s")
	v.SetDefault("inference.timeouts.risk_score", "15s")
	v.SetDefault("inference.timeouts.forecast", "20s")
	v.SetDefault("capabilities.risk.model", "claude-haiku-4-5")
	v.SetDefault("capabilities.forecast.model", "gpt-4.1-mini")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "vigil.db")
}

// SetupEnv binds environment variable overrides (prefix VIGIL_).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("VIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides, resolves keyring:// secret URIs, and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, vigilerr.Errorf(vigilerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	secrets.ResolveViperSecrets(v, secretStore)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, vigilerr.Errorf(vigilerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Networking.Listen); err != nil {
		return vigilerr.Errorf(vigilerr.CodeConfigValidateInvalidValue,
			"networking.listen %q is not host:port: %w", c.Networking.Listen, err)
	}

	if c.Inference.CacheEnabled && c.Inference.CacheTTL <= 0 {
		return vigilerr.Errorf(vigilerr.CodeConfigValidateInvalidValue,
			"inference.cache_ttl must be positive when the cache is enabled, got %s", c.Inference.CacheTTL)
	}

	for op, timeout := range c.Inference.Timeouts {
		if timeout <= 0 {
			return vigilerr.Errorf(vigilerr.CodeConfigValidateInvalidValue,
				"inference.timeouts.%s must be positive, got %s", op, timeout)
		}
	}

	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.Path == "" {
			return vigilerr.New(vigilerr.CodeConfigValidateInvalidValue,
				"storage.path is required for the sqlite backend")
		}
	case "none":
	default:
		return vigilerr.Errorf(vigilerr.CodeConfigValidateInvalidValue,
			"storage.backend %q is not one of sqlite/none", c.Storage.Backend)
	}

	return nil
}
