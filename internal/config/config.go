// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

// Config is the top-level Mnemos configuration.
type Config struct {
	Networking NetworkingConfig `mapstructure:"networking"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Search     SearchConfig     `mapstructure:"search"`
	Cluster    ClusterConfig    `mapstructure:"cluster"`
}

// NetworkingConfig controls how Mnemos listens for connections.
type NetworkingConfig struct {
	Listen string `mapstructure:"listen"`
	// CORSOrigins lists browser origins allowed to call the API. Empty means
	// no CORS headers are served.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ProviderConfig holds credentials and model selection for the embedding
// provider.
type ProviderConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	Dimensions     int           `mapstructure:"dimensions"`
	Timeout        time.Duration `mapstructure:"timeout"`
	HealthCooldown time.Duration `mapstructure:"health_cooldown"`
}

// StorageConfig selects the durability backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// SearchConfig carries the segment-search tuning. The defaults are
// empirical constants, preserved as configuration rather than re-derived.
type SearchConfig struct {
	SegmentThreshold float64 `mapstructure:"segment_threshold"`
	SegmentTopK      int     `mapstructure:"segment_top_k"`
}

// ClusterConfig carries the k-means tuning.
type ClusterConfig struct {
	Seed          int64 `mapstructure:"seed"`
	MaxIterations int   `mapstructure:"max_iterations"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix MNEMOS_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults. Every key needs one, even if empty: AutomaticEnv only
	// resolves keys viper already knows about, so a key without a default
	// would silently ignore its MNEMOS_ environment variable.
	v.SetDefault("networking.listen", "127.0.0.1:18790")
	v.SetDefault("networking.cors_origins", []string{})
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.model", "text-embedding-3-small")
	v.SetDefault("provider.dimensions", 1536)
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.health_cooldown", "30s")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", defaultStoragePath())
	v.SetDefault("search.segment_threshold", 0.3)
	v.SetDefault("search.segment_top_k", 5)
	v.SetDefault("cluster.seed", 0)
	v.SetDefault("cluster.max_iterations", 100)

	// Environment
	v.SetEnvPrefix("MNEMOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, mnemoserr.Errorf(mnemoserr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// defaultStoragePath resolves the per-user data location, falling back to the
// working directory when the home directory cannot be determined.
func defaultStoragePath() string {
	if p, err := DefaultDataPath(); err == nil {
		return p
	}
	return "mnemos.db"
}

// Validate checks the configuration for logical errors. It returns a slice
// of all validation errors found, collecting all issues rather than stopping
// at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateProvider()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateSearch()...)
	errs = append(errs, c.validateCluster()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: networking.listen must be a valid host:port address, got %q: %w",
			c.Networking.Listen, err,
		))
		return errs
	}

	// Host can be empty (e.g., ":8080"), which is valid.
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be between 1 and 65535, got %d",
			port,
		))
	}

	return errs
}

func (c *Config) validateProvider() []error {
	var errs []error

	if c.Provider.Model == "" {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue, "config: provider.model must not be empty"))
	}

	if c.Provider.Dimensions <= 0 {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: provider.dimensions must be greater than 0, got %d",
			c.Provider.Dimensions,
		))
	}

	if c.Provider.Timeout <= 0 {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: provider.timeout must be greater than 0, got %s",
			c.Provider.Timeout,
		))
	}

	if c.Provider.HealthCooldown <= 0 {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: provider.health_cooldown must be greater than 0, got %s",
			c.Provider.HealthCooldown,
		))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q",
			c.Storage.Backend,
		))
	}

	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: storage.path must not be empty for the sqlite backend"))
	}

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	if c.Search.SegmentThreshold < -1 || c.Search.SegmentThreshold > 1 {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: search.segment_threshold must be within [-1, 1], got %g",
			c.Search.SegmentThreshold,
		))
	}

	if c.Search.SegmentTopK < 1 {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: search.segment_top_k must be at least 1, got %d",
			c.Search.SegmentTopK,
		))
	}

	return errs
}

func (c *Config) validateCluster() []error {
	var errs []error

	if c.Cluster.MaxIterations <= 0 {
		errs = append(errs, mnemoserr.Errorf(mnemoserr.CodeConfigValidateInvalidValue,
			"config: cluster.max_iterations must be greater than 0, got %d",
			c.Cluster.MaxIterations,
		))
	}

	return errs
}
