// Package config loads the relctx Config (pkg/types.Config) from a
// .relctx/config.yaml file and environment variables via viper. CLI
// flags are not read here; the cli package applies --project-root to
// the returned Config itself.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/relctx/relctx/pkg/types"
)

// Load reads configuration from cfgFile (if non-empty) or the default
// search path (.relctx/config.yaml then ./config.yaml), overlays
// environment variables, and unmarshals into a types.Config seeded with
// DefaultConfig()'s values.
func Load(cfgFile string) (*types.Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".relctx")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("RELCTX")
	v.AutomaticEnv()

	cfg := types.DefaultConfig()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// setDefaults seeds viper with DefaultConfig()'s values so an absent
// config file or unset keys still unmarshal to the documented defaults
// rather than zero values.
func setDefaults(v *viper.Viper, cfg *types.Config) {
	v.SetDefault("project_root", cfg.ProjectRoot)
	v.SetDefault("data_root", cfg.DataRoot)
	v.SetDefault("cache_size_limit_bytes", cfg.CacheSizeLimitBytes)
	v.SetDefault("cache_expiry_minutes", cfg.CacheExpiryMinutes)
	v.SetDefault("context_token_limit", cfg.ContextTokenLimit)
	v.SetDefault("enable_context_injection", cfg.EnableContextInjection)
	v.SetDefault("watch_debounce_millis", cfg.WatchDebounceMillis)
	v.SetDefault("concurrency", cfg.Concurrency)
}
