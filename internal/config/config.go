// Package config loads runtime configuration for the fetch layer.
//
// Precedence, highest first: runtime overrides passed to Load, GOTIDE_*
// environment variables, built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FetchConfig controls the data fetcher.
type FetchConfig struct {
	// Concurrency bounds the number of in-flight fetches.
	Concurrency int `mapstructure:"concurrency"`

	// RateLimit caps fetches per second across all workers. 0 disables
	// rate limiting.
	RateLimit float64 `mapstructure:"rate_limit"`

	// Timeout bounds a single fetch call.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.concurrency", 8)
	v.SetDefault("fetch.rate_limit", 0.0)
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("logging.level", "info")
}

// Load builds a Config from defaults, GOTIDE_* environment variables and
// optional runtime overrides, in ascending precedence. Override maps may be
// nested (`{"fetch": {"concurrency": 4}}`) or use dotted keys.
func Load(overrides ...map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GOTIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, override := range overrides {
		for key, value := range flatten("", override) {
			v.Set(key, value)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flatten rewrites nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for k, v := range flatten(key, nested) {
				out[k] = v
			}
			continue
		}
		out[key] = value
	}
	return out
}

var validLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

func (c *Config) validate() error {
	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch.concurrency must be at least 1, got %d", c.Fetch.Concurrency)
	}
	if c.Fetch.RateLimit < 0 {
		return fmt.Errorf("fetch.rate_limit must not be negative, got %g", c.Fetch.RateLimit)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if _, ok := validLevels[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
