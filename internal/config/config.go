// Package config loads runtime configuration from the environment and an
// optional YAML file. Environment variables use the DRAFTFORGE_ prefix and
// override file values (DRAFTFORGE_MATCH_FLOOR, DRAFTFORGE_DB_PATH, ...).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for all settings.
const EnvPrefix = "DRAFTFORGE"

// Config is the full runtime configuration.
type Config struct {
	// DBPath is the sqlite database location.
	DBPath string `mapstructure:"db_path"`

	// Thresholds for matching and duplicate detection.
	MatchFloor     float64 `mapstructure:"match_floor"`
	RerankFloor    float64 `mapstructure:"rerank_floor"`
	DuplicateFloor float64 `mapstructure:"duplicate_floor"`
	TopK           int     `mapstructure:"top_k"`
	EmbedTextCap   int     `mapstructure:"embed_text_cap"`

	// AllowFallback enables web fallback when no stored template matches.
	AllowFallback bool `mapstructure:"allow_fallback"`
	// FallbackCandidates bounds web candidates fetched per fallback run.
	FallbackCandidates int `mapstructure:"fallback_candidates"`

	// Per-capability timeouts.
	EmbedTimeout    time.Duration `mapstructure:"embed_timeout"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	SearchTimeout   time.Duration `mapstructure:"search_timeout"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`

	// Logging.
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// MetricsAddr enables a /metrics listener when non-empty (":9090").
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Load reads configuration from the environment and, when path is non-empty,
// a YAML file. Environment values win.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "draftforge.db")
	v.SetDefault("match_floor", 0.75)
	v.SetDefault("rerank_floor", 0.60)
	v.SetDefault("duplicate_floor", 0.90)
	v.SetDefault("top_k", 5)
	v.SetDefault("embed_text_cap", 1000)
	v.SetDefault("allow_fallback", true)
	v.SetDefault("fallback_candidates", 5)
	v.SetDefault("embed_timeout", 30*time.Second)
	v.SetDefault("generate_timeout", 120*time.Second)
	v.SetDefault("search_timeout", 30*time.Second)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_addr", "")
}

// Validate rejects out-of-range thresholds.
func (c *Config) Validate() error {
	for name, val := range map[string]float64{
		"match_floor":     c.MatchFloor,
		"rerank_floor":    c.RerankFloor,
		"duplicate_floor": c.DuplicateFloor,
	} {
		if val <= 0 || val > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, val)
		}
	}
	if c.DuplicateFloor < c.MatchFloor {
		return fmt.Errorf("duplicate_floor (%v) must not be below match_floor (%v)",
			c.DuplicateFloor, c.MatchFloor)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.EmbedTextCap <= 0 {
		return fmt.Errorf("embed_text_cap must be positive, got %d", c.EmbedTextCap)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}
