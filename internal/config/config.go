// Package config loads and validates the playtrack configuration from
// defaults, an optional YAML file, and PLAYTRACK_-prefixed environment
// variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Store       StoreConfig       `koanf:"store"`
	Webhook     WebhookConfig     `koanf:"webhook"`
	Poll        PollConfig        `koanf:"poll"`
	Cache       CacheConfig       `koanf:"cache"`
	Retention   RetentionConfig   `koanf:"retention"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Server      ServerConfig      `koanf:"server"`

	// Principals is the tracked identity list, inline or loaded from
	// roster_path.
	Principals []string `koanf:"principals"`
	RosterPath string   `koanf:"roster_path"`
}

// StoreConfig holds external key-value store settings.
type StoreConfig struct {
	BaseURL        string `koanf:"base_url"`
	UniverseID     string `koanf:"universe_id"`
	Datastore      string `koanf:"datastore"`
	APIKey         string `koanf:"api_key"`
	PageLimit      int    `koanf:"page_limit"`
	PageDelay      string `koanf:"page_delay"`
	MaxAttempts    int    `koanf:"max_attempts"`
	RetryDelay     string `koanf:"retry_delay"`
	RequestTimeout string `koanf:"request_timeout"`
}

// WebhookConfig holds notification sink settings.
type WebhookConfig struct {
	URL     string `koanf:"url"`
	Timeout string `koanf:"timeout"`
}

// PollConfig holds the poll cycle cadence.
type PollConfig struct {
	Interval string `koanf:"interval"`
}

// CacheConfig holds the aggregate freshness windows.
type CacheConfig struct {
	DailyTTL   string `koanf:"daily_ttl"`
	MonthlyTTL string `koanf:"monthly_ttl"`
}

// RetentionConfig holds the purge horizons and sweep cadence.
type RetentionConfig struct {
	LedgerDays    int    `koanf:"ledger_days"`
	CacheDays     int    `koanf:"cache_days"`
	SweepInterval string `koanf:"sweep_interval"`
}

// PersistenceConfig selects and configures the snapshot backend.
type PersistenceConfig struct {
	Type         string `koanf:"type"` // file | postgres
	Path         string `koanf:"path"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// ServerConfig holds the ops HTTP server settings.
type ServerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
	Mode    string `koanf:"mode"` // debug | release
}

// StoreEndpoint returns the universe-scoped base URL for the store API.
func (c StoreConfig) StoreEndpoint() string {
	return fmt.Sprintf("%s/universes/%s", strings.TrimRight(c.BaseURL, "/"), c.UniverseID)
}

func parsePositiveDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %q", field, value)
	}
	return d, nil
}

// PollInterval returns the parsed poll cadence. Call after Validate.
func (c *Config) PollInterval() time.Duration {
	d, _ := time.ParseDuration(c.Poll.Interval)
	return d
}

// SweepInterval returns the parsed retention-sweep cadence.
func (c *Config) SweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.Retention.SweepInterval)
	return d
}

// DailyTTL returns the parsed daily freshness window.
func (c *Config) DailyTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.DailyTTL)
	return d
}

// MonthlyTTL returns the parsed monthly freshness window.
func (c *Config) MonthlyTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.MonthlyTTL)
	return d
}

// LedgerRetention returns the ledger purge horizon as a duration.
func (c *Config) LedgerRetention() time.Duration {
	return time.Duration(c.Retention.LedgerDays) * 24 * time.Hour
}

// CacheRetention returns the aggregate purge horizon as a duration.
func (c *Config) CacheRetention() time.Duration {
	return time.Duration(c.Retention.CacheDays) * 24 * time.Hour
}

// PageDelay returns the inter-page throttle delay.
func (c *Config) PageDelay() time.Duration {
	d, _ := time.ParseDuration(c.Store.PageDelay)
	return d
}

// RetryDelay returns the initial retry backoff delay.
func (c *Config) RetryDelay() time.Duration {
	d, _ := time.ParseDuration(c.Store.RetryDelay)
	return d
}

// RequestTimeout returns the per-request timeout against the store.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Store.RequestTimeout)
	return d
}

// WebhookTimeout returns the per-delivery timeout for the sink.
func (c *Config) WebhookTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Webhook.Timeout)
	return d
}

// Validate checks every configuration input; any failure aborts startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.BaseURL) == "" {
		return fmt.Errorf("store.base_url is required")
	}
	if strings.TrimSpace(c.Store.UniverseID) == "" {
		return fmt.Errorf("store.universe_id is required")
	}
	if strings.TrimSpace(c.Store.Datastore) == "" {
		return fmt.Errorf("store.datastore is required")
	}
	if strings.TrimSpace(c.Store.APIKey) == "" {
		return fmt.Errorf("store.api_key is required")
	}
	if c.Store.PageLimit <= 0 {
		return fmt.Errorf("store.page_limit must be > 0")
	}
	if c.Store.MaxAttempts <= 0 {
		return fmt.Errorf("store.max_attempts must be > 0")
	}
	for field, value := range map[string]string{
		"store.page_delay":         c.Store.PageDelay,
		"store.retry_delay":        c.Store.RetryDelay,
		"store.request_timeout":    c.Store.RequestTimeout,
		"webhook.timeout":          c.Webhook.Timeout,
		"poll.interval":            c.Poll.Interval,
		"cache.daily_ttl":          c.Cache.DailyTTL,
		"cache.monthly_ttl":        c.Cache.MonthlyTTL,
		"retention.sweep_interval": c.Retention.SweepInterval,
	} {
		if field == "store.page_delay" {
			// Zero disables the inter-page throttle.
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid %s %q: %w", field, value, err)
			}
			continue
		}
		if _, err := parsePositiveDuration(field, value); err != nil {
			return err
		}
	}

	if strings.TrimSpace(c.Webhook.URL) == "" {
		return fmt.Errorf("webhook.url is required")
	}

	if c.Retention.LedgerDays <= 0 {
		return fmt.Errorf("retention.ledger_days must be > 0")
	}
	if c.Retention.CacheDays <= 0 {
		return fmt.Errorf("retention.cache_days must be > 0")
	}

	switch c.Persistence.Type {
	case "file":
		if strings.TrimSpace(c.Persistence.Path) == "" {
			return fmt.Errorf("persistence.path is required for the file backend")
		}
	case "postgres":
		if strings.TrimSpace(c.Persistence.DSN) == "" {
			return fmt.Errorf("persistence.dsn is required for the postgres backend")
		}
		if c.Persistence.MaxOpenConns <= 0 {
			return fmt.Errorf("persistence.max_open_conns must be > 0")
		}
		if c.Persistence.MaxIdleConns <= 0 {
			return fmt.Errorf("persistence.max_idle_conns must be > 0")
		}
	default:
		return fmt.Errorf("unsupported persistence.type %q (must be file or postgres)", c.Persistence.Type)
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
		}
		if strings.TrimSpace(c.Server.Host) == "" {
			return fmt.Errorf("server.host is required")
		}
		if c.Server.Mode != "debug" && c.Server.Mode != "release" {
			return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
		}
	}

	if len(c.Principals) == 0 {
		return fmt.Errorf("at least one principal is required (principals or roster_path)")
	}
	seen := make(map[string]bool, len(c.Principals))
	for _, p := range c.Principals {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("principal names must not be empty")
		}
		if seen[p] {
			return fmt.Errorf("duplicate principal %q", p)
		}
		seen[p] = true
	}

	return nil
}

// Load parses config from defaults + file + env, resolves the principal
// roster, and validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"store.base_url":             "https://apis.roblox.com/datastores/v1",
		"store.datastore":            "PlaySessions",
		"store.page_limit":           100,
		"store.page_delay":           "200ms",
		"store.max_attempts":         3,
		"store.retry_delay":          "500ms",
		"store.request_timeout":      "10s",
		"webhook.timeout":            "10s",
		"poll.interval":              "30s",
		"cache.daily_ttl":            "5m",
		"cache.monthly_ttl":          "10m",
		"retention.ledger_days":      90,
		"retention.cache_days":       40,
		"retention.sweep_interval":   "12h",
		"persistence.type":           "file",
		"persistence.path":           "playtrack-state.json",
		"persistence.max_open_conns": 10,
		"persistence.max_idle_conns": 5,
		"persistence.auto_migrate":   true,
		"server.enabled":             true,
		"server.host":                "0.0.0.0",
		"server.port":                8080,
		"server.mode":                "release",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// PLAYTRACK_STORE__API_KEY=... overrides store.api_key
	if err := k.Load(env.Provider("PLAYTRACK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PLAYTRACK_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Principals) == 0 && cfg.RosterPath != "" {
		principals, err := LoadRoster(cfg.RosterPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load roster: %w", err)
		}
		cfg.Principals = principals
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
