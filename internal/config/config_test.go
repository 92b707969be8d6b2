package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playtrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
store:
  universe_id: "123456"
  api_key: "secret"
webhook:
  url: "https://discord.com/api/webhooks/1/abc"
principals:
  - alice
  - bob
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, cfg.Principals)
	assert.Equal(t, "PlaySessions", cfg.Store.Datastore)
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
	assert.Equal(t, 5*time.Minute, cfg.DailyTTL())
	assert.Equal(t, 12*time.Hour, cfg.SweepInterval())
	assert.Equal(t, 90*24*time.Hour, cfg.LedgerRetention())
	assert.Equal(t, "file", cfg.Persistence.Type)
	assert.Equal(t, "https://apis.roblox.com/datastores/v1/universes/123456",
		cfg.Store.StoreEndpoint())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
store:
  universe_id: "123456"
  api_key: "from-file"
webhook:
  url: "https://discord.com/api/webhooks/1/abc"
principals:
  - alice
`)

	t.Setenv("PLAYTRACK_STORE__API_KEY", "from-env")
	t.Setenv("PLAYTRACK_POLL__INTERVAL", "45s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Store.APIKey)
	assert.Equal(t, 45*time.Second, cfg.PollInterval())
}

func TestLoad_RosterFile(t *testing.T) {
	dir := t.TempDir()
	rosterPath := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(rosterPath, []byte(`
principals:
  - alice
  - "  bob  "
  - ""
`), 0o644))

	path := writeConfig(t, fmt.Sprintf(`
store:
  universe_id: "123456"
  api_key: "secret"
webhook:
  url: "https://discord.com/api/webhooks/1/abc"
roster_path: %q
`, rosterPath))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Principals)
}

func TestLoad_MissingRosterFails(t *testing.T) {
	path := writeConfig(t, `
store:
  universe_id: "123456"
  api_key: "secret"
webhook:
  url: "https://discord.com/api/webhooks/1/abc"
roster_path: "/nonexistent/roster.yaml"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster")
}

func TestValidate_Failures(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Store = StoreConfig{
			BaseURL:        "https://apis.roblox.com/datastores/v1",
			UniverseID:     "123456",
			Datastore:      "PlaySessions",
			APIKey:         "secret",
			PageLimit:      100,
			PageDelay:      "200ms",
			MaxAttempts:    3,
			RetryDelay:     "500ms",
			RequestTimeout: "10s",
		}
		cfg.Webhook = WebhookConfig{URL: "https://discord.com/api/webhooks/1/abc", Timeout: "10s"}
		cfg.Poll = PollConfig{Interval: "30s"}
		cfg.Cache = CacheConfig{DailyTTL: "5m", MonthlyTTL: "10m"}
		cfg.Retention = RetentionConfig{LedgerDays: 90, CacheDays: 40, SweepInterval: "12h"}
		cfg.Persistence = PersistenceConfig{Type: "file", Path: "state.json", MaxOpenConns: 10, MaxIdleConns: 5}
		cfg.Server = ServerConfig{Enabled: true, Host: "0.0.0.0", Port: 8080, Mode: "release"}
		cfg.Principals = []string{"alice"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.Store.APIKey = "" },
			wantErr: "store.api_key",
		},
		{
			name:    "negative poll interval",
			mutate:  func(c *Config) { c.Poll.Interval = "-5s" },
			wantErr: "poll.interval",
		},
		{
			name:    "garbage duration",
			mutate:  func(c *Config) { c.Cache.DailyTTL = "soon" },
			wantErr: "cache.daily_ttl",
		},
		{
			name:    "unknown persistence type",
			mutate:  func(c *Config) { c.Persistence.Type = "redis" },
			wantErr: "persistence.type",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Persistence.Type = "postgres"; c.Persistence.DSN = "" },
			wantErr: "persistence.dsn",
		},
		{
			name:    "no principals",
			mutate:  func(c *Config) { c.Principals = nil },
			wantErr: "principal",
		},
		{
			name:    "duplicate principal",
			mutate:  func(c *Config) { c.Principals = []string{"alice", "alice"} },
			wantErr: "duplicate",
		},
		{
			name:    "bad server port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ZeroPageDelayAllowed(t *testing.T) {
	path := writeConfig(t, `
store:
  universe_id: "123456"
  api_key: "secret"
  page_delay: "0s"
webhook:
  url: "https://discord.com/api/webhooks/1/abc"
principals:
  - alice
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.PageDelay())
}
