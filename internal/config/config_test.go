package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheConfigGetTTL(t *testing.T) {
	tests := []struct {
		name     string
		ttl      string
		expected time.Duration
	}{
		{"empty TTL", "", 0},
		{"invalid TTL", "invalid", 0},
		{"negative TTL", "-1m", 0},
		{"5 minutes", "5m", 5 * time.Minute},
		{"30 seconds", "30s", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CacheConfig{TTL: tt.ttl}
			if got := cfg.GetTTL(); got != tt.expected {
				t.Errorf("GetTTL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPlaygroundConfigDefaults(t *testing.T) {
	var nilCfg *PlaygroundConfig
	assert.Equal(t, 5.0, nilCfg.GetRateLimitRPS())
	assert.Equal(t, 10, nilCfg.GetRateLimitBurst())
	assert.Equal(t, 10000, nilCfg.GetRateLimitMaxIPs())
	assert.Equal(t, 64<<10, nilCfg.GetMaxSource())

	cfg := &PlaygroundConfig{
		RateLimit: &RateLimitConfig{RequestsPerSecond: 1.5, Burst: 3, MaxIPs: 50},
		MaxSource: 1024,
	}
	assert.Equal(t, 1.5, cfg.GetRateLimitRPS())
	assert.Equal(t, 3, cfg.GetRateLimitBurst())
	assert.Equal(t, 50, cfg.GetRateLimitMaxIPs())
	assert.Equal(t, 1024, cfg.GetMaxSource())
}

func TestStoreConfig(t *testing.T) {
	t.Setenv("DOTWEB_TEST_DSN", "postgres://localhost/snapshots")

	tests := []struct {
		name   string
		cfg    StoreConfig
		driver string
		dsn    string
	}{
		{"zero value", StoreConfig{}, "memory", ""},
		{"sqlite default path", StoreConfig{Driver: "sqlite"}, "sqlite", "dotweb.db"},
		{"sqlite explicit path", StoreConfig{Driver: "sqlite", DSN: "/tmp/x.db"}, "sqlite", "/tmp/x.db"},
		{"env expansion", StoreConfig{Driver: "postgres", DSN: "${DOTWEB_TEST_DSN}"}, "postgres", "postgres://localhost/snapshots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.driver, tt.cfg.GetDriver())
			assert.Equal(t, tt.dsn, tt.cfg.GetDSN())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad ttl", func(c *Config) { c.Cache.TTL = "soon" }, "cache.ttl"},
		{"unknown driver", func(c *Config) { c.Playground.Store.Driver = "mongo" }, "unknown driver"},
		{"postgres without dsn", func(c *Config) { c.Playground.Store.Driver = "postgres" }, "requires a dsn"},
		{"bad ignore pattern", func(c *Config) { c.Ignore = []string{"[x"} }, "ignore pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsIgnored(t *testing.T) {
	cfg := &Config{Ignore: []string{"drafts/**", "_*.web", "scratch.dw"}}

	tests := []struct {
		path     string
		expected bool
	}{
		{"drafts", true},
		{"drafts/a.web", true},
		{"drafts/deep/b.web", true},
		{"draftsman.web", false},
		{"_partial.web", true},
		{"pages/_partial.web", true},
		{"scratch.dw", true},
		{"index.web", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, cfg.IsIgnored(tt.path))
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := `server:
  port: 9000
document:
  title: Components
  lang: fr
playground:
  enabled: false
  rate_limit:
    burst: 2
  store:
    driver: sqlite
    dsn: snapshots.db
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "localhost", cfg.Server.Host, "unset keys keep defaults")
		assert.True(t, cfg.Features.HotReload)
		assert.Equal(t, "Components", cfg.Document.Title)
		assert.Equal(t, "fr", cfg.Document.Lang)
		assert.False(t, cfg.Playground.Enabled)
		assert.Equal(t, 2, cfg.Playground.GetRateLimitBurst())
		assert.Equal(t, 5.0, cfg.Playground.GetRateLimitRPS())
		assert.Equal(t, "sqlite", cfg.Playground.Store.GetDriver())
		assert.Equal(t, "snapshots.db", cfg.Playground.Store.GetDSN())
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "failed to parse config file"))
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: later\n"), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.ttl")
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	cfg := DefaultConfig()
	cfg.Document.Title = "Saved"
	cfg.Ignore = append(cfg.Ignore, "_*.web")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
