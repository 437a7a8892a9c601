package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in a project directory.
const FileName = "dotweb.yaml"

// Config represents the dotweb configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Features   FeaturesConfig   `yaml:"features"`
	Document   DocumentConfig   `yaml:"document"`
	Cache      CacheConfig      `yaml:"cache"`
	Playground PlaygroundConfig `yaml:"playground"`
	Ignore     []string         `yaml:"ignore"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	HotReload bool `yaml:"hot_reload"`
}

// DocumentConfig holds metadata used for pages that do not declare a ViewPort
// (and for ViewPort props they leave out).
type DocumentConfig struct {
	Title       string `yaml:"title,omitempty"`
	Lang        string `yaml:"lang,omitempty"`
	Description string `yaml:"description,omitempty"`
	Author      string `yaml:"author,omitempty"`
}

// CacheConfig configures the compiled page cache
type CacheConfig struct {
	TTL string `yaml:"ttl,omitempty"` // e.g. "5m"; empty disables caching
}

// GetTTL returns the cache TTL (0 if caching is disabled)
func (c CacheConfig) GetTTL() time.Duration {
	if c.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// PlaygroundConfig holds playground API configuration
type PlaygroundConfig struct {
	Enabled   bool             `yaml:"enabled"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
	Store     StoreConfig      `yaml:"store"`
	MaxSource int              `yaml:"max_source,omitempty"` // Maximum source size in bytes (default: 64KiB)
}

// RateLimitConfig holds rate limiting configuration for the playground
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // Rate limit in requests per second (default: 5)
	Burst             int     `yaml:"burst,omitempty"`               // Burst size (default: 10)
	MaxIPs            int     `yaml:"max_ips,omitempty"`             // Tracked client IPs (default: 10000)
}

// StoreConfig selects the snapshot store backend
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // "memory", "sqlite" or "postgres"
	DSN    string `yaml:"dsn,omitempty"`    // Connection string; env vars are expanded
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 5)
func (c *PlaygroundConfig) GetRateLimitRPS() float64 {
	if c == nil || c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 5
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 10)
func (c *PlaygroundConfig) GetRateLimitBurst() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 10
	}
	return c.RateLimit.Burst
}

// GetRateLimitMaxIPs returns the number of tracked client IPs (default: 10000)
func (c *PlaygroundConfig) GetRateLimitMaxIPs() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.MaxIPs <= 0 {
		return 10000
	}
	return c.RateLimit.MaxIPs
}

// GetMaxSource returns the maximum accepted source size in bytes (default: 64KiB)
func (c *PlaygroundConfig) GetMaxSource() int {
	if c == nil || c.MaxSource <= 0 {
		return 64 << 10
	}
	return c.MaxSource
}

// GetDriver returns the store driver (default: "memory")
func (c StoreConfig) GetDriver() string {
	if c.Driver == "" {
		return "memory"
	}
	return c.Driver
}

// GetDSN returns the connection string with environment variable expansion.
// For sqlite the default is dotweb.db in the working directory.
func (c StoreConfig) GetDSN() string {
	if c.DSN == "" {
		if c.GetDriver() == "sqlite" {
			return "dotweb.db"
		}
		return ""
	}
	return os.ExpandEnv(c.DSN)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return fmt.Errorf("cache.ttl: %w", err)
		}
	}
	switch c.Playground.Store.GetDriver() {
	case "memory", "sqlite":
	case "postgres":
		if c.Playground.Store.GetDSN() == "" {
			return fmt.Errorf("playground.store: postgres requires a dsn")
		}
	default:
		return fmt.Errorf("playground.store: unknown driver %q", c.Playground.Store.Driver)
	}
	for _, pattern := range c.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("ignore pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// IsIgnored reports whether the slash-separated relative path matches an
// ignore pattern. A pattern ending in "/**" matches everything beneath that
// directory.
func (c *Config) IsIgnored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.Ignore {
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:  8080,
			Host:  "localhost",
			Debug: false,
		},
		Features: FeaturesConfig{
			HotReload: true,
		},
		Cache: CacheConfig{
			TTL: "10m",
		},
		Playground: PlaygroundConfig{
			Enabled: true,
			Store:   StoreConfig{Driver: "memory"},
		},
		Ignore: []string{
			"drafts/**",
		},
	}
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig() // Start with defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// LoadFromDir looks for dotweb.yaml in the given directory.
// If none is found, returns the default configuration
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
