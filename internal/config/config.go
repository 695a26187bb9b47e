package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the full application configuration
type Config struct {
	API        APIConfig        `yaml:"api"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Gesture    GestureConfig    `yaml:"gesture"`
	Outbox     OutboxConfig     `yaml:"outbox"`
	Session    SessionConfig    `yaml:"session"`
	GitHub     GitHubConfig     `yaml:"github"`
	RateLimits RateLimitsConfig `yaml:"rate_limits"`
}

// APIConfig contains backend connection settings
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DiscoveryConfig contains candidate queue settings
type DiscoveryConfig struct {
	InitialBatch        int `yaml:"initial_batch"`
	PrefetchBatch       int `yaml:"prefetch_batch"`
	LowWaterMark        int `yaml:"low_water_mark"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
}

// GestureConfig contains swipe gesture settings, in logical pixels
type GestureConfig struct {
	SwipeThreshold     float64 `yaml:"swipe_threshold"`
	ScreenWidth        float64 `yaml:"screen_width"`
	ScreenHeight       float64 `yaml:"screen_height"`
	MaxRotationDegrees float64 `yaml:"max_rotation_degrees"`
	ExitDurationMs     int     `yaml:"exit_duration_ms"`
	VerticalSuper      bool    `yaml:"vertical_super"`
}

// OutboxConfig contains settings for redelivery of failed swipe submissions
type OutboxConfig struct {
	Enabled              bool   `yaml:"enabled"`
	Backend              string `yaml:"backend"` // "memory" or "redis"
	RedisURL             string `yaml:"redis_url"`
	KeyPrefix            string `yaml:"key_prefix"`
	MaxAttempts          int    `yaml:"max_attempts"`
	BaseBackoffSeconds   int    `yaml:"base_backoff_seconds"`
	FlushIntervalSeconds int    `yaml:"flush_interval_seconds"`
}

// SessionConfig contains local session persistence settings
type SessionConfig struct {
	Path string `yaml:"path"`
}

// GitHubConfig contains settings for GitHub profile link verification
type GitHubConfig struct {
	Host  string `yaml:"host"`
	Token string `yaml:"token"`
}

// RateLimitsConfig contains rate limiting settings
type RateLimitsConfig struct {
	APIRPS int `yaml:"api_requests_per_second"`
}

// Timeout returns the per-request backend timeout
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FetchTimeout returns the bound applied to each candidate fetch
func (c DiscoveryConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// ExitDuration returns the length of the card fly-off animation
func (c GestureConfig) ExitDuration() time.Duration {
	return time.Duration(c.ExitDurationMs) * time.Millisecond
}

// BaseBackoff returns the first retry delay for outbox entries
func (c OutboxConfig) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffSeconds) * time.Second
}

// FlushInterval returns how often the outbox is drained while browsing
func (c OutboxConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

// Load reads and parses config from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	expandConfigEnvVars(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// LoadOrDefault loads the config at path, or returns defaults when path is empty
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg, nil
	}
	return Load(path)
}

// FindConfigPath looks for config in common locations
func FindConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	paths := []string{
		".cofound.yaml",
		".cofound.yml",
		"cofound.yaml",
		"cofound.yml",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homePath := filepath.Join(home, ".config", "cofound", "config.yaml")
		if _, err := os.Stat(homePath); err == nil {
			return homePath
		}
	}

	return ""
}

// DefaultSessionPath returns ~/.config/cofound/session.json
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(home, ".config", "cofound", "session.json")
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 10
	}

	if cfg.Discovery.InitialBatch == 0 {
		cfg.Discovery.InitialBatch = 5
	}
	if cfg.Discovery.PrefetchBatch == 0 {
		cfg.Discovery.PrefetchBatch = 3
	}
	if cfg.Discovery.LowWaterMark == 0 {
		cfg.Discovery.LowWaterMark = 2
	}
	if cfg.Discovery.FetchTimeoutSeconds == 0 {
		cfg.Discovery.FetchTimeoutSeconds = 15
	}

	if cfg.Gesture.SwipeThreshold == 0 {
		cfg.Gesture.SwipeThreshold = 120
	}
	if cfg.Gesture.ScreenWidth == 0 {
		cfg.Gesture.ScreenWidth = 390
	}
	if cfg.Gesture.ScreenHeight == 0 {
		cfg.Gesture.ScreenHeight = 844
	}
	if cfg.Gesture.MaxRotationDegrees == 0 {
		cfg.Gesture.MaxRotationDegrees = 10
	}
	if cfg.Gesture.ExitDurationMs == 0 {
		cfg.Gesture.ExitDurationMs = 300
	}

	// Outbox.Enabled defaults to false (zero value) - must be explicitly enabled
	if cfg.Outbox.Backend == "" {
		cfg.Outbox.Backend = "memory"
	}
	if cfg.Outbox.KeyPrefix == "" {
		cfg.Outbox.KeyPrefix = "cofound:outbox"
	}
	if cfg.Outbox.MaxAttempts == 0 {
		cfg.Outbox.MaxAttempts = 5
	}
	if cfg.Outbox.BaseBackoffSeconds == 0 {
		cfg.Outbox.BaseBackoffSeconds = 2
	}
	if cfg.Outbox.FlushIntervalSeconds == 0 {
		cfg.Outbox.FlushIntervalSeconds = 15
	}

	if cfg.Session.Path == "" {
		cfg.Session.Path = DefaultSessionPath()
	}
	if cfg.GitHub.Host == "" {
		cfg.GitHub.Host = "github.com"
	}
	if cfg.RateLimits.APIRPS == 0 {
		cfg.RateLimits.APIRPS = 10
	}
}
