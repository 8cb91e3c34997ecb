// Package config loads riskwatch settings: the main YAML configuration, the
// per-account starting-balance file, and API credentials from the
// environment. Credentials never live in files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the complete riskwatch configuration.
type Config struct {
	API      APIConfig      `json:"api" yaml:"api"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`
	Rollover RolloverConfig `json:"rollover" yaml:"rollover"`
	Poll     PollConfig     `json:"poll" yaml:"poll"`
	Anchors  AnchorsConfig  `json:"anchors" yaml:"anchors"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	MLL      MLLConfig      `json:"mll" yaml:"mll"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// APIConfig contains broker API transport parameters.
type APIConfig struct {
	BaseURL      string  `json:"base_url" yaml:"base_url"`
	AuthEndpoint string  `json:"auth_endpoint" yaml:"auth_endpoint"`
	TimeoutSec   int     `json:"timeout" yaml:"timeout"`
	MaxRetries   int     `json:"max_retries" yaml:"max_retries"`
	RequestRate  float64 `json:"request_rate" yaml:"request_rate"`
}

// AuthConfig contains token lifecycle parameters.
type AuthConfig struct {
	RefreshMarginMinutes int `json:"token_refresh_margin_minutes" yaml:"token_refresh_margin_minutes"`
}

// RolloverConfig sets the daily cutover.
type RolloverConfig struct {
	Hour     int    `json:"hour" yaml:"hour"`
	Minute   int    `json:"minute" yaml:"minute"`
	Timezone string `json:"timezone" yaml:"timezone"`
	// Minimum interval between rollover scans outside the cutover window.
	MinIntervalSec int `json:"min_interval" yaml:"min_interval"`
}

// PollConfig drives the monitor cadence.
type PollConfig struct {
	// Cron spec with a seconds field, e.g. "0 * * * * *" for every minute.
	CronSpec string `json:"cron" yaml:"cron"`
}

// AnchorsConfig locates the persisted anchor document.
type AnchorsConfig struct {
	Path string `json:"path" yaml:"path"`
}

// JournalConfig selects the audit-event backend.
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	RolloversFile string `json:"rollovers_file,omitempty" yaml:"rollovers_file,omitempty"`
	BreachesFile  string `json:"breaches_file,omitempty" yaml:"breaches_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// MLLTier is one row of the loss-limit table.
type MLLTier struct {
	MaxBalance float64 `json:"max_balance" yaml:"max_balance"`
	Budget     float64 `json:"budget" yaml:"budget"`
	Label      string  `json:"label" yaml:"label"`
}

// MLLConfig optionally overrides the built-in tier table.
type MLLConfig struct {
	Tiers []MLLTier `json:"tiers,omitempty" yaml:"tiers,omitempty"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // trace..panic
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

// Credentials are loaded from the environment only.
type Credentials struct {
	Username string `env:"TOPSTEP_USERNAME"`
	APIKey   string `env:"TOPSTEP_API_KEY"`
}

// Default returns a configuration with every field at its standard value.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "https://api.topstepx.com",
			AuthEndpoint: "/api/Auth/loginKey",
			TimeoutSec:   30,
			MaxRetries:   3,
			RequestRate:  5,
		},
		Auth: AuthConfig{RefreshMarginMinutes: 5},
		Rollover: RolloverConfig{
			Hour:           17,
			Minute:         0,
			Timezone:       "America/Chicago",
			MinIntervalSec: 60,
		},
		Poll:    PollConfig{CronSpec: "0 * * * * *"},
		Anchors: AnchorsConfig{Path: "data/anchors.json"},
		Journal: JournalConfig{
			Type:          "csv",
			RolloversFile: "data/rollovers.csv",
			BreachesFile:  "data/breaches.csv",
			DBPath:        "data/journal.db",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// LoadFromFile loads configuration from a file (YAML first, JSON fallback),
// layered over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Rollover.Hour < 0 || c.Rollover.Hour > 23 {
		return fmt.Errorf("rollover.hour must be 0-23")
	}
	if c.Rollover.Minute < 0 || c.Rollover.Minute > 59 {
		return fmt.Errorf("rollover.minute must be 0-59")
	}
	if c.Anchors.Path == "" {
		return fmt.Errorf("anchors.path is required")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.RolloversFile == "" || c.Journal.BreachesFile == "" {
			return fmt.Errorf("journal type csv requires rollovers_file and breaches_file")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal type sqlite requires db_path")
		}
	case "none", "":
	default:
		return fmt.Errorf("unknown journal type %q", c.Journal.Type)
	}
	for _, tier := range c.MLL.Tiers {
		if tier.Budget <= 0 {
			return fmt.Errorf("mll tier %q: budget must be positive", tier.Label)
		}
	}
	return nil
}

// Timeout returns the API timeout as a duration.
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// RefreshMargin returns the token refresh margin as a duration.
func (c *AuthConfig) RefreshMargin() time.Duration {
	return time.Duration(c.RefreshMarginMinutes) * time.Minute
}

// MinInterval returns the rollover scan interval as a duration.
func (c *RolloverConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalSec) * time.Second
}

// LoadCredentials reads the API credentials from the environment.
func LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, fmt.Errorf("parse env: %w", err)
	}
	if creds.Username == "" || creds.APIKey == "" {
		return Credentials{}, fmt.Errorf("missing credentials: set TOPSTEP_USERNAME and TOPSTEP_API_KEY")
	}
	return creds, nil
}
