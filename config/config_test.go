package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestLoadFromFile_YAMLOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
api:
  base_url: https://api.example.test
rollover:
  hour: 16
  minute: 30
  timezone: America/New_York
journal:
  type: sqlite
  db_path: /tmp/j.db
mll:
  tiers:
    - max_balance: 25000
      budget: 1500
      label: 25K
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.test", cfg.API.BaseURL)
	// Untouched fields keep their defaults.
	assert.Equal(t, "/api/Auth/loginKey", cfg.API.AuthEndpoint)
	assert.Equal(t, 16, cfg.Rollover.Hour)
	assert.Equal(t, 30, cfg.Rollover.Minute)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
	require.Len(t, cfg.MLL.Tiers, 1)
	assert.Equal(t, "25K", cfg.MLL.Tiers[0].Label)
}

func TestLoadFromFile_JSONFallback(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"api": {"base_url": "https://api.example.test"}}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.test", cfg.API.BaseURL)
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad hour", func(c *Config) { c.Rollover.Hour = 24 }},
		{"bad minute", func(c *Config) { c.Rollover.Minute = -1 }},
		{"no anchors path", func(c *Config) { c.Anchors.Path = "" }},
		{"csv without files", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }},
		{"sqlite without path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }},
		{"unknown journal", func(c *Config) { c.Journal.Type = "postgres" }},
		{"bad tier budget", func(c *Config) { c.MLL.Tiers = []MLLTier{{MaxBalance: 50000, Label: "50K"}} }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadAccounts(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "accounts.yaml", `
accounts:
  EXPRESS-50K: 50000
  COMBINE-150K: 150000
`)

	a, err := LoadAccounts(path)
	require.NoError(t, err)
	assert.InDelta(t, 50000, a.StartingBalance("EXPRESS-50K"), 1e-9)
	assert.InDelta(t, 150000, a.StartingBalance("COMBINE-150K"), 1e-9)
	assert.InDelta(t, DefaultStartingBalance, a.StartingBalance("UNLISTED"), 1e-9)
}

func TestLoadAccounts_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	a, err := LoadAccounts(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.InDelta(t, DefaultStartingBalance, a.StartingBalance("ANY"), 1e-9)
}

func TestLoadAccounts_RejectsNonPositive(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "accounts.yaml", "accounts:\n  BAD: 0\n")

	_, err := LoadAccounts(path)
	assert.Error(t, err)
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("TOPSTEP_USERNAME", "user")
	t.Setenv("TOPSTEP_API_KEY", "key")

	creds, err := LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "user", creds.Username)
	assert.Equal(t, "key", creds.APIKey)
}

func TestLoadCredentials_Missing(t *testing.T) {
	t.Setenv("TOPSTEP_USERNAME", "")
	t.Setenv("TOPSTEP_API_KEY", "")

	_, err := LoadCredentials()
	assert.Error(t, err)
}
