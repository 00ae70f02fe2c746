package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./sessions", cfg.Sessions.Dir)
	assert.Equal(t, "./state", cfg.State.Dir)
	assert.Equal(t, "./videos", cfg.Media.Dir)
	assert.Contains(t, cfg.Media.Extensions, ".mp4")
	assert.Equal(t, 3, cfg.Login.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Login.RetryDelay)
	assert.Equal(t, 2500*time.Millisecond, cfg.Login.AccountGap)
	assert.True(t, cfg.Publish.AsReel)
	assert.Equal(t, "https://www.instagram.com", cfg.API.BaseURL)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	content := `
accounts:
  - username: alice
  - username: bob
media:
  dir: /srv/videos
login:
  max_attempts: 5
  retry_delay: 10s
publish:
  caption: "daily upload"
  as_reel: false
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, []string{"alice", "bob"}, cfg.Usernames())
	assert.Equal(t, "/srv/videos", cfg.Media.Dir)
	assert.Equal(t, 5, cfg.Login.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Login.RetryDelay)
	assert.Equal(t, "daily upload", cfg.Publish.Caption)
	assert.False(t, cfg.Publish.AsReel)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFileMissingPathIsNotAnError(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.LoadFromFile(""))
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accounts: [unclosed"), 0644))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGPUBLISHER_USERNAME", "envuser")
	t.Setenv("IGPUBLISHER_MEDIA_DIR", "/env/videos")
	t.Setenv("IGPUBLISHER_MAX_LOGIN_ATTEMPTS", "7")
	t.Setenv("IGPUBLISHER_LOGIN_RETRY_DELAY", "2s")
	t.Setenv("IGPUBLISHER_AS_REEL", "false")
	t.Setenv("IGPUBLISHER_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, []string{"envuser"}, cfg.Usernames())
	assert.Equal(t, "/env/videos", cfg.Media.Dir)
	assert.Equal(t, 7, cfg.Login.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Login.RetryDelay)
	assert.False(t, cfg.Publish.AsReel)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("IGPUBLISHER_MAX_LOGIN_ATTEMPTS", "not-a-number")
	t.Setenv("IGPUBLISHER_LOGIN_RETRY_DELAY", "-5s")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 3, cfg.Login.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Login.RetryDelay)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"media-dir":          "/flag/videos",
		"sessions-dir":       "/flag/sessions",
		"caption":            "flag caption",
		"reel":               false,
		"max-login-attempts": 9,
		"log-level":          "error",
	})

	assert.Equal(t, "/flag/videos", cfg.Media.Dir)
	assert.Equal(t, "/flag/sessions", cfg.Sessions.Dir)
	assert.Equal(t, "flag caption", cfg.Publish.Caption)
	assert.False(t, cfg.Publish.AsReel)
	assert.Equal(t, 9, cfg.Login.MaxAttempts)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	// Flags beat environment, environment beats file.
	content := `
media:
  dir: /file/videos
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("IGPUBLISHER_MEDIA_DIR", "/env/videos")

	cfg, err := Load(path, map[string]interface{}{"log-level": "error"})
	require.NoError(t, err)

	assert.Equal(t, "/env/videos", cfg.Media.Dir)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty sessions dir", func(c *Config) { c.Sessions.Dir = "" }},
		{"empty state dir", func(c *Config) { c.State.Dir = "" }},
		{"empty media dir", func(c *Config) { c.Media.Dir = "" }},
		{"no extensions", func(c *Config) { c.Media.Extensions = nil }},
		{"extension without dot", func(c *Config) { c.Media.Extensions = []string{"mp4"} }},
		{"zero max attempts", func(c *Config) { c.Login.MaxAttempts = 0 }},
		{"negative retry delay", func(c *Config) { c.Login.RetryDelay = -time.Second }},
		{"negative account gap", func(c *Config) { c.Login.AccountGap = -time.Second }},
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"bogus log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestUsernamesDeduplicates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Accounts = []AccountConfig{
		{Username: "alice"},
		{Username: ""},
		{Username: "bob"},
		{Username: "alice"},
	}

	assert.Equal(t, []string{"alice", "bob"}, cfg.Usernames())
}
