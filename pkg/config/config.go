package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the publisher
type Config struct {
	// Accounts to publish for, in run order
	Accounts []AccountConfig `yaml:"accounts" json:"accounts"`

	// Session persistence settings
	Sessions SessionsConfig `yaml:"sessions" json:"sessions"`

	// Upload-state persistence settings
	State StateConfig `yaml:"state" json:"state"`

	// Media source settings
	Media MediaConfig `yaml:"media" json:"media"`

	// Login / challenge-recovery settings
	Login LoginConfig `yaml:"login" json:"login"`

	// Publish settings
	Publish PublishConfig `yaml:"publish" json:"publish"`

	// Instagram API client settings
	API APIConfig `yaml:"api" json:"api"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AccountConfig identifies one Instagram account
type AccountConfig struct {
	Username string `yaml:"username" json:"username"`
}

// SessionsConfig holds session-file persistence settings
type SessionsConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// StateConfig holds upload-state persistence settings
type StateConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// MediaConfig holds media source settings
type MediaConfig struct {
	Dir        string   `yaml:"dir" json:"dir"`
	Prefix     string   `yaml:"prefix" json:"prefix"`
	Extensions []string `yaml:"extensions" json:"extensions"`
	PageSize   int      `yaml:"page_size" json:"page_size"`
}

// LoginConfig holds login retry and challenge settings
type LoginConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// AccountGap is the mandatory minimum delay between finishing one
	// account's session acquisition and starting the next.
	AccountGap time.Duration `yaml:"account_gap" json:"account_gap"`
}

// PublishConfig holds publish settings
type PublishConfig struct {
	Caption string `yaml:"caption" json:"caption"`
	AsReel  bool   `yaml:"as_reel" json:"as_reel"`
}

// APIConfig holds Instagram API client settings
type APIConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Sessions: SessionsConfig{
			Dir: "./sessions",
		},
		State: StateConfig{
			Dir: "./state",
		},
		Media: MediaConfig{
			Dir:        "./videos",
			Extensions: []string{".mp4", ".mov", ".m4v", ".webm"},
			PageSize:   1000,
		},
		Login: LoginConfig{
			MaxAttempts: 3,
			RetryDelay:  5 * time.Second,
			AccountGap:  2500 * time.Millisecond,
		},
		Publish: PublishConfig{
			AsReel: true,
		},
		API: APIConfig{
			BaseURL:           "https://www.instagram.com",
			Timeout:           60 * time.Second,
			UserAgent:         "",
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration overrides from environment variables
func (c *Config) LoadFromEnv() error {
	if username := os.Getenv("IGPUBLISHER_USERNAME"); username != "" {
		c.Accounts = append([]AccountConfig{{Username: username}}, c.Accounts...)
	}
	if dir := os.Getenv("IGPUBLISHER_SESSIONS_DIR"); dir != "" {
		c.Sessions.Dir = dir
	}
	if dir := os.Getenv("IGPUBLISHER_STATE_DIR"); dir != "" {
		c.State.Dir = dir
	}
	if dir := os.Getenv("IGPUBLISHER_MEDIA_DIR"); dir != "" {
		c.Media.Dir = dir
	}
	if prefix := os.Getenv("IGPUBLISHER_MEDIA_PREFIX"); prefix != "" {
		c.Media.Prefix = prefix
	}
	if attempts := os.Getenv("IGPUBLISHER_MAX_LOGIN_ATTEMPTS"); attempts != "" {
		if val, err := strconv.Atoi(attempts); err == nil && val > 0 {
			c.Login.MaxAttempts = val
		}
	}
	if delay := os.Getenv("IGPUBLISHER_LOGIN_RETRY_DELAY"); delay != "" {
		if val, err := time.ParseDuration(delay); err == nil && val > 0 {
			c.Login.RetryDelay = val
		}
	}
	if caption := os.Getenv("IGPUBLISHER_CAPTION"); caption != "" {
		c.Publish.Caption = caption
	}
	if reel := os.Getenv("IGPUBLISHER_AS_REEL"); reel != "" {
		c.Publish.AsReel = strings.ToLower(reel) == "true"
	}
	if userAgent := os.Getenv("IGPUBLISHER_USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if logLevel := os.Getenv("IGPUBLISHER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igpublisher.yaml",
		".igpublisher.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igpublisher", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igpublisher", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igpublisher.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Sessions.Dir == "" {
		errs = append(errs, errors.New("sessions directory is required"))
	}
	if c.State.Dir == "" {
		errs = append(errs, errors.New("state directory is required"))
	}
	if c.Media.Dir == "" {
		errs = append(errs, errors.New("media directory is required"))
	}
	if len(c.Media.Extensions) == 0 {
		errs = append(errs, errors.New("at least one media extension is required"))
	}
	for _, ext := range c.Media.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("media extension %q must start with a dot", ext))
		}
	}
	if c.Login.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max login attempts must be positive"))
	}
	if c.Login.RetryDelay < 0 {
		errs = append(errs, errors.New("login retry delay cannot be negative"))
	}
	if c.Login.AccountGap < 0 {
		errs = append(errs, errors.New("account gap cannot be negative"))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Usernames returns the configured account usernames in run order
func (c *Config) Usernames() []string {
	names := make([]string, 0, len(c.Accounts))
	seen := make(map[string]bool)
	for _, acct := range c.Accounts {
		if acct.Username == "" || seen[acct.Username] {
			continue
		}
		seen[acct.Username] = true
		names = append(names, acct.Username)
	}
	return names
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if mediaDir, ok := flags["media-dir"].(string); ok && mediaDir != "" {
		c.Media.Dir = mediaDir
	}
	if sessionsDir, ok := flags["sessions-dir"].(string); ok && sessionsDir != "" {
		c.Sessions.Dir = sessionsDir
	}
	if stateDir, ok := flags["state-dir"].(string); ok && stateDir != "" {
		c.State.Dir = stateDir
	}
	if caption, ok := flags["caption"].(string); ok && caption != "" {
		c.Publish.Caption = caption
	}
	if asReel, ok := flags["reel"].(bool); ok {
		c.Publish.AsReel = asReel
	}
	if maxAttempts, ok := flags["max-login-attempts"].(int); ok && maxAttempts > 0 {
		c.Login.MaxAttempts = maxAttempts
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igpublisher.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
