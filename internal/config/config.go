// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for hunmin.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.hunmin/config.toml
//   - ~/.hunmin/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/docenty/hunmin/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete hunmin configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Channel configuration (client side of the worker link)
	Channel ChannelConfig `toml:"channel" json:"channel"`

	// Worker configuration (server side)
	Worker WorkerConfig `toml:"worker" json:"worker"`

	// Document handling configuration
	Document DocumentConfig `toml:"document" json:"document"`

	// Storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Knowledge search configuration
	Search SearchConfig `toml:"search" json:"search"`

	// Attachment object storage configuration
	ObjStore ObjStoreConfig `toml:"objstore" json:"objstore"`

	// Authentication configuration
	Auth AuthConfig `toml:"auth" json:"auth"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ChannelConfig contains the websocket channel settings.
type ChannelConfig struct {
	// WorkerURL is the websocket endpoint of the AI worker
	WorkerURL string `toml:"worker_url" json:"worker_url"`
	// ReconnectDelayMS is the fixed delay before an automatic reconnect
	ReconnectDelayMS int `toml:"reconnect_delay_ms" json:"reconnect_delay_ms"`
	// MaxReconnectAttempts caps consecutive failed connections
	MaxReconnectAttempts int `toml:"max_reconnect_attempts" json:"max_reconnect_attempts"`
}

// WorkerConfig contains the worker server settings.
type WorkerConfig struct {
	// ListenAddr is the address the worker HTTP/websocket server binds to
	ListenAddr string `toml:"listen_addr" json:"listen_addr"`
	// RedisAddr is the redis endpoint for session state (empty = in-process)
	RedisAddr string `toml:"redis_addr" json:"redis_addr"`
	// RedisPassword is the redis auth password
	RedisPassword string `toml:"redis_password" json:"redis_password"`
	// RateLimitRPS is the per-connection request rate limit
	RateLimitRPS float64 `toml:"rate_limit_rps" json:"rate_limit_rps"`
	// RateLimitBurst is the rate limiter burst size
	RateLimitBurst int `toml:"rate_limit_burst" json:"rate_limit_burst"`
}

// DocumentConfig contains document handling settings.
type DocumentConfig struct {
	// DefaultSecurityLevel is the classification given to new documents
	DefaultSecurityLevel string `toml:"default_security_level" json:"default_security_level"`
	// AutosaveEnabled persists the buffer after worker-issued mutations
	AutosaveEnabled bool `toml:"autosave_enabled" json:"autosave_enabled"`
	// WatchDebounceMS is the debounce window for file-watch re-validation
	WatchDebounceMS int `toml:"watch_debounce_ms" json:"watch_debounce_ms"`
}

// StorageConfig contains local database settings.
type StorageConfig struct {
	// DBPath is the sqlite database path (empty = ~/.hunmin/hunmin.db)
	DBPath string `toml:"db_path" json:"db_path"`
}

// SearchConfig contains knowledge-base search settings.
type SearchConfig struct {
	// MeiliHost is the Meilisearch endpoint (empty = local fallback only)
	MeiliHost string `toml:"meili_host" json:"meili_host"`
	// MeiliKey is the Meilisearch API key
	MeiliKey string `toml:"meili_key" json:"meili_key"`
	// IndexName is the knowledge index name
	IndexName string `toml:"index_name" json:"index_name"`
}

// ObjStoreConfig contains attachment storage (S3-compatible) settings.
type ObjStoreConfig struct {
	// Endpoint is the S3-compatible endpoint (empty = attachments disabled)
	Endpoint  string `toml:"endpoint" json:"endpoint"`
	AccessKey string `toml:"access_key" json:"access_key"`
	SecretKey string `toml:"secret_key" json:"secret_key"`
	Bucket    string `toml:"bucket" json:"bucket"`
	UseSSL    bool   `toml:"use_ssl" json:"use_ssl"`
}

// AuthConfig contains operator authentication settings.
type AuthConfig struct {
	// Enabled gates worker endpoints behind operator login
	Enabled bool `toml:"enabled" json:"enabled"`
	// BcryptCost is the password hash cost factor
	BcryptCost int `toml:"bcrypt_cost" json:"bcrypt_cost"`
	// TOTPIssuer is the issuer label for enrolled authenticators
	TOTPIssuer string `toml:"totp_issuer" json:"totp_issuer"`
	// MaxLoginAttempts locks an account after this many consecutive failures
	MaxLoginAttempts int `toml:"max_login_attempts" json:"max_login_attempts"`
	// LockoutMinutes is how long a locked account stays locked
	LockoutMinutes int `toml:"lockout_minutes" json:"lockout_minutes"`
}

// UIConfig contains UI settings.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// BannerEnabled shows the classification banner above the editor
	BannerEnabled bool `toml:"banner_enabled" json:"banner_enabled"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// MarkdownWidth is the render width for assistant markdown replies
	MarkdownWidth int `toml:"markdown_width" json:"markdown_width"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Channel: ChannelConfig{
			WorkerURL:            "ws://localhost:8000/ws",
			ReconnectDelayMS:     3000,
			MaxReconnectAttempts: 3,
		},

		Worker: WorkerConfig{
			ListenAddr:     ":8000",
			RedisAddr:      "",
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},

		Document: DocumentConfig{
			DefaultSecurityLevel: "일반",
			AutosaveEnabled:      true,
			WatchDebounceMS:      500,
		},

		Storage: StorageConfig{
			DBPath: "",
		},

		Search: SearchConfig{
			MeiliHost: "",
			IndexName: "hunmin-knowledge",
		},

		Auth: AuthConfig{
			Enabled:          false,
			BcryptCost:       12,
			TOTPIssuer:       "hunmin",
			MaxLoginAttempts: 3,
			LockoutMinutes:   15,
		},

		UI: UIConfig{
			Theme:         "dark",
			BannerEnabled: true,
			CompactMode:   false,
			MarkdownWidth: 76,
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// Dir returns the hunmin configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".hunmin"), nil
}

// PathTOML returns the path to the TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions tightens config files to 0600. Config may hold
// redis passwords and object-store keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", info.Mode().Perm(), err)
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from the config file(s). Tries TOML first, then
// JSON, and falls back to defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	if tomlPath, err := PathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finish(cfg)
		}
	}

	if jsonPath, err := PathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finish(cfg)
		}
	}

	return finish(cfg)
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# hunmin configuration file\n")
	buf.WriteString("# Generated by hunmin - edit with care\n")
	buf.WriteString("\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Channel.WorkerURL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "channel.worker_url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, ValidationError{
			Field:   "channel.worker_url",
			Message: fmt.Sprintf("scheme must be ws or wss, got %q", u.Scheme),
		})
	}

	if c.Channel.ReconnectDelayMS < 100 || c.Channel.ReconnectDelayMS > 60000 {
		errs = append(errs, ValidationError{
			Field:   "channel.reconnect_delay_ms",
			Message: fmt.Sprintf("must be 100-60000, got %d", c.Channel.ReconnectDelayMS),
		})
	}

	if c.Channel.MaxReconnectAttempts < 1 || c.Channel.MaxReconnectAttempts > 10 {
		errs = append(errs, ValidationError{
			Field:   "channel.max_reconnect_attempts",
			Message: fmt.Sprintf("must be 1-10, got %d", c.Channel.MaxReconnectAttempts),
		})
	}

	if c.Worker.RateLimitRPS <= 0 {
		errs = append(errs, ValidationError{
			Field:   "worker.rate_limit_rps",
			Message: "must be positive",
		})
	}
	if c.Worker.RateLimitBurst < 1 {
		errs = append(errs, ValidationError{
			Field:   "worker.rate_limit_burst",
			Message: "must be at least 1",
		})
	}

	validLevels := map[string]bool{
		"일반": true, "대외비": true, "II급비밀": true, "I급비밀": true,
	}
	if !validLevels[c.Document.DefaultSecurityLevel] {
		errs = append(errs, ValidationError{
			Field:   "document.default_security_level",
			Message: fmt.Sprintf("invalid level %q, must be one of: 일반, 대외비, II급비밀, I급비밀", c.Document.DefaultSecurityLevel),
		})
	}

	if c.Document.WatchDebounceMS < 0 || c.Document.WatchDebounceMS > 10000 {
		errs = append(errs, ValidationError{
			Field:   "document.watch_debounce_ms",
			Message: fmt.Sprintf("must be 0-10000, got %d", c.Document.WatchDebounceMS),
		})
	}

	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 18 {
		errs = append(errs, ValidationError{
			Field:   "auth.bcrypt_cost",
			Message: fmt.Sprintf("must be 10-18, got %d", c.Auth.BcryptCost),
		})
	}
	if c.Auth.MaxLoginAttempts < 3 || c.Auth.MaxLoginAttempts > 10 {
		errs = append(errs, ValidationError{
			Field:   "auth.max_login_attempts",
			Message: fmt.Sprintf("must be 3-10, got %d", c.Auth.MaxLoginAttempts),
		})
	}
	if c.Auth.LockoutMinutes < 1 || c.Auth.LockoutMinutes > 60 {
		errs = append(errs, ValidationError{
			Field:   "auth.lockout_minutes",
			Message: fmt.Sprintf("must be 1-60, got %d", c.Auth.LockoutMinutes),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme %q, must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills in zero values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Channel.WorkerURL == "" {
		c.Channel.WorkerURL = defaults.Channel.WorkerURL
	}
	if c.Channel.ReconnectDelayMS == 0 {
		c.Channel.ReconnectDelayMS = defaults.Channel.ReconnectDelayMS
	}
	if c.Channel.MaxReconnectAttempts == 0 {
		c.Channel.MaxReconnectAttempts = defaults.Channel.MaxReconnectAttempts
	}
	if c.Worker.ListenAddr == "" {
		c.Worker.ListenAddr = defaults.Worker.ListenAddr
	}
	if c.Worker.RateLimitRPS == 0 {
		c.Worker.RateLimitRPS = defaults.Worker.RateLimitRPS
	}
	if c.Worker.RateLimitBurst == 0 {
		c.Worker.RateLimitBurst = defaults.Worker.RateLimitBurst
	}
	if c.Document.DefaultSecurityLevel == "" {
		c.Document.DefaultSecurityLevel = defaults.Document.DefaultSecurityLevel
	}
	if c.Document.WatchDebounceMS == 0 {
		c.Document.WatchDebounceMS = defaults.Document.WatchDebounceMS
	}
	if c.Search.IndexName == "" {
		c.Search.IndexName = defaults.Search.IndexName
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = defaults.Auth.BcryptCost
	}
	if c.Auth.TOTPIssuer == "" {
		c.Auth.TOTPIssuer = defaults.Auth.TOTPIssuer
	}
	if c.Auth.MaxLoginAttempts == 0 {
		c.Auth.MaxLoginAttempts = defaults.Auth.MaxLoginAttempts
	}
	if c.Auth.LockoutMinutes == 0 {
		c.Auth.LockoutMinutes = defaults.Auth.LockoutMinutes
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.MarkdownWidth == 0 {
		c.UI.MarkdownWidth = defaults.UI.MarkdownWidth
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - HUNMIN_WORKER_URL: overrides channel.worker_url
//   - HUNMIN_LISTEN_ADDR: overrides worker.listen_addr
//   - HUNMIN_REDIS_ADDR: overrides worker.redis_addr
//   - HUNMIN_REDIS_PASSWORD: overrides worker.redis_password
//   - HUNMIN_DB_PATH: overrides storage.db_path
//   - HUNMIN_MEILI_HOST: overrides search.meili_host
//   - HUNMIN_MEILI_KEY: overrides search.meili_key
//   - HUNMIN_S3_ENDPOINT: overrides objstore.endpoint
//   - HUNMIN_S3_ACCESS_KEY: overrides objstore.access_key
//   - HUNMIN_S3_SECRET_KEY: overrides objstore.secret_key
//   - HUNMIN_S3_BUCKET: overrides objstore.bucket
//   - HUNMIN_SECURITY_LEVEL: overrides document.default_security_level
//   - HUNMIN_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("HUNMIN_WORKER_URL"); v != "" {
		c.Channel.WorkerURL = v
	}
	if v := os.Getenv("HUNMIN_LISTEN_ADDR"); v != "" {
		c.Worker.ListenAddr = v
	}
	if v := os.Getenv("HUNMIN_REDIS_ADDR"); v != "" {
		c.Worker.RedisAddr = v
	}
	if v := os.Getenv("HUNMIN_REDIS_PASSWORD"); v != "" {
		c.Worker.RedisPassword = v
	}
	if v := os.Getenv("HUNMIN_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("HUNMIN_MEILI_HOST"); v != "" {
		c.Search.MeiliHost = v
	}
	if v := os.Getenv("HUNMIN_MEILI_KEY"); v != "" {
		c.Search.MeiliKey = v
	}
	if v := os.Getenv("HUNMIN_S3_ENDPOINT"); v != "" {
		c.ObjStore.Endpoint = v
	}
	if v := os.Getenv("HUNMIN_S3_ACCESS_KEY"); v != "" {
		c.ObjStore.AccessKey = v
	}
	if v := os.Getenv("HUNMIN_S3_SECRET_KEY"); v != "" {
		c.ObjStore.SecretKey = v
	}
	if v := os.Getenv("HUNMIN_S3_BUCKET"); v != "" {
		c.ObjStore.Bucket = v
	}
	if v := os.Getenv("HUNMIN_SECURITY_LEVEL"); v != "" {
		c.Document.DefaultSecurityLevel = v
	}
	if v := os.Getenv("HUNMIN_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// STRING / SINGLETON
// =============================================================================

// String returns a redacted representation of the config for debugging.
// Secrets never appear in logs or error output.
func (c *Config) String() string {
	safe := *c
	if safe.Worker.RedisPassword != "" {
		safe.Worker.RedisPassword = "[REDACTED]"
	}
	if safe.Search.MeiliKey != "" {
		safe.Search.MeiliKey = "[REDACTED]"
	}
	if safe.ObjStore.SecretKey != "" {
		safe.ObjStore.SecretKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(&safe, "", "  ")
	return string(data)
}

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}
