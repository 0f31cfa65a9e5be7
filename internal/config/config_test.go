// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ws://localhost:8000/ws", cfg.Channel.WorkerURL)
	assert.Equal(t, 3000, cfg.Channel.ReconnectDelayMS)
	assert.Equal(t, 3, cfg.Channel.MaxReconnectAttempts)
	assert.Equal(t, "일반", cfg.Document.DefaultSecurityLevel)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
version = "2.0.0"

[channel]
worker_url = "wss://worker.mil.internal/ws"
max_reconnect_attempts = 5

[document]
default_security_level = "II급비밀"
`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, "wss://worker.mil.internal/ws", cfg.Channel.WorkerURL)
	assert.Equal(t, 5, cfg.Channel.MaxReconnectAttempts)
	assert.Equal(t, "II급비밀", cfg.Document.DefaultSecurityLevel)

	// Untouched sections keep defaults.
	assert.Equal(t, 3000, cfg.Channel.ReconnectDelayMS)
	assert.Equal(t, ":8000", cfg.Worker.ListenAddr)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "channel": {"worker_url": "ws://10.0.0.5:8000/ws"},
  "ui": {"theme": "light"}
}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://10.0.0.5:8000/ws", cfg.Channel.WorkerURL)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"http scheme", func(c *Config) { c.Channel.WorkerURL = "http://localhost:8000" }, "channel.worker_url"},
		{"reconnect delay too small", func(c *Config) { c.Channel.ReconnectDelayMS = 50 }, "channel.reconnect_delay_ms"},
		{"too many attempts", func(c *Config) { c.Channel.MaxReconnectAttempts = 99 }, "channel.max_reconnect_attempts"},
		{"unknown level", func(c *Config) { c.Document.DefaultSecurityLevel = "특급비밀" }, "document.default_security_level"},
		{"weak bcrypt", func(c *Config) { c.Auth.BcryptCost = 4 }, "auth.bcrypt_cost"},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HUNMIN_WORKER_URL", "wss://env.example/ws")
	t.Setenv("HUNMIN_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("HUNMIN_SECURITY_LEVEL", "대외비")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "wss://env.example/ws", cfg.Channel.WorkerURL)
	assert.Equal(t, "redis.internal:6379", cfg.Worker.RedisAddr)
	assert.Equal(t, "대외비", cfg.Document.DefaultSecurityLevel)
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Channel.WorkerURL = "wss://roundtrip.example/ws"
	cfg.Search.MeiliHost = "http://127.0.0.1:7700"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://roundtrip.example/ws", loaded.Channel.WorkerURL)
	assert.Equal(t, "http://127.0.0.1:7700", loaded.Search.MeiliHost)
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Worker.RedisPassword = "hunter2"
	cfg.ObjStore.SecretKey = "supersecret"

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "supersecret")
	assert.Contains(t, out, "[REDACTED]")
}
