// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docenty/hunmin/internal/config"
	"github.com/docenty/hunmin/internal/security"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParseDefaultsToTUI(t *testing.T) {
	cmd, args := parse(nil)
	assert.Equal(t, CmdTUI, cmd)
	assert.Empty(t, args.File)
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"explicit tui", []string{"tui"}, CmdTUI},
		{"worker", []string{"worker"}, CmdWorker},
		{"chat", []string{"chat"}, CmdChat},
		{"status", []string{"status"}, CmdStatus},
		{"status alias", []string{"s"}, CmdStatus},
		{"config", []string{"config"}, CmdConfig},
		{"docs", []string{"docs"}, CmdDocs},
		{"knowledge", []string{"knowledge", "보안"}, CmdKnowledge},
		{"knowledge alias", []string{"k", "보안"}, CmdKnowledge},
		{"attach", []string{"attach", "list", "doc-1"}, CmdAttach},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"-h"}, CmdHelp},
		{"unknown command", []string{"frobnicate"}, CmdHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := parse(tt.argv)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := parse([]string{"-q", "--config", "/tmp/x.toml", "--level", "대외비", "status"})
	assert.Equal(t, CmdStatus, cmd)
	assert.True(t, args.Quiet)
	assert.Equal(t, "/tmp/x.toml", args.ConfigPath)
	assert.Equal(t, "대외비", args.Level)
}

func TestParseGlobalFlagEquals(t *testing.T) {
	_, args := parse([]string{"--config=/tmp/y.toml", "--level=일반"})
	assert.Equal(t, "/tmp/y.toml", args.ConfigPath)
	assert.Equal(t, "일반", args.Level)
}

func TestParseTUIFile(t *testing.T) {
	cmd, args := parse([]string{"tui", "보고서.md"})
	assert.Equal(t, CmdTUI, cmd)
	assert.Equal(t, "보고서.md", args.File)
}

func TestParseBareFileOpensTUI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "작전계획.md")
	require.NoError(t, os.WriteFile(path, []byte("내용"), 0600))

	cmd, args := parse([]string{path})
	assert.Equal(t, CmdTUI, cmd)
	assert.Equal(t, path, args.File)
}

func TestParseWorkerSubcommand(t *testing.T) {
	cmd, args := parse([]string{"worker", "adduser", "kim.cheolsu"})
	assert.Equal(t, CmdWorker, cmd)
	assert.Equal(t, "adduser", args.Subcommand)
	require.Len(t, args.Raw, 1)
	assert.Equal(t, "kim.cheolsu", args.Raw[0])
}

func TestParseChatFileFlag(t *testing.T) {
	_, args := parse([]string{"chat", "--file", "보고서.md"})
	assert.Equal(t, "보고서.md", args.File)

	_, args = parse([]string{"chat", "--file=기록.md"})
	assert.Equal(t, "기록.md", args.File)
}

func TestParseConfigSet(t *testing.T) {
	cmd, args := parse([]string{"config", "set", "ui.theme", "dark"})
	assert.Equal(t, CmdConfig, cmd)
	assert.Equal(t, "set", args.Subcommand)
	assert.Equal(t, "ui.theme", args.ConfigKey)
	assert.Equal(t, "dark", args.ConfigVal)
}

func TestParseConfigDefaultsToShow(t *testing.T) {
	_, args := parse([]string{"config"})
	assert.Equal(t, "show", args.Subcommand)
}

func TestParseKnowledgeQueryJoined(t *testing.T) {
	_, args := parse([]string{"knowledge", "보안", "규정"})
	assert.Equal(t, "보안 규정", args.Query)
}

// =============================================================================
// HANDLER HELPER TESTS
// =============================================================================

func TestRestBase(t *testing.T) {
	assert.Equal(t, "http://localhost:8000", restBase("ws://localhost:8000/ws"))
	assert.Equal(t, "https://worker.example.com", restBase("wss://worker.example.com/ws"))
}

func TestSetConfigValue(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, setConfigValue(cfg, "channel.worker_url", "ws://10.0.0.5:8000/ws"))
	assert.Equal(t, "ws://10.0.0.5:8000/ws", cfg.Channel.WorkerURL)

	require.NoError(t, setConfigValue(cfg, "channel.reconnect_delay_ms", "1500"))
	assert.Equal(t, 1500, cfg.Channel.ReconnectDelayMS)

	require.NoError(t, setConfigValue(cfg, "document.default_security_level", "II급비밀"))
	assert.Equal(t, security.MarkingSecretII, cfg.Document.DefaultSecurityLevel)

	assert.Error(t, setConfigValue(cfg, "channel.reconnect_delay_ms", "abc"))
	assert.Error(t, setConfigValue(cfg, "document.default_security_level", "extreme"))
	assert.Error(t, setConfigValue(cfg, "nope.nope", "x"))
}
