// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for hunmin.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdWorker
	CmdChat
	CmdStatus
	CmdConfig
	CmdDocs
	CmdKnowledge
	CmdAttach
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	ConfigPath string

	// Command-specific
	File       string // document file opened in the TUI
	Level      string // classification marking override (일반, 대외비, ...)
	Query      string // knowledge search text
	ConfigKey  string
	ConfigVal  string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `hunmin - 훈민 AI document assistant

Hunmin is a terminal client for composing and reviewing security-classified
military documents, with a live rule-based validation and chat panel backed
by a companion worker service.

Usage:
  hunmin [file]                Start the TUI (default), optionally on a file
  hunmin tui [file]            Same, explicitly
  hunmin worker                Run the AI worker service
  hunmin worker adduser NAME   Create an operator account
  hunmin worker totp NAME      Enroll a TOTP authenticator for an account
  hunmin chat [-f FILE]        Interactive chat with the worker (no TUI)
  hunmin status, s             Show worker and configuration status
  hunmin config [show|set|path]  Configuration management
  hunmin docs [list|show|export|rm]  Stored document management
  hunmin knowledge QUERY       Search the knowledge library (alias: k)
  hunmin attach SUBCOMMAND     Document attachment management
  hunmin version               Show version information
  hunmin help                  Show this help

Attach Subcommands:
  hunmin attach put DOC_ID FILE    Upload an attachment
  hunmin attach list DOC_ID        List attachments for a document
  hunmin attach get KEY [OUT]      Download an attachment
  hunmin attach url KEY            Print a presigned download URL
  hunmin attach rm KEY             Delete an attachment

Config Keys (hunmin config set KEY VALUE):
  channel.worker_url               Worker websocket endpoint
  channel.reconnect_delay_ms       Reconnect delay in milliseconds
  channel.max_reconnect_attempts   Consecutive reconnect cap
  worker.listen_addr               Worker bind address
  worker.redis_addr                Redis endpoint for worker sessions
  document.default_security_level  Classification for new documents
  search.meili_host                Meilisearch endpoint
  ui.theme                         dark, light, or auto

Global Flags:
  -c, --config PATH   Use a specific config file
  -q, --quiet         Minimal output
  -v, --verbose       Verbose output
  -h, --help          Show help
  -V, --version       Show version

Examples:
  hunmin 작전계획.md                   Edit a file with live validation
  hunmin --level 대외비 보고서.txt      Open with a classification override
  hunmin worker                        Start the worker on the configured addr
  hunmin knowledge 보안 규정            Search the knowledge library
`

// Parse parses os.Args and returns the command plus its arguments.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

func parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// No remaining args: default to TUI on an empty buffer
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	rest := remaining[1:]
	parsedArgs.Raw = rest

	switch cmd {
	case "tui", "edit":
		if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
			parsedArgs.File = rest[0]
		}
		return CmdTUI, parsedArgs

	case "worker", "serve":
		if len(rest) > 0 {
			parsedArgs.Subcommand = strings.ToLower(rest[0])
			parsedArgs.Raw = rest[1:]
		}
		return CmdWorker, parsedArgs

	case "chat":
		parseChatArgs(&parsedArgs, rest)
		return CmdChat, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, rest)
		return CmdConfig, parsedArgs

	case "docs", "documents":
		if len(rest) > 0 {
			parsedArgs.Subcommand = strings.ToLower(rest[0])
			parsedArgs.Raw = rest[1:]
		}
		return CmdDocs, parsedArgs

	case "knowledge", "k":
		parsedArgs.Query = strings.Join(rest, " ")
		return CmdKnowledge, parsedArgs

	case "attach", "attachments":
		if len(rest) > 0 {
			parsedArgs.Subcommand = strings.ToLower(rest[0])
			parsedArgs.Raw = rest[1:]
		}
		return CmdAttach, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs
	}

	// An unknown first argument that names an existing file opens the TUI on
	// it, so "hunmin 보고서.md" works without the tui keyword.
	if !strings.HasPrefix(cmd, "-") {
		if _, err := os.Stat(remaining[0]); err == nil {
			parsedArgs.File = remaining[0]
			parsedArgs.Raw = nil
			return CmdTUI, parsedArgs
		}
	}

	fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", remaining[0])
	return CmdHelp, parsedArgs
}

// parseGlobalFlags extracts flags valid on every command.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "-V":
			remaining = append(remaining, "version")
		case "-c", "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		case "--level":
			if i+1 < len(args) {
				i++
				parsedArgs.Level = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--config=") {
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			} else if strings.HasPrefix(arg, "--level=") {
				parsedArgs.Level = strings.TrimPrefix(arg, "--level=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseChatArgs parses chat command specific arguments.
func parseChatArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-f", "--file":
			if i+1 < len(remaining) {
				i++
				args.File = remaining[i]
			}
		default:
			if strings.HasPrefix(arg, "--file=") {
				args.File = strings.TrimPrefix(arg, "--file=")
			}
		}
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) == 0 {
		args.Subcommand = "show"
		return
	}

	args.Subcommand = strings.ToLower(remaining[0])
	if args.Subcommand == "set" {
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
	}
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("hunmin %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  go:      %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// HandleHelp prints the usage text.
func HandleHelp() {
	fmt.Print(usageText)
}
