// hunmin - terminal client and worker for the 훈민 AI document assistant.
//
// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/docenty/hunmin/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = cli.HandleTUI(args)
	case cli.CmdWorker:
		err = cli.HandleWorker(args)
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdDocs:
		err = cli.HandleDocs(args)
	case cli.CmdKnowledge:
		err = cli.HandleKnowledge(args)
	case cli.CmdAttach:
		err = cli.HandleAttach(args)
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "오류: %v\n", err)
		os.Exit(1)
	}
}
