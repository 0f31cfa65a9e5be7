// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadPassword prompts on stderr and reads a password from the terminal with
// echo disabled. Falls back with an error when stdin is not a terminal.
func ReadPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	pw, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
