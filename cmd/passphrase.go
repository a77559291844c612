/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// passphrase.go reads the store passphrase and yes/no answers from the
// terminal.
//
// The passphrase comes from VPNUTILS_PASSWORD when set, so scripts and
// tests never need a terminal. Otherwise it is read without echo from the
// controlling terminal. Without either, opening fails rather than reading
// a passphrase from a pipe.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	// ErrNoTerminal is returned when a prompt is needed but stdin is not a
	// terminal.
	ErrNoTerminal = errors.New("no terminal for prompt (set " + EnvPassword + " to supply the passphrase)")
	// ErrPassphraseMismatch is returned when confirmation differs.
	ErrPassphraseMismatch = errors.New("passphrases do not match")
)

// stdinIsTerminal reports whether prompts can be shown. Tests replace it.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompt is where questions are written. Stdout stays clean for output.
var prompt io.Writer = os.Stderr

// readPassword reads one line without echo.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// Passphrase returns the passphrase for opening a store.
func Passphrase(path string) (string, error) {
	if p, ok := os.LookupEnv(EnvPassword); ok {
		return p, nil
	}
	if !stdinIsTerminal() {
		return "", ErrNoTerminal
	}
	fmt.Fprintf(prompt, "Passphrase for %s: ", path)
	b, err := readPassword()
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(b), nil
}

// NewPassphrase returns the passphrase for a new store, asking twice when
// prompting.
func NewPassphrase(path string) (string, error) {
	if p, ok := os.LookupEnv(EnvPassword); ok {
		return p, nil
	}
	if !stdinIsTerminal() {
		return "", ErrNoTerminal
	}
	fmt.Fprintf(prompt, "New passphrase for %s: ", path)
	first, err := readPassword()
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	fmt.Fprint(prompt, "Repeat passphrase: ")
	second, err := readPassword()
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	if string(first) != string(second) {
		return "", ErrPassphraseMismatch
	}
	return string(first), nil
}

// stdinReader is shared so confirmations and the shell read the same
// buffered stream.
var stdinReader = bufio.NewReader(os.Stdin)

// Confirm asks a yes/no question on the terminal. It returns false without
// asking when stdin is not a terminal.
func Confirm(question string) bool {
	if !stdinIsTerminal() {
		return false
	}
	fmt.Fprintf(prompt, "%s [y/N] ", question)
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// Stdin returns the shared buffered stdin reader.
func Stdin() *bufio.Reader { return stdinReader }
