/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// root.go defines the root command and CLI execution entry point.
//
// Separated from session.go to isolate cobra setup from store opening.
//
// PersistentPreRunE opens the store lazily: only commands that need it
// trigger a passphrase prompt. This lets bootstrap commands (create, guide,
// config) work without a store. Outside the shell, PersistentPostRunE
// saves after any successful command that changed the inventory. The
// shell itself never auto-saves: leaving it with --force discards.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/internal/log"
	"github.com/jpl-au/vpnutils/internal/vault"
	"github.com/jpl-au/vpnutils/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "vpnutils",
	Short: "Encrypted WireGuard inventory",
	Long: `Keeps an inventory of WireGuard networks, VPNs and peers in a single
passphrase-encrypted file. The plaintext only ever exists in a private
temporary directory while a command or shell session runs.`,
	Version:       version.Short(),
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if output != "" && !slices.Contains(validOutputFormats, output) {
			return fmt.Errorf("invalid output format: %s (valid: %v)", output, validOutputFormats)
		}

		if !noStoreCommands[topLevelCmdName(cmd)] && cmd.HasParent() {
			if err := initExtensions(cmd.Context()); err != nil {
				return PrintJSONError(fmt.Errorf("open store: %w", err))
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		name := topLevelCmdName(cmd)
		if interactive || noStoreCommands[name] || name == "shell" {
			return nil
		}
		return autoSave(cmd.Context())
	},
}

// autoSave saves the session when the last command changed anything.
func autoSave(ctx context.Context) error {
	ext := Session()
	if ext == nil {
		return nil
	}
	dirty, err := ext.Unsaved(ctx)
	if err != nil {
		return PrintJSONError(err)
	}
	if !dirty {
		return nil
	}
	err = ext.Save(ctx)
	log.Event("vault:save", "save").Detail("auto", true).Write(err)
	if err != nil {
		return PrintJSONError(fmt.Errorf("save: %w", err))
	}
	return nil
}

// topLevelCmdName returns the name of the top-level command (direct child of root).
// For "vpnutils peer add office alice", returns "peer".
func topLevelCmdName(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

// reportError prints err unless it was already printed as JSON.
func reportError(w io.Writer, err error) {
	var printed errPrinted
	if errors.As(err, &printed) {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// shutdownGrace is how long a running command gets to finish after an
// interrupt before the session is torn down underneath it.
const shutdownGrace = 2 * time.Second

// Execute runs the root command and handles process lifecycle.
// Opens audit logging, registers extensions, executes the command, and
// closes the session so no plaintext outlives the process. Exit code 1
// indicates error; 130 an interrupt.
func Execute() {
	if err := log.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
	}
	defer log.Close()

	registerExtensions()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		select {
		case err = <-done:
		case <-time.After(shutdownGrace):
		}
		closeAndReport()
		fmt.Fprintln(os.Stderr, "interrupted; unsaved changes discarded")
		log.Close()
		os.Exit(130)
	}

	closeAndReport()
	if err != nil {
		reportError(os.Stderr, err)
		log.Close()
		os.Exit(1)
	}
}

func closeAndReport() {
	if err := closeSession(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing store: %v\n", err)
	}
	// Covers a create or open still in flight when interrupted.
	if err := vault.CloseAll(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing store: %v\n", err)
	}
}

// RootCmd returns the root command for testing and extension access.
func RootCmd() *cobra.Command {
	return rootCmd
}
