/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// flags.go defines global CLI flags and accessors for shared state.
//
// Separated from root.go to isolate flag definitions from command logic.
// Extensions access these via exported accessor functions rather than
// directly accessing the variables.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/internal/config"
)

var validOutputFormats = []string{"json"}

// Environment variables consulted when flags are absent.
const (
	// EnvStore names the store when --database is not given.
	EnvStore = "VPNUTILS_DATABASE"
	// EnvDatabase is consulted after EnvStore.
	EnvDatabase = "DATABASE_URL"
	// EnvPassword supplies the passphrase without prompting.
	EnvPassword = "VPNUTILS_PASSWORD"
)

var (
	output   string
	force    bool
	database string
)

// out is the output writer for commands. Defaults to os.Stdout.
// Tests can replace this to capture output.
var out io.Writer = os.Stdout

// Out returns the output writer.
func Out() io.Writer { return out }

// Output returns the output format flag value.
func Output() string { return output }

// Force returns the force flag value.
func Force() bool { return force }

// Database returns the encrypted store path.
// Priority: --database flag > VPNUTILS_DATABASE > DATABASE_URL >
// database.path config.
func Database() string {
	if database != "" {
		return database
	}
	for _, name := range []string{EnvStore, EnvDatabase} {
		if env := os.Getenv(name); env != "" {
			return env
		}
	}
	if cfg, err := config.Load(); err == nil {
		return cfg.DatabasePath()
	}
	return ""
}

// SetOut sets the output writer (for testing).
func SetOut(w io.Writer) { out = w }

// JSON returns true if JSON output is requested.
func JSON() bool { return output == "json" }

// PrintJSON marshals v to JSON and writes it to the output writer.
// Returns nil if output format is not JSON.
func PrintJSON(v any) error {
	if output != "json" {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(out, string(b))
	return nil
}

// PrintJSONError prints an error in JSON format if output is JSON.
// Returns nil if error was printed (suppressing Cobra error), or the original error if not.
//
// Inside the shell a printed error is still reported as failure so the
// command is not auto-saved or counted as successful.
func PrintJSONError(err error) error {
	if output != "json" || err == nil {
		return err
	}
	_ = PrintJSON(map[string]string{"error": err.Error()})
	return errPrinted{err}
}

// errPrinted marks an error that has already been written as JSON.
type errPrinted struct{ err error }

func (e errPrinted) Error() string { return e.err.Error() }
func (e errPrinted) Unwrap() error { return e.err }

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format: json")
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "Skip confirmations")
	rootCmd.PersistentFlags().StringVarP(&database, "database", "d", "", "Encrypted store file (default $"+EnvStore+", $"+EnvDatabase+" or database.path config)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return validOutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
}
