// create.go implements the "vpnutils create" command.
//
// Separated from extension.go because create is the one command that must
// run without a store: it makes the encrypted file that every other
// command opens. An existing file is never overwritten.

package core

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/internal/config"
)

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new encrypted store",
		Long: `Create a new, empty encrypted store at the --database path.

  vpnutils create -d office.vpn

The passphrase is asked for twice, or taken from ` + cmd.EnvPassword + `.`,
		Args: cobra.NoArgs,
		RunE: runCreate,
	}
}

func runCreate(c *cobra.Command, _ []string) error {
	path := cmd.Database()
	if path == "" {
		return cmd.PrintJSONError(cmd.ErrNoDatabase)
	}
	cfg, err := config.Load()
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("config load: %w", err))
	}

	v, err := cmd.CreateStore(c.Context(), path, cfg)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if err := v.Close(); err != nil {
		return cmd.PrintJSONError(err)
	}

	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"created": path})
	}
	fmt.Fprintf(cmd.Out(), "created %s\n", path)
	return nil
}
