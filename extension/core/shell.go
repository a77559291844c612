// shell.go implements the "vpnutils shell" command.
//
// The shell keeps one decrypted session open across many commands, so the
// passphrase is asked for once and changes are batched until "save".

package core

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/internal/log"
)

func (e *Extension) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively against one open store",
		Long: `Open the store once and read commands until quit or end of input.

  vpnutils shell -d office.vpn
  vpnutils> network add corp -4 10.0.0.0/8 -6 fd00::/8
  vpnutils> save
  vpnutils> quit

Changes are only written by "save". "quit" refuses while changes are
unsaved; "quit --force" discards them.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			log.Event("core:shell", "start").Write(nil)
			err := cmd.RunShell(c.Context(), cmd.Stdin(), os.Stderr)
			log.Event("core:shell", "end").Write(err)
			return err
		},
	}
}
