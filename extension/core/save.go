// save.go implements "vpnutils save" and "vpnutils quit".
//
// Save re-encrypts the working copy over the store file. Outside the shell
// every changing command already saves on success, so save matters mostly
// inside the shell. Quit leaves the shell, refusing while changes are
// unsaved unless --force is given.

package core

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/internal/log"
)

func (e *Extension) newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Encrypt and write changes to the store",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()
			err := e.ctx.Save(ctx)
			log.Event("vault:save", "save").Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("save: %w", err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(map[string]string{"saved": e.ctx.Vault().Path()})
			}
			fmt.Fprintf(cmd.Out(), "saved %s\n", e.ctx.Vault().Path())
			return nil
		},
	}
}

func (e *Extension) newQuitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "quit",
		Aliases: []string{"exit"},
		Short:   "Leave the shell",
		Long: `Leave the interactive shell. Refuses while there are unsaved changes;
use --force to discard them.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if !cmd.Interactive() {
				return cmd.PrintJSONError(fmt.Errorf("quit only applies inside the shell"))
			}
			if !cmd.Force() {
				dirty, err := e.ctx.Unsaved(c.Context())
				if err != nil {
					return cmd.PrintJSONError(err)
				}
				if dirty {
					return cmd.PrintJSONError(cmd.ErrUnsaved)
				}
			}
			log.Event("core:shell", "quit").Detail("force", cmd.Force()).Write(nil)
			cmd.RequestQuit()
			return nil
		},
	}
}
