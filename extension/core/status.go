// status.go implements "vpnutils path", "vpnutils status" and
// "vpnutils changes".

package core

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/internal/log"
	"github.com/jpl-au/vpnutils/internal/store"
)

func (e *Extension) newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the encrypted store path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			p := e.ctx.Vault().Path()
			if cmd.JSON() {
				return cmd.PrintJSON(map[string]string{"path": p})
			}
			fmt.Fprintln(cmd.Out(), p)
			return nil
		},
	}
}

type statusResult struct {
	Path    string `json:"path"`
	Unsaved bool   `json:"unsaved"`
	*store.Stats
}

func (e *Extension) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store counts and unsaved state",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()
			st, err := e.ctx.Service().Stats(ctx)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("status: %w", err))
			}
			dirty, err := e.ctx.Unsaved(ctx)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("status: %w", err))
			}
			log.Event("core:status", "read").Write(nil)

			if cmd.JSON() {
				return cmd.PrintJSON(statusResult{Path: e.ctx.Vault().Path(), Unsaved: dirty, Stats: st})
			}
			w := cmd.Out()
			fmt.Fprintf(w, "Store:          %s\n", e.ctx.Vault().Path())
			fmt.Fprintf(w, "Schema:         %d\n", st.SchemaVersion)
			fmt.Fprintf(w, "Networks:       %d\n", st.Networks)
			fmt.Fprintf(w, "VPNs:           %d\n", st.Vpns)
			fmt.Fprintf(w, "Peers:          %d (%d active)\n", st.Peers, st.ActivePeers)
			fmt.Fprintf(w, "Allowed IPs:    %d\n", st.AllowedIPs)
			fmt.Fprintf(w, "Preshared keys: %d\n", st.PresharedKeys)
			if dirty {
				fmt.Fprintln(w, "Unsaved changes: yes")
			} else {
				fmt.Fprintln(w, "Unsaved changes: no")
			}
			return nil
		},
	}
}

func (e *Extension) newChangesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "changes",
		Short: "Show unsaved changes",
		Long: `Show what changed since the store was opened or last saved.
Secrets appear only as fingerprints.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			r, err := e.ctx.Changes(c.Context())
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("changes: %w", err))
			}
			if cmd.JSON() {
				added, removed := r.Changed()
				return cmd.PrintJSON(map[string]any{
					"unsaved": !r.Empty(),
					"added":   added,
					"removed": removed,
				})
			}
			if r.Empty() {
				fmt.Fprintln(cmd.Out(), "no unsaved changes")
				return nil
			}
			fmt.Fprint(cmd.Out(), r.Format(cmd.Colour()))
			return nil
		},
	}
}
