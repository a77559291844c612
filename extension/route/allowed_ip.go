package route

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/internal/format"
	"github.com/jpl-au/vpnutils/internal/log"
	"github.com/jpl-au/vpnutils/internal/store"
)

func (e *Extension) newAllowedIPListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <vpn> [peer]",
		Aliases: []string{"ls"},
		Short:   "List the allowed IPs of a VPN or one peer",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(c *cobra.Command, args []string) error {
			peer := ""
			if len(args) > 1 {
				peer = args[1]
			}
			as, err := e.svc.ListAllowedIPs(c.Context(), args[0], peer)
			log.Event("allowed-ip", "list").Rows(int64(len(as))).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("allowed-ip list: %w", err))
			}
			if cmd.JSON() {
				if as == nil {
					as = []store.AllowedIP{}
				}
				return cmd.PrintJSON(as)
			}
			return format.AllowedIPs(cmd.Out(), as)
		},
	}
}

func (e *Extension) newAllowedIPAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <vpn> <peer> <cidr>",
		Short: "Announce an extra route for a peer",
		Long: `Add an allowed IP. A bare address is recorded as a host route, so
192.168.1.7 becomes 192.168.1.7/32. Prefixes with host bits set are refused.

  vpnutils allowed-ip add staff gateway 192.168.1.0/24`,
		Args: cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			a, err := e.svc.AddAllowedIP(c.Context(), args[0], args[1], args[2])
			log.Event("allowed-ip", "add").Rows(1).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("allowed-ip add %q: %w", args[2], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(a)
			}
			fmt.Fprintf(cmd.Out(), "added %s to %s/%s\n", a.Address, a.PeerVpn, a.PeerName)
			return nil
		},
	}
}

func (e *Extension) newAllowedIPRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <vpn> <peer> <cidr>",
		Aliases: []string{"rm"},
		Short:   "Remove an allowed IP",
		Args:    cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			err := e.svc.RemoveAllowedIP(c.Context(), args[0], args[1], args[2])
			log.Event("allowed-ip", "remove").Rows(1).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("allowed-ip remove %q: %w", args[2], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(store.Removal{AllowedIPs: 1})
			}
			fmt.Fprintln(cmd.Out(), format.Removal(store.Removal{AllowedIPs: 1}))
			return nil
		},
	}
}
