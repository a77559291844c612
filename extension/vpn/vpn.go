// Package vpn provides the "vpnutils vpn" commands.
//
// A VPN is a subnet of a network in both address families. Subnets not
// given explicitly are allocated from the network's prefixes.
package vpn

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/format"
	"github.com/jpl-au/vpnutils/internal/log"
	"github.com/jpl-au/vpnutils/internal/service"
	"github.com/jpl-au/vpnutils/internal/store"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the vpn extension.
type Extension struct {
	svc service.Service
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "vpn".
func (e *Extension) Name() string { return "vpn" }

// Init connects to the shared inventory service.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	return nil
}

// Commands returns the vpn command tree.
func (e *Extension) Commands() []*cobra.Command {
	c := &cobra.Command{
		Use:     "vpn",
		Aliases: []string{"vpns"},
		Short:   "Manage VPNs",
	}
	c.AddCommand(e.newListCmd(), e.newAddCmd(), e.newRemoveCmd(), e.newUpdateCmd())
	return []*cobra.Command{c}
}

func (e *Extension) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list [network]",
		Aliases: []string{"ls"},
		Short:   "List all VPNs, or those of one network",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			network := ""
			if len(args) > 0 {
				network = args[0]
			}
			vs, err := e.svc.ListVpns(c.Context(), network)
			log.Event("vpn", "list").Rows(int64(len(vs))).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("vpn list: %w", err))
			}
			if cmd.JSON() {
				if vs == nil {
					vs = []store.Vpn{}
				}
				return cmd.PrintJSON(vs)
			}
			return format.Vpns(cmd.Out(), vs)
		},
	}
}

func (e *Extension) newAddCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "add <network> <name>",
		Short: "Add a VPN to a network",
		Long: `Add a VPN. Subnets not given with -4 / -6 are allocated from the
network, sized by allocation.vpn_prefix_v4 and allocation.vpn_prefix_v6.

  vpnutils vpn add corp staff
  vpnutils vpn add corp lab -4 10.99.0.0/24`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			v4, _ := c.Flags().GetString(extension.FlagIPv4)
			v6, _ := c.Flags().GetString(extension.FlagIPv6)
			v, err := e.svc.AddVpn(c.Context(), service.VpnSpec{Network: args[0], Name: args[1], V4: v4, V6: v6})
			log.Event("vpn", "add").Rows(1).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("vpn add %q: %w", args[1], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(v)
			}
			fmt.Fprintf(cmd.Out(), "added vpn %s to %s (%s, %s)\n", v.Name, v.NetworkName, v.AddressV4, v.AddressV6)
			return nil
		},
	}
	c.Flags().StringP(extension.FlagIPv4, "4", "", "IPv4 subnet (default: allocated)")
	c.Flags().StringP(extension.FlagIPv6, "6", "", "IPv6 subnet (default: allocated)")
	return c
}

func (e *Extension) newRemoveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a VPN",
		Long: `Remove a VPN. Fails while the VPN has peers unless --cascade is given,
which removes the peers with their allowed IPs and preshared keys.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cascade, _ := c.Flags().GetBool(extension.FlagCascade)
			r, err := e.svc.RemoveVpn(c.Context(), args[0], cascade)
			log.Event("vpn", "remove").Rows(r.Total()).Detail("cascade", cascade).Write(err)
			if err != nil {
				if errors.Is(err, store.ErrHasChildren) {
					err = fmt.Errorf("%w (use --cascade to remove them too)", err)
				}
				return cmd.PrintJSONError(fmt.Errorf("vpn remove %q: %w", args[0], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(r)
			}
			fmt.Fprintln(cmd.Out(), format.Removal(r))
			return nil
		},
	}
	c.Flags().Bool(extension.FlagCascade, false, "Also remove the VPN's peers")
	return c
}

func (e *Extension) newUpdateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "update <name>",
		Short: "Update an existing VPN",
		Long: `Rename a VPN or change its subnets. A new subnet must lie inside the
network, overlap no other VPN and still hold every peer address.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ch := service.VpnChange{
				NewName: extension.StringIfChanged(c, extension.FlagNewName),
				V4:      extension.StringIfChanged(c, extension.FlagIPv4),
				V6:      extension.StringIfChanged(c, extension.FlagIPv6),
			}
			if ch.NewName == nil && ch.V4 == nil && ch.V6 == nil {
				return cmd.PrintJSONError(errors.New("nothing to update: give --new-name, -4 or -6"))
			}
			v, err := e.svc.UpdateVpn(c.Context(), args[0], ch)
			log.Event("vpn", "update").Rows(1).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("vpn update %q: %w", args[0], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(v)
			}
			fmt.Fprintf(cmd.Out(), "updated vpn %s (%s, %s)\n", v.Name, v.AddressV4, v.AddressV6)
			return nil
		},
	}
	c.Flags().StringP(extension.FlagNewName, "n", "", "New name")
	c.Flags().StringP(extension.FlagIPv4, "4", "", "New IPv4 subnet")
	c.Flags().StringP(extension.FlagIPv6, "6", "", "New IPv6 subnet")
	return c
}
