package network

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

func (e *Extension) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all networks",
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ns, err := e.svc.ListNetworks(c.Context())
			log.Event("network", "list").Rows(int64(len(ns))).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("network list: %w", err))
			}
			if cmd.JSON() {
				if ns == nil {
					ns = []store.Network{}
				}
				return cmd.PrintJSON(ns)
			}
			return format.Networks(cmd.Out(), ns)
		},
	}
}

func (e *Extension) newAddCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "add <name> -4 <cidr> -6 <cidr>",
		Short: "Add a network",
		Long: `Add a network. Both prefixes are required; VPN subnets are allocated
from them.

  vpnutils network add corp -4 10.0.0.0/8 -6 fd00::/8`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			v4, _ := c.Flags().GetString(extension.FlagIPv4)
			v6, _ := c.Flags().GetString(extension.FlagIPv6)
			n, err := e.svc.AddNetwork(c.Context(), service.NetworkSpec{Name: args[0], V4: v4, V6: v6})
			log.Event("network", "add").Rows(1).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("network add %q: %w", args[0], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(n)
			}
			fmt.Fprintf(cmd.Out(), "added network %s (%s, %s)\n", n.Name, n.AddressV4, n.AddressV6)
			return nil
		},
	}
	c.Flags().StringP(extension.FlagIPv4, "4", "", "IPv4 prefix VPN subnets are allocated from")
	c.Flags().StringP(extension.FlagIPv6, "6", "", "IPv6 prefix VPN subnets are allocated from")
	_ = c.MarkFlagRequired(extension.FlagIPv4)
	_ = c.MarkFlagRequired(extension.FlagIPv6)
	return c
}

func (e *Extension) newRemoveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a network",
		Long: `Remove a network. Fails while the network has VPNs unless --cascade is
given, which removes its VPNs and their peers too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cascade, _ := c.Flags().GetBool(extension.FlagCascade)
			r, err := e.svc.RemoveNetwork(c.Context(), args[0], cascade)
			log.Event("network", "remove").Rows(r.Total()).Detail("cascade", cascade).Write(err)
			if err != nil {
				if errors.Is(err, store.ErrHasChildren) {
					err = fmt.Errorf("%w (use --cascade to remove them too)", err)
				}
				return cmd.PrintJSONError(fmt.Errorf("network remove %q: %w", args[0], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(r)
			}
			fmt.Fprintln(cmd.Out(), format.Removal(r))
			return nil
		},
	}
	c.Flags().Bool(extension.FlagCascade, false, "Also remove the network's VPNs and peers")
	return c
}

func (e *Extension) newUpdateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "update <name>",
		Short: "Update an existing network",
		Long: `Rename a network or change its prefixes. A new prefix must still hold
every VPN of the network.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ch := service.NetworkChange{
				NewName: extension.StringIfChanged(c, extension.FlagNewName),
				V4:      extension.StringIfChanged(c, extension.FlagIPv4),
				V6:      extension.StringIfChanged(c, extension.FlagIPv6),
			}
			if ch.NewName == nil && ch.V4 == nil && ch.V6 == nil {
				return cmd.PrintJSONError(errors.New("nothing to update: give --new-name, -4 or -6"))
			}
			n, err := e.svc.UpdateNetwork(c.Context(), args[0], ch)
			log.Event("network", "update").Rows(1).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("network update %q: %w", args[0], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(n)
			}
			fmt.Fprintf(cmd.Out(), "updated network %s (%s, %s)\n", n.Name, n.AddressV4, n.AddressV6)
			return nil
		},
	}
	c.Flags().StringP(extension.FlagNewName, "n", "", "New name")
	c.Flags().StringP(extension.FlagIPv4, "4", "", "New IPv4 prefix")
	c.Flags().StringP(extension.FlagIPv6, "6", "", "New IPv6 prefix")
	return c
}

type showResult struct {
	*store.Network
	Vpns []store.Vpn `json:"vpns"`
}

func (e *Extension) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a network and its VPNs",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			n, err := e.svc.GetNetwork(ctx, args[0])
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("network show %q: %w", args[0], err))
			}
			vpns, err := e.svc.ListVpns(ctx, n.Name)
			log.Event("network", "show").Rows(int64(len(vpns))).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("network show %q: %w", args[0], err))
			}
			if cmd.JSON() {
				if vpns == nil {
					vpns = []store.Vpn{}
				}
				return cmd.PrintJSON(showResult{Network: n, Vpns: vpns})
			}
			cmd.RenderMarkdown(format.NetworkMarkdown(n, vpns))
			return nil
		},
	}
}
