package peer

import (
	"errors"
	"fmt"
	"slices"

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
		Use:     "list <vpn>",
		Aliases: []string{"ls"},
		Short:   "List the peers of a VPN",
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ps, err := e.svc.ListPeers(c.Context(), args[0])
			log.Event("peer", "list").Rows(int64(len(ps))).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("peer list %q: %w", args[0], err))
			}
			if cmd.JSON() {
				if ps == nil {
					ps = []store.Peer{}
				}
				return cmd.PrintJSON(ps)
			}
			return format.Peers(cmd.Out(), ps)
		},
	}
}

// peerFlags registers the flags shared by add and update.
func peerFlags(c *cobra.Command) {
	c.Flags().StringP(extension.FlagEndpoint, "e", "", "Endpoint host:port")
	c.Flags().String(extension.FlagDNS, "", "DNS servers, comma-separated")
	c.Flags().StringP(extension.FlagStatus, "s", "", "Status: active or disabled")
	c.Flags().StringP(extension.FlagPublicKey, "p", "", "Public key (base64)")
	c.Flags().StringP(extension.FlagPrivateKey, "P", "", "Private key (base64); the public key is derived")
	c.Flags().StringP(extension.FlagIPv4, "4", "", "IPv4 address")
	c.Flags().StringP(extension.FlagIPv6, "6", "", "IPv6 address")
	_ = c.RegisterFlagCompletionFunc(extension.FlagStatus, func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, s := range store.Statuses() {
			out = append(out, string(s))
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

func (e *Extension) newAddCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "add <vpn> <name>",
		Short: "Add a peer to a VPN",
		Long: `Add a peer. Addresses not given are allocated from the VPN. Without
keys a new key pair is generated; with only --pubkey no private key is
stored.

  vpnutils peer add staff gateway --endpoint vpn.example.com:51820
  vpnutils peer add staff phone --pubkey <base64> --dns 10.0.0.1`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			spec := service.PeerSpec{Vpn: args[0], Name: args[1]}
			spec.Endpoint, _ = c.Flags().GetString(extension.FlagEndpoint)
			spec.DNS, _ = c.Flags().GetString(extension.FlagDNS)
			spec.Status, _ = c.Flags().GetString(extension.FlagStatus)
			spec.PublicKey, _ = c.Flags().GetString(extension.FlagPublicKey)
			spec.PrivateKey, _ = c.Flags().GetString(extension.FlagPrivateKey)
			spec.V4, _ = c.Flags().GetString(extension.FlagIPv4)
			spec.V6, _ = c.Flags().GetString(extension.FlagIPv6)

			p, err := e.svc.AddPeer(c.Context(), spec)
			log.Event("peer", "add").Rows(1).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("peer add %q: %w", args[1], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(p)
			}
			fmt.Fprintf(cmd.Out(), "added peer %s to %s (%s, %s)\n", p.Name, p.VpnName, p.AddressV4, p.AddressV6)
			fmt.Fprintf(cmd.Out(), "public key: %s\n", p.PublicKey)
			return nil
		},
	}
	peerFlags(c)
	return c
}

func (e *Extension) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <vpn> <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a peer from a VPN",
		Long:    `Remove a peer together with its allowed IPs and preshared keys.`,
		Args:    cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			r, err := e.svc.RemovePeer(c.Context(), args[0], args[1])
			log.Event("peer", "remove").Rows(r.Total()).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("peer remove %q: %w", args[1], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(r)
			}
			fmt.Fprintln(cmd.Out(), format.Removal(r))
			return nil
		},
	}
}

func (e *Extension) newUpdateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "update <vpn> <name>",
		Short: "Update an existing peer",
		Long: `Change a peer. An empty --endpoint or --dns clears it. Setting only
--pubkey clears the stored private key; --regenerate-keys replaces both.`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			regen, _ := c.Flags().GetBool(extension.FlagRegenerateKeys)
			ch := service.PeerChange{
				NewName:        extension.StringIfChanged(c, extension.FlagNewName),
				V4:             extension.StringIfChanged(c, extension.FlagIPv4),
				V6:             extension.StringIfChanged(c, extension.FlagIPv6),
				Endpoint:       extension.StringIfChanged(c, extension.FlagEndpoint),
				DNS:            extension.StringIfChanged(c, extension.FlagDNS),
				Status:         extension.StringIfChanged(c, extension.FlagStatus),
				PublicKey:      extension.StringIfChanged(c, extension.FlagPublicKey),
				PrivateKey:     extension.StringIfChanged(c, extension.FlagPrivateKey),
				RegenerateKeys: regen,
			}
			if ch == (service.PeerChange{}) {
				return cmd.PrintJSONError(errors.New("nothing to update"))
			}
			p, err := e.svc.UpdatePeer(c.Context(), args[0], args[1], ch)
			log.Event("peer", "update").Rows(1).Detail("regenerate_keys", regen).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("peer update %q: %w", args[1], err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(p)
			}
			fmt.Fprintf(cmd.Out(), "updated peer %s in %s (%s, %s)\n", p.Name, p.VpnName, p.AddressV4, p.AddressV6)
			if regen || ch.PublicKey != nil || ch.PrivateKey != nil {
				fmt.Fprintf(cmd.Out(), "public key: %s\n", p.PublicKey)
			}
			return nil
		},
	}
	c.Flags().StringP(extension.FlagNewName, "n", "", "New name")
	c.Flags().Bool(extension.FlagRegenerateKeys, false, "Replace the key pair with a new one")
	peerFlags(c)
	return c
}

type showResult struct {
	*store.Peer
	HasPrivateKey bool                 `json:"has_private_key"`
	AllowedIPs    []string             `json:"allowed_ips"`
	PresharedKeys []store.PresharedKey `json:"preshared_keys"`
}

func (e *Extension) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <vpn> <name>",
		Short: "Show a peer with its routes and preshared keys",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			p, err := e.svc.GetPeer(ctx, args[0], args[1])
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("peer show %q: %w", args[1], err))
			}
			routes, err := e.svc.ListAllowedIPs(ctx, p.VpnName, p.Name)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("peer show %q: %w", args[1], err))
			}
			all, err := e.svc.ListPresharedKeys(ctx, p.VpnName)
			log.Event("peer", "show").Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("peer show %q: %w", args[1], err))
			}
			psks := slices.DeleteFunc(all, func(k store.PresharedKey) bool {
				return k.Peer1 != p.Name && k.Peer2 != p.Name
			})

			if cmd.JSON() {
				res := showResult{
					Peer:          p,
					HasPrivateKey: p.PrivateKey != "",
					AllowedIPs:    []string{},
					PresharedKeys: psks,
				}
				for _, r := range routes {
					res.AllowedIPs = append(res.AllowedIPs, r.Address)
				}
				if res.PresharedKeys == nil {
					res.PresharedKeys = []store.PresharedKey{}
				}
				return cmd.PrintJSON(res)
			}
			cmd.RenderMarkdown(format.PeerMarkdown(p, routes, psks))
			return nil
		},
	}
}
