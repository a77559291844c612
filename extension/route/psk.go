package route

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/format"
	"github.com/jpl-au/vpnutils/internal/log"
	"github.com/jpl-au/vpnutils/internal/store"
)

// pskJSON is a preshared key as printed; the key itself never is.
type pskJSON struct {
	Vpn         string `json:"vpn"`
	Peer1       string `json:"peer1"`
	Peer2       string `json:"peer2"`
	Fingerprint string `json:"fingerprint"`
}

func toJSON(k store.PresharedKey) pskJSON {
	return pskJSON{Vpn: k.Vpn, Peer1: k.Peer1, Peer2: k.Peer2, Fingerprint: store.Fingerprint(k.Key)}
}

func (e *Extension) newPSKListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <vpn>",
		Aliases: []string{"ls"},
		Short:   "List the preshared key pairs of a VPN",
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ks, err := e.svc.ListPresharedKeys(c.Context(), args[0])
			log.Event("psk", "list").Rows(int64(len(ks))).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("psk list %q: %w", args[0], err))
			}
			if cmd.JSON() {
				out := make([]pskJSON, 0, len(ks))
				for _, k := range ks {
					out = append(out, toJSON(k))
				}
				return cmd.PrintJSON(out)
			}
			return format.PresharedKeys(cmd.Out(), ks)
		},
	}
}

func (e *Extension) newPSKSetCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "set <vpn> <peer1> <peer2>",
		Short: "Set the preshared key between two peers",
		Long: `Set the preshared key for a pair of peers, generating one unless --key
is given. The pair is unordered and setting it again replaces the key.`,
		Args: cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			key, _ := c.Flags().GetString(extension.FlagKey)
			k, err := e.svc.SetPresharedKey(c.Context(), args[0], args[1], args[2], key)
			log.Event("psk", "set").Rows(1).Detail("generated", key == "").Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("psk set: %w", err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(toJSON(*k))
			}
			fmt.Fprintf(cmd.Out(), "set preshared key %s for %s <-> %s\n", store.Fingerprint(k.Key), k.Peer1, k.Peer2)
			return nil
		},
	}
	c.Flags().StringP(extension.FlagKey, "k", "", "Preshared key (base64); generated when empty")
	return c
}

func (e *Extension) newPSKRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <vpn> <peer1> <peer2>",
		Aliases: []string{"rm"},
		Short:   "Remove the preshared key between two peers",
		Args:    cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			err := e.svc.RemovePresharedKey(c.Context(), args[0], args[1], args[2])
			log.Event("psk", "remove").Rows(1).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("psk remove: %w", err))
			}
			r := store.Removal{PresharedKeys: 1}
			if cmd.JSON() {
				return cmd.PrintJSON(r)
			}
			fmt.Fprintln(cmd.Out(), format.Removal(r))
			return nil
		},
	}
}
