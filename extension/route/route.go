// Package route provides the per-peer routing commands: "vpnutils
// allowed-ip" for extra routes and "vpnutils psk" for preshared keys
// between peer pairs.
package route

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/service"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the route extension.
type Extension struct {
	svc service.Service
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "route".
func (e *Extension) Name() string { return "route" }

// Init connects to the shared inventory service.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	return nil
}

// Commands returns the allowed-ip and psk command trees.
func (e *Extension) Commands() []*cobra.Command {
	aip := &cobra.Command{
		Use:     "allowed-ip",
		Aliases: []string{"allowed-ips", "aip"},
		Short:   "Manage extra routes announced for a peer",
	}
	aip.AddCommand(e.newAllowedIPListCmd(), e.newAllowedIPAddCmd(), e.newAllowedIPRemoveCmd())

	psk := &cobra.Command{
		Use:   "psk",
		Short: "Manage preshared keys between peers",
	}
	psk.AddCommand(e.newPSKListCmd(), e.newPSKSetCmd(), e.newPSKRemoveCmd())

	return []*cobra.Command{aip, psk}
}
