// Package peer provides the "vpnutils peer" commands.
//
// Peers belong to one VPN and are addressed as <vpn> <name>. Addresses not
// given are allocated from the VPN subnets; keys not given are generated.
package peer

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/service"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the peer extension.
type Extension struct {
	svc service.Service
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "peer".
func (e *Extension) Name() string { return "peer" }

// Init connects to the shared inventory service.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	return nil
}

// Commands returns the peer command tree.
func (e *Extension) Commands() []*cobra.Command {
	c := &cobra.Command{
		Use:     "peer",
		Aliases: []string{"peers"},
		Short:   "Manage peers of a single VPN",
	}
	c.AddCommand(
		e.newListCmd(),
		e.newAddCmd(),
		e.newRemoveCmd(),
		e.newUpdateCmd(),
		e.newShowCmd(),
	)
	return []*cobra.Command{c}
}
