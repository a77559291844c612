// Package network provides the "vpnutils network" commands: list, add,
// remove, update and show.
//
// A network is the top of the inventory. Its IPv4 and IPv6 prefixes are
// the pools VPN subnets are carved from.
package network

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/service"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the network extension.
type Extension struct {
	svc service.Service
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "network".
func (e *Extension) Name() string { return "network" }

// Init connects to the shared inventory service.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	return nil
}

// Commands returns the network command tree.
func (e *Extension) Commands() []*cobra.Command {
	c := &cobra.Command{
		Use:     "network",
		Aliases: []string{"networks"},
		Short:   "Manage networks",
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
