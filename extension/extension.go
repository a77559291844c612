// Package extension provides the plugin architecture for vpnutils.
// Extensions encapsulate related commands and register at init time, so
// each record type (networks, VPNs, peers) lives in its own package.
package extension

import (
	"github.com/spf13/cobra"
)

// Extension defines the contract for vpnutils extensions.
type Extension interface {
	// Name returns a unique identifier for this extension.
	Name() string

	// Commands returns CLI commands to register with the root command.
	Commands() []*cobra.Command
}

// Initializable extensions receive the session context once the store is
// open.
type Initializable interface {
	Extension
	Init(ctx Context) error
}

// Storeless is an optional interface for extensions with commands that
// don't require an open store. Commands returned by NoStoreCommands() will
// not prompt for a passphrase or decrypt anything in PersistentPreRunE.
//
// Use cases:
// 1. Bootstrap commands (like create) that run before a store exists
// 2. Utility commands (config, guide, version) that never touch one
type Storeless interface {
	NoStoreCommands() []string
}
