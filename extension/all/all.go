// Package all imports all built-in vpnutils extensions.
// Import this package to register all built-in commands.
package all

import (
	// Built-in extensions - each registers itself via init()
	_ "github.com/jpl-au/vpnutils/extension/core"
	_ "github.com/jpl-au/vpnutils/extension/network"
	_ "github.com/jpl-au/vpnutils/extension/peer"
	_ "github.com/jpl-au/vpnutils/extension/route"
	_ "github.com/jpl-au/vpnutils/extension/vpn"
)
