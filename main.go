/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/
package main

import (
	"github.com/jpl-au/vpnutils/cmd"

	// Import extensions - each registers itself via init()
	_ "github.com/jpl-au/vpnutils/extension/all"
)

func main() {
	cmd.Execute()
}
