// Package core provides the core extension for vpnutils.
// It registers commands: create, save, quit, path, status, changes, shell,
// config, guide, log, version.
package core

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/extension"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the core extension.
type Extension struct {
	ctx extension.Context
}

// Compile-time interface compliance.
var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
	_ extension.Storeless     = (*Extension)(nil)
	_ extension.EventHandler  = (*Extension)(nil)
)

// Name returns "core" - this extension provides store lifecycle commands.
func (e *Extension) Name() string { return "core" }

// Init keeps the session context for save, quit and changes.
func (e *Extension) Init(ctx extension.Context) error {
	e.ctx = ctx
	return nil
}

// Commands returns all core CLI commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		newCreateCmd(),
		e.newSaveCmd(),
		e.newQuitCmd(),
		e.newPathCmd(),
		e.newStatusCmd(),
		e.newChangesCmd(),
		e.newShellCmd(),
		newConfigCmd(),
		newGuideCmd(),
		newLogCmd(),
		newVersionCmd(),
	}
}

// NoStoreCommands returns commands that never open a store.
// create: makes the store, so cannot require one.
// config, guide, log, version: never touch store contents.
func (e *Extension) NoStoreCommands() []string {
	return []string{"create", "config", "guide", "log", "version"}
}
