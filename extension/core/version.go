// version.go implements the version command.

package core

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/internal/store"
	"github.com/jpl-au/vpnutils/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print version information including the schema version, build date, git commit, Go version, and platform.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			schema, err := latestSchema()
			if err != nil {
				return cmd.PrintJSONError(err)
			}
			info := version.Get(schema)
			if cmd.JSON() {
				return cmd.PrintJSON(info)
			}
			fmt.Fprint(cmd.Out(), info.String())
			return nil
		},
	}
}

// latestSchema is the schema version this build migrates stores to.
func latestSchema() (int, error) {
	steps, err := store.DefaultMigrations()
	if err != nil {
		return 0, err
	}
	m, err := store.NewMigrator(steps)
	if err != nil {
		return 0, err
	}
	return m.Latest(), nil
}
