// guide.go implements the "vpnutils guide" command.
//
// Guides are embedded in the binary via the guide package, so the
// documentation is always available without external files.

package core

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/guide"
)

func newGuideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guide [topic]",
		Short: "Show the vpnutils usage guide",
		Long: `Outputs the vpnutils guide.

  vpnutils guide             # main guide
  vpnutils guide allocation  # how addresses are allocated
  vpnutils guide keys        # key handling and fingerprints
  vpnutils guide shell       # the interactive shell`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			content, err := guide.Get(name)
			if err != nil {
				available, listErr := guide.List()
				if listErr != nil {
					return listErr
				}
				return cmd.PrintJSONError(fmt.Errorf("guide %q not found. Available: %s", name, strings.Join(available, ", ")))
			}

			cmd.RenderMarkdown(content)
			return nil
		},
	}
}
