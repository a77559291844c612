// auditlog.go implements "vpnutils log" and "vpnutils log prune".
//
// The audit log lives outside any store, so neither command asks for a
// passphrase. Both default to entries for the store that would be opened
// (--database, environment or config) and take --all for every store.

package core

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpnutils/cmd"
	"github.com/jpl-au/vpnutils/internal/duration"
	"github.com/jpl-au/vpnutils/internal/format"
	"github.com/jpl-au/vpnutils/internal/log"
)

// auditFilter builds the store part of a log filter.
func auditFilter(all bool) (log.Filter, error) {
	if all {
		return log.Filter{}, nil
	}
	path := cmd.Database()
	if path == "" {
		return log.Filter{}, cmd.ErrNoDatabase
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return log.Filter{}, err
	}
	return log.Filter{Store: log.StoreID(abs)}, nil
}

func newLogCmd() *cobra.Command {
	var (
		all   bool
		since string
		limit int
	)
	c := &cobra.Command{
		Use:   "log",
		Short: "Show the audit log",
		Long: `Show recent audit entries: which commands ran, when, how many rows
they touched and whether they succeeded. Entries never contain names,
addresses or keys.

  vpnutils log --since 7d
  vpnutils log --all --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			f, err := auditFilter(all)
			if err != nil {
				return cmd.PrintJSONError(err)
			}
			if since != "" {
				if f.Since, err = duration.Cutoff(since, time.Now()); err != nil {
					return cmd.PrintJSONError(err)
				}
			}
			f.Limit = limit
			rs, err := log.Records(f)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("log: %w", err))
			}
			if cmd.JSON() {
				if rs == nil {
					rs = []log.Record{}
				}
				return cmd.PrintJSON(rs)
			}
			return format.AuditLog(cmd.Out(), rs)
		},
	}
	c.Flags().BoolVar(&all, "all", false, "Include every store")
	c.Flags().StringVar(&since, "since", "", "Only entries newer than a period (12h, 7d, 4w, 3m)")
	c.Flags().IntVarP(&limit, "limit", "l", 20, "Most recent entries to show (0 for all)")
	c.AddCommand(newLogPruneCmd())
	return c
}

func newLogPruneCmd() *cobra.Command {
	var (
		all       bool
		olderThan string
		dryRun    bool
	)
	c := &cobra.Command{
		Use:   "prune --older-than <period>",
		Short: "Delete old audit entries",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			f, err := auditFilter(all)
			if err != nil {
				return cmd.PrintJSONError(err)
			}
			if f.Before, err = duration.Cutoff(olderThan, time.Now()); err != nil {
				return cmd.PrintJSONError(err)
			}

			var n int64
			if dryRun {
				n, err = log.Count(f)
			} else {
				n, err = log.Prune(f)
				log.Event("core:log", "prune").Rows(n).Write(err)
			}
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("log prune: %w", err))
			}

			if cmd.JSON() {
				return cmd.PrintJSON(map[string]any{"pruned": n, "dry_run": dryRun})
			}
			if dryRun {
				fmt.Fprintf(cmd.Out(), "would prune %d entries\n", n)
				return nil
			}
			fmt.Fprintf(cmd.Out(), "pruned %d entries\n", n)
			return nil
		},
	}
	c.Flags().BoolVar(&all, "all", false, "Prune entries of every store")
	c.Flags().StringVar(&olderThan, "older-than", "", "Age of the entries to delete (12h, 7d, 4w, 3m)")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "Count the entries without deleting them")
	_ = c.MarkFlagRequired("older-than")
	return c
}
