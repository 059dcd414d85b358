package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homecast/homecast/internal/store"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print table sizes for the validator database",
		Long: `Print row counts for the fixed tables and every per-miner
prediction table.

Example:
  homecast stats --db data/validator.db
  homecast stats --db data/validator.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()

	tables := store.FixedTables()
	minerTables, err := st.MinerTables(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list miner tables", err)
	}
	tables = append(tables, minerTables...)

	sizes := make(map[string]int64, len(tables))
	for _, table := range tables {
		size, err := st.TableSize(ctx, table)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to size table %s", table), err)
		}
		sizes[table] = size
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(sizes); err != nil {
			return WrapExitError(ExitFailure, "failed to encode stats", err)
		}
		return nil
	}

	for _, table := range tables {
		fmt.Fprintf(out, "%-40s %d\n", table, sizes[table])
	}
	return nil
}
