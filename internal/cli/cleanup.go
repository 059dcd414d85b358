package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homecast/homecast/internal/store"
)

// CleanupOptions holds flags for the cleanup command.
type CleanupOptions struct {
	*RootOptions
	Database string
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CleanupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Checkpoint the WAL and compact the database",
		Long: `Flush the write-ahead log into the main database file and
reclaim free pages with VACUUM. Run while the validator is stopped or
between ingestion cycles.

Example:
  homecast cleanup --db data/validator.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCleanup(opts *CleanupOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.Checkpoint(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "cleanup failed", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Database checkpointed and compacted.")
	return nil
}
