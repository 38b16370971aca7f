package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codeintel/engine/internal/output"
	"github.com/codeintel/engine/internal/ui"
	"github.com/codeintel/engine/pkg/codeintel"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the project index",
	}

	cmd.AddCommand(newIndexUpdateCmd())
	cmd.AddCommand(newIndexRebuildCmd())
	cmd.AddCommand(newIndexStatusCmd())

	return cmd
}

func newIndexUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Incrementally re-index files that changed since the last run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndexOp(cmd, (*codeintel.Engine).Update)
		},
	}
	cmd.Flags().Bool("verbose", false, "Print per-phase progress while indexing")
	return cmd
}

func newIndexRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Truncate the index and re-index the project from scratch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndexOp(cmd, (*codeintel.Engine).Rebuild)
		},
	}
	cmd.Flags().Bool("verbose", false, "Print per-phase progress while indexing")
	return cmd
}

// runIndexOp opens an engine, runs op (Update or Rebuild), and reports
// the resulting summary. Both subcommands share this shape; they differ
// only in which Engine method they call.
func runIndexOp(cmd *cobra.Command, op func(*codeintel.Engine, context.Context) (*codeintel.Summary, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	branch, _ := cmd.Flags().GetString("branch")
	out := output.New(cmd.OutOrStdout())

	eng, root, err := openEngine(ctx, branch)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		printer := ui.NewProgressPrinter(cmd.OutOrStdout())
		eng.SetProgressHandler(printer.Report)
	}

	out.Statusf("Indexing %s (branch %s)", root, branch)

	summary, err := op(eng, ctx)
	if err != nil {
		out.Errorf("index failed: %v", err)
		return err
	}

	out.Successf("%d files indexed, %d deleted, %d failed (%s)",
		summary.FilesIndexed, summary.FilesDeleted, summary.FilesFailed, summary.Duration.Round(1e6))
	if summary.FilesFailed > 0 {
		out.Warningf("%d files failed to index; run with --debug for details", summary.FilesFailed)
	}
	return nil
}

func newIndexStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			branch, _ := cmd.Flags().GetString("branch")

			ctx := cmd.Context()
			eng, _, err := openEngine(ctx, branch)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			status, err := eng.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to collect status: %w", err)
			}

			if jsonOutput {
				return printJSON(cmd, status)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("files:   %d", status.FileCount)
			out.Statusf("symbols: %d", status.SymbolCount)
			out.Statusf("updated: %s", status.LastUpdated)
			out.Statusf("size:    %d bytes", status.DBSizeBytes)
			if status.IsIndexing {
				out.Warning("an index update or rebuild is currently running")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
