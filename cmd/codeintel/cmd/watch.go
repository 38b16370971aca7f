package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codeintel/engine/internal/output"
	"github.com/codeintel/engine/pkg/codeintel"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the project for changes and keep the index fresh",
		Long: `watch starts a file watcher over the project root and re-indexes
changed files as they happen, using the same auto-refresh cooldown and
file-count ceiling as a normal read-time refresh. It runs until
interrupted (Ctrl-C).

auto_refresh must be enabled in .codeintel.yaml for detected changes to
actually trigger a re-index; otherwise watch only prints what changed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			branch, _ := cmd.Flags().GetString("branch")
			out := output.New(cmd.OutOrStdout())

			eng, root, err := openEngine(ctx, branch)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			out.Statusf("watching %s (branch %s) for changes, press Ctrl-C to stop", root, branch)

			return eng.Watch(ctx, func(batch []codeintel.FileEvent) {
				for _, ev := range batch {
					out.Statusf("%s %s", ev.Operation, ev.Path)
				}
			})
		},
	}

	return cmd
}
