package cmd

import (
	"github.com/spf13/cobra"

	"github.com/codeintel/engine/internal/output"
)

func newMetricsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show locally-collected search telemetry",
		Long: `metrics reports query pattern telemetry collected from past
search calls: how many queries were lexical, semantic, or mixed, the
most frequent search terms, recent zero-result queries, and a latency
histogram. Everything is stored locally, alongside the index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			branch, _ := cmd.Flags().GetString("branch")

			ctx := cmd.Context()
			eng, _, err := openEngine(ctx, branch)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			snap := eng.Metrics()

			if jsonOutput {
				return printJSON(cmd, snap)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("total queries: %d (%d zero-result, %.1f%%)",
				snap.TotalQueries, snap.ZeroResultCount, snap.ZeroResultPercentage())
			for qt, count := range snap.QueryTypeCounts {
				out.Statusf("  %s: %d", qt, count)
			}
			out.Dimf("repetition: %s", snap.RepetitionSummary())
			for _, tc := range snap.TopTerms {
				out.Dimf("  %s (%d)", tc.Term, tc.Count)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw metrics snapshot as JSON")

	return cmd
}
