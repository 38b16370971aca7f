package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeintel/engine/internal/output"
	"github.com/codeintel/engine/pkg/codeintel"
)

func newImpactCmd() *cobra.Command {
	var (
		depth      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "impact <symbol-id>",
		Short: "Report what breaks if a symbol changes",
		Long: `impact walks the callers of a symbol breadth-first, reporting the
direct and transitive dependent counts, a sample path to each one, and
a low/medium/high/critical risk classification.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			branch, _ := cmd.Flags().GetString("branch")
			symbolID := args[0]

			ctx := cmd.Context()
			eng, _, err := openEngine(ctx, branch)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			report, err := eng.Impact(ctx, symbolID, branch, codeintel.ImpactOptions{Depth: depth})
			if err != nil {
				return fmt.Errorf("impact analysis failed: %w", err)
			}

			if jsonOutput {
				return printJSON(cmd, report)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("direct dependents:      %d", report.DirectDependents)
			out.Statusf("transitive dependents:  %d", report.TransitiveDependents)
			out.Statusf("risk:                   %s", report.Risk)
			out.Statusf("confidence:             %s", report.Confidence)
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Caller BFS depth (0 = config default)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw impact report as JSON")

	return cmd
}
