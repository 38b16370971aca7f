package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeintel/engine/internal/output"
)

func newDiffCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "diff <source-branch> <target-branch>",
		Short: "Structurally compare two indexed branches",
		Long: `diff compares two branches' symbol and edge sets, classifying each
modified symbol's change as a signature, location, or content change,
and reporting the union of files any of those changes touched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceBranch, targetBranch := args[0], args[1]

			ctx := cmd.Context()
			eng, _, err := openEngine(ctx, sourceBranch)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			diff, err := eng.Diff(ctx, sourceBranch, targetBranch)
			if err != nil {
				return fmt.Errorf("diff failed: %w", err)
			}

			if jsonOutput {
				return printJSON(cmd, diff)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("%d added, %d removed, %d modified, %d edges changed",
				len(diff.Added), len(diff.Removed), len(diff.Modified), len(diff.Edges))
			for _, f := range diff.AffectedFiles {
				out.Dimf("  %s", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw diff result as JSON")

	return cmd
}
