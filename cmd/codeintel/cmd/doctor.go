package cmd

import (
	"github.com/spf13/cobra"

	"github.com/codeintel/engine/internal/output"
	"github.com/codeintel/engine/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check whether this machine and project can index and search",
		Long: `doctor runs a set of environment checks — disk space, available
memory, write permissions in the project directory, and the open file
descriptor limit — and reports whether an index/rebuild is likely to
succeed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root := projectRoot()

			checker := preflight.New(
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
			)
			results := checker.RunAll(cmd.Context(), root)
			checker.PrintResults(results)

			if checker.HasCriticalFailures(results) {
				out := output.New(cmd.OutOrStdout())
				out.Error("one or more required checks failed")
				return errDoctorFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print check details")

	return cmd
}
