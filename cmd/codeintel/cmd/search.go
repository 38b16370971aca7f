package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeintel/engine/internal/output"
	"github.com/codeintel/engine/pkg/codeintel"
)

func newSearchCmd() *cobra.Command {
	var (
		maxTokens int
		graphDepth int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Hybrid vector + keyword search over the indexed codebase",
		Long: `search runs the hybrid retrieval pipeline: parallel vector and
keyword lookups, reciprocal rank fusion, call-graph expansion from the
top hits, and token-budgeted context packing — returning a block of
source ready to hand to a model.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			branch, _ := cmd.Flags().GetString("branch")
			queryText := strings.Join(args, " ")

			ctx := cmd.Context()
			eng, _, err := openEngine(ctx, branch)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			result, err := eng.Search(ctx, codeintel.Query{
				QueryText:  queryText,
				Branch:     branch,
				MaxTokens:  maxTokens,
				GraphDepth: graphDepth,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if jsonOutput {
				return printJSON(cmd, result)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("%d symbols, %d edges, %d tokens (confidence: %s)",
				len(result.Symbols), len(result.Edges), result.TokenCount, result.Metadata.Confidence)
			out.Newline()
			_, werr := fmt.Fprint(cmd.OutOrStdout(), result.ContextString)
			return werr
		},
	}

	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Token budget for packed context (0 = config default)")
	cmd.Flags().IntVar(&graphDepth, "graph-depth", codeintel.GraphDepthUnset, "Call-graph expansion depth, capped at 3 (0 = seed set only, unset = config default)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw search result as JSON")

	return cmd
}
