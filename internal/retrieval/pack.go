package retrieval

import (
	"fmt"
	"strings"

	"github.com/codeintel/engine/internal/store"
)

// minRemainingTokens is the smallest remaining budget a truncated block is
// allowed to consume; once fewer tokens than this remain, packing stops
// rather than emitting a sliver of a symbol's source.
const minRemainingTokens = 100

// estimateTokens approximates a model's tokenization as one token per four
// characters, the same rough heuristic used throughout the ambient logging
// and context-budget code in this codebase.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// packContext formats syms into fenced blocks (type, qualified name,
// location, signature, docstring, source) and concatenates them until
// maxTokens is exhausted, truncating the final block rather than dropping
// it outright as long as at least minRemainingTokens would remain.
func packContext(syms []*store.Symbol, maxTokens int) (string, int) {
	var sb strings.Builder
	total := 0

	for _, sym := range syms {
		block := formatSymbolBlock(sym)
		blockTokens := estimateTokens(block)
		remaining := maxTokens - total

		if remaining <= 0 {
			break
		}

		if blockTokens > remaining {
			if remaining < minRemainingTokens {
				break
			}
			block = truncateToTokens(block, remaining)
			blockTokens = estimateTokens(block)
		}

		sb.WriteString(block)
		sb.WriteString("\n\n")
		total += blockTokens

		if total >= maxTokens {
			break
		}
	}

	return strings.TrimRight(sb.String(), "\n"), total
}

func formatSymbolBlock(sym *store.Symbol) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s %s\n", sym.Type, sym.QualifiedName)
	fmt.Fprintf(&sb, "%s:%d-%d\n", sym.FilePath, sym.StartLine, sym.EndLine)
	if sym.Signature != "" {
		fmt.Fprintf(&sb, "%s\n", sym.Signature)
	}
	if sym.Docstring != "" {
		fmt.Fprintf(&sb, "%s\n", sym.Docstring)
	}
	fmt.Fprintf(&sb, "```%s\n%s\n```", strings.ToLower(sym.Language), sym.Content)
	return sb.String()
}

// truncateToTokens cuts s to approximately maxTokens*4 characters, the
// inverse of estimateTokens.
func truncateToTokens(s string, maxTokens int) string {
	limit := maxTokens * 4
	if limit >= len(s) {
		return s
	}
	return s[:limit]
}
