package extract

import (
	"strings"

	"github.com/codeintel/engine/internal/store"
)

// importNodeTypes names the tree-sitter node types that represent an
// import/require/export-from statement for each language.
var importNodeTypes = map[string][]string{
	"go":         {"import_declaration"},
	"typescript": {"import_statement", "export_statement"},
	"tsx":        {"import_statement", "export_statement"},
	"javascript": {"import_statement", "export_statement", "call_expression"},
	"jsx":        {"import_statement", "export_statement", "call_expression"},
	"python":     {"import_statement", "import_from_statement"},
}

// extractImports lexically scans tree for import/require/export-from
// statements and emits IMPORTS edges. Per the confidence-scale decision,
// lexically unambiguous import edges carry confidence 1.0.
func extractImports(tree *Tree, language string) []RawEdge {
	if tree == nil || tree.Root == nil {
		return nil
	}
	nodeTypes, ok := importNodeTypes[language]
	if !ok {
		return nil
	}

	var edges []RawEdge
	for _, nodeType := range nodeTypes {
		for _, n := range tree.Root.FindAllByType(nodeType) {
			for _, target := range importTargets(n, tree.Source, language) {
				edges = append(edges, RawEdge{
					TargetName: target,
					Type:       store.EdgeTypeImports,
					Confidence: 1.0,
					Origin:     store.EdgeOriginASTInference,
					SourceLine: int(n.StartPoint.Row) + 1,
				})
			}
		}
	}
	return edges
}

// importTargets returns every module/package path an import-family node
// names. Most languages have exactly one; Go's grouped `import (...)` form
// can name several import_specs under a single import_declaration.
func importTargets(n *Node, source []byte, language string) []string {
	switch language {
	case "go":
		var targets []string
		for _, spec := range n.FindAllByType("import_spec") {
			if path := spec.FindChildByType("interpreted_string_literal"); path != nil {
				targets = append(targets, strings.Trim(path.Content(source), `"`))
			}
		}
		return targets
	case "typescript", "tsx", "javascript", "jsx":
		if n.Type == "call_expression" {
			callee := n.Children
			if len(callee) == 0 || callee[0].Content(source) != "require" {
				return nil
			}
			if args := n.FindChildByType("arguments"); args != nil {
				if str := args.FindChildByType("string"); str != nil {
					return []string{strings.Trim(str.Content(source), `"'`)}
				}
			}
			return nil
		}
		if str := n.FindChildByType("string"); str != nil {
			return []string{strings.Trim(str.Content(source), `"'`)}
		}
		return nil
	case "python":
		if mod := n.FindChildByType("dotted_name"); mod != nil {
			return []string{mod.Content(source)}
		}
		if mod := n.FindChildByType("relative_import"); mod != nil {
			return []string{mod.Content(source)}
		}
		return nil
	default:
		return nil
	}
}
