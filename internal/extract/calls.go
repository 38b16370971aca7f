package extract

import (
	"github.com/codeintel/engine/internal/store"
)

var callNodeTypes = map[string]string{
	"go":         "call_expression",
	"typescript": "call_expression",
	"tsx":        "call_expression",
	"javascript": "call_expression",
	"jsx":        "call_expression",
	"python":     "call",
}

// extractCalls derives same-file CALLS edges by resolving call expressions
// against the set of symbol names already extracted from the same file.
// Per the confidence-scale decision this is a best-effort approximation:
// it does not resolve across files, shadowing, or method receivers, so
// every edge it emits carries confidence 0.7.
func extractCalls(tree *Tree, config *LanguageConfig, symbols []RawSymbol) []RawEdge {
	if tree == nil || tree.Root == nil {
		return nil
	}
	callNodeType, ok := callNodeTypes[tree.Language]
	if !ok {
		return nil
	}

	byName := make(map[string]string, len(symbols))
	for _, s := range symbols {
		if s.Type == store.SymbolTypeFunction || s.Type == store.SymbolTypeMethod {
			byName[s.Name] = s.QualifiedName
		}
	}

	var edges []RawEdge
	walkCalls(tree.Root, tree.Source, config, tree.Language, callNodeType, "", byName, &edges)
	return edges
}

func walkCalls(n *Node, source []byte, config *LanguageConfig, language, callNodeType, enclosing string, byName map[string]string, out *[]RawEdge) {
	for _, child := range n.Children {
		nextEnclosing := enclosing
		if symType, _, found := classify(child, config); found &&
			(symType == store.SymbolTypeFunction || symType == store.SymbolTypeMethod) {
			if name := extractName(child, source, language); name != "" {
				if enclosing == "" {
					nextEnclosing = name
				} else {
					nextEnclosing = enclosing + "." + name
				}
			}
		}

		if child.Type == callNodeType && enclosing != "" {
			if callee := calleeName(child, source, language); callee != "" {
				if _, ok := byName[callee]; ok {
					*out = append(*out, RawEdge{
						SourceQualifiedName: enclosing,
						TargetName:          callee,
						Type:                store.EdgeTypeCalls,
						Confidence:          0.7,
						Origin:              store.EdgeOriginASTInference,
						SourceLine:          int(child.StartPoint.Row) + 1,
					})
				}
			}
		}

		walkCalls(child, source, config, language, callNodeType, nextEnclosing, byName, out)
	}
}

func calleeName(callNode *Node, source []byte, language string) string {
	if len(callNode.Children) == 0 {
		return ""
	}
	callee := callNode.Children[0]

	switch language {
	case "go", "typescript", "tsx", "javascript", "jsx":
		switch callee.Type {
		case "identifier":
			return callee.Content(source)
		case "selector_expression", "member_expression":
			if len(callee.Children) > 0 {
				last := callee.Children[len(callee.Children)-1]
				return last.Content(source)
			}
		}
	case "python":
		switch callee.Type {
		case "identifier":
			return callee.Content(source)
		case "attribute":
			if len(callee.Children) > 0 {
				last := callee.Children[len(callee.Children)-1]
				return last.Content(source)
			}
		}
	}
	return ""
}
