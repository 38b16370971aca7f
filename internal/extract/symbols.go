package extract

import (
	"strings"

	"github.com/codeintel/engine/internal/store"
)

// extractSymbols walks tree and returns every declaration recognized by
// config, computing a dotted qualified name as it descends into scopes
// (classes, interfaces, modules).
func extractSymbols(tree *Tree, config *LanguageConfig) []RawSymbol {
	if tree == nil || tree.Root == nil {
		return []RawSymbol{}
	}
	symbols := []RawSymbol{}
	walkSymbols(tree.Root, tree.Source, config, tree.Language, nil, &symbols)
	return symbols
}

func walkSymbols(n *Node, source []byte, config *LanguageConfig, language string, scope []string, out *[]RawSymbol) {
	for _, child := range n.Children {
		symType, isScope, found := classify(child, config)
		if !found {
			if sym := extractSpecialSymbol(child, source, language); sym != nil {
				if len(scope) > 0 {
					sym.QualifiedName = strings.Join(scope, ".") + "." + sym.Name
				} else {
					sym.QualifiedName = sym.Name
				}
				*out = append(*out, *sym)
			}
			walkSymbols(child, source, config, language, scope, out)
			continue
		}

		name := extractName(child, source, language)
		if name == "" {
			walkSymbols(child, source, config, language, scope, out)
			continue
		}

		if symType == store.SymbolTypeFunction && len(scope) > 0 {
			symType = store.SymbolTypeMethod
		}

		qualifiedName := name
		if len(scope) > 0 {
			qualifiedName = strings.Join(scope, ".") + "." + name
		}

		*out = append(*out, RawSymbol{
			Name:          name,
			QualifiedName: qualifiedName,
			Type:          symType,
			StartLine:     int(child.StartPoint.Row) + 1,
			EndLine:       int(child.EndPoint.Row) + 1,
			Content:       child.Content(source),
			Signature:     extractSignature(child, source, symType, language),
			Docstring:     extractDocstring(child, source, language),
		})

		nextScope := scope
		if isScope {
			nextScope = append(append([]string{}, scope...), name)
		}
		walkSymbols(child, source, config, language, nextScope, out)
	}
}

func classify(n *Node, config *LanguageConfig) (store.SymbolType, bool, bool) {
	matches := func(types []string) bool {
		for _, t := range types {
			if n.Type == t {
				return true
			}
		}
		return false
	}

	isScope := false
	for _, t := range config.ScopeTypes {
		if n.Type == t {
			isScope = true
			break
		}
	}

	switch {
	case matches(config.FunctionTypes):
		return store.SymbolTypeFunction, isScope, true
	case matches(config.MethodTypes):
		return store.SymbolTypeMethod, isScope, true
	case matches(config.ClassTypes):
		return store.SymbolTypeClass, isScope, true
	case matches(config.InterfaceTypes):
		return store.SymbolTypeInterface, isScope, true
	case matches(config.TypeDefTypes):
		return store.SymbolTypeTypeAlias, isScope, true
	case matches(config.ConstantTypes):
		return store.SymbolTypeVariable, isScope, true
	case matches(config.VariableTypes):
		return store.SymbolTypeVariable, isScope, true
	default:
		return "", false, false
	}
}

func extractName(n *Node, source []byte, language string) string {
	switch language {
	case "go":
		return extractGoName(n, source)
	case "typescript", "tsx":
		return extractJSFamilyName(n, source)
	case "javascript", "jsx":
		return extractJSFamilyName(n, source)
	case "python":
		return firstChildOfType(n, source, "identifier")
	default:
		return firstChildOfType(n, source, "identifier")
	}
}

func firstChildOfType(n *Node, source []byte, nodeType string) string {
	for _, child := range n.Children {
		if child.Type == nodeType {
			return child.Content(source)
		}
	}
	return ""
}

func extractGoName(n *Node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		return firstChildOfType(n, source, "identifier")
	case "method_declaration":
		return firstChildOfType(n, source, "field_identifier")
	case "type_declaration":
		for _, child := range n.Children {
			if child.Type == "type_spec" {
				if name := firstChildOfType(child, source, "type_identifier"); name != "" {
					return name
				}
			}
		}
	case "const_declaration":
		for _, child := range n.Children {
			if child.Type == "const_spec" {
				if name := firstChildOfType(child, source, "identifier"); name != "" {
					return name
				}
			}
		}
	case "var_declaration":
		for _, child := range n.Children {
			if child.Type == "var_spec" {
				if name := firstChildOfType(child, source, "identifier"); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

func extractJSFamilyName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		for _, child := range n.Children {
			if child.Type == "variable_declarator" {
				if name := firstChildOfType(child, source, "identifier"); name != "" {
					return name
				}
			}
		}
	}
	for _, child := range n.Children {
		if child.Type == "identifier" || child.Type == "type_identifier" {
			return child.Content(source)
		}
	}
	return ""
}

// extractSpecialSymbol recognizes `const f = () => {}` / `const f = function(){}`
// assignments, which tree-sitter does not classify under FunctionTypes.
func extractSpecialSymbol(n *Node, source []byte, language string) *RawSymbol {
	switch language {
	case "typescript", "tsx", "javascript", "jsx":
		if n.Type != "lexical_declaration" && n.Type != "variable_declaration" {
			return nil
		}
	default:
		return nil
	}

	for _, child := range n.Children {
		if child.Type != "variable_declarator" {
			continue
		}
		var name string
		var isFunction bool
		for _, grandchild := range child.Children {
			switch grandchild.Type {
			case "identifier":
				name = grandchild.Content(source)
			case "arrow_function", "function", "function_expression":
				isFunction = true
			}
		}
		if name != "" && isFunction {
			return &RawSymbol{
				Name:      name,
				Type:      store.SymbolTypeFunction,
				StartLine: int(n.StartPoint.Row) + 1,
				EndLine:   int(n.EndPoint.Row) + 1,
				Content:   n.Content(source),
				Signature: extractFunctionSignature(n.Content(source), "javascript"),
			}
		}
	}
	return nil
}

func extractDocstring(n *Node, source []byte, language string) string {
	if language == "python" {
		return extractPythonDocstring(n, source)
	}
	if n.StartPoint.Row == 0 {
		return ""
	}

	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	prevLineEnd := lineStart - 1
	prevLineStart := prevLineEnd - 1
	for prevLineStart > 0 && source[prevLineStart-1] != '\n' {
		prevLineStart--
	}
	prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))

	if strings.HasPrefix(prevLine, "//") {
		return strings.TrimSpace(strings.TrimPrefix(prevLine, "//"))
	}
	return ""
}

// extractPythonDocstring looks for a string expression as the first
// statement of the declaration's body block.
func extractPythonDocstring(n *Node, source []byte) string {
	block := n.FindChildByType("block")
	if block == nil || len(block.Children) == 0 {
		return ""
	}
	first := block.Children[0]
	if first.Type != "expression_statement" || len(first.Children) == 0 {
		return ""
	}
	str := first.Children[0]
	if str.Type != "string" {
		return ""
	}
	content := str.Content(source)
	content = strings.Trim(content, "\"'")
	content = strings.TrimPrefix(content, "\"\"")
	content = strings.TrimSuffix(content, "\"\"")
	return strings.TrimSpace(content)
}

func extractSignature(n *Node, source []byte, symType store.SymbolType, language string) string {
	content := n.Content(source)
	if content == "" {
		return ""
	}
	switch symType {
	case store.SymbolTypeFunction, store.SymbolTypeMethod:
		return extractFunctionSignature(content, language)
	case store.SymbolTypeClass, store.SymbolTypeInterface, store.SymbolTypeTypeAlias:
		return extractBlockSignature(content)
	default:
		return ""
	}
}

func extractFunctionSignature(content, language string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if language == "python" {
		return firstLine
	}
	if idx := strings.Index(firstLine, "{"); idx != -1 {
		return strings.TrimSpace(firstLine[:idx])
	}
	return firstLine
}

func extractBlockSignature(content string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if idx := strings.Index(firstLine, "{"); idx != -1 {
		return strings.TrimSpace(firstLine[:idx])
	}
	return firstLine
}
