package extract

import (
	"context"
	"sync"
)

// treeSitterAdapter is the Adapter implementation shared by every language
// the engine parses with tree-sitter.
type treeSitterAdapter struct {
	language string
	config   *LanguageConfig
	registry *LanguageRegistry

	mu     sync.Mutex
	parser *Parser
}

func newTreeSitterAdapter(language string, config *LanguageConfig, registry *LanguageRegistry) *treeSitterAdapter {
	return &treeSitterAdapter{language: language, config: config, registry: registry, parser: NewParser()}
}

func (a *treeSitterAdapter) Language() string { return a.language }

func (a *treeSitterAdapter) Extract(path string, source []byte) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	tree, err := a.parser.Parse(context.Background(), source, a.language)
	if err != nil {
		return Result{Symbols: []RawSymbol{}, Edges: []RawEdge{}, Err: err}
	}

	symbols := extractSymbols(tree, a.config)
	edges := extractImports(tree, a.language)
	edges = append(edges, extractCalls(tree, a.config, symbols)...)

	return Result{Symbols: symbols, Edges: edges}
}

// noOpAdapter satisfies §9's "unknown extensions resolve to a no-op
// adapter that returns an empty result, never an error" requirement.
type noOpAdapter struct{}

func (noOpAdapter) Language() string { return "" }

func (noOpAdapter) Extract(string, []byte) Result {
	return Result{Symbols: []RawSymbol{}, Edges: []RawEdge{}}
}

// AdapterRegistry selects an Adapter by file extension.
type AdapterRegistry struct {
	languages *LanguageRegistry
	mu        sync.Mutex
	adapters  map[string]*treeSitterAdapter
}

// NewAdapterRegistry returns a registry backed by the default language set.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{languages: DefaultRegistry(), adapters: make(map[string]*treeSitterAdapter)}
}

// ForPath returns the Adapter for path's extension, or the no-op adapter if
// the extension isn't registered.
func (r *AdapterRegistry) ForPath(path string) Adapter {
	ext := extOf(path)
	config, ok := r.languages.ByExtension(ext)
	if !ok {
		return noOpAdapter{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.adapters[config.Name]; ok {
		return a
	}
	a := newTreeSitterAdapter(config.Name, config, r.languages)
	r.adapters[config.Name] = a
	return a
}

// Close releases every constructed adapter's parser resources.
func (r *AdapterRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.adapters {
		a.parser.Close()
	}
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
