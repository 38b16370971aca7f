package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	codeTokenizerName = "code_tokenizer"
	codeStopFilterName = "code_stop"
	codeAnalyzerName   = "code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(codeStopFilterName, codeStopFilterConstructor)
}

// BleveKeywordRepo implements KeywordRepo over a standalone Bleve v2 index.
// It is the legacy keyword backend: a single-process alternative to
// SQLiteKeywordRepo's FTS5 table, kept for environments where concurrent
// multi-process access to the index is not required.
type BleveKeywordRepo struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ KeywordRepo = (*BleveKeywordRepo)(nil)

type bleveSymbolDoc struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name"`
	Content       string `json:"content"`
	FilePath      string `json:"file_path"`
}

// NewBleveKeywordRepo opens (creating if needed) a Bleve index at path. An
// empty path creates an in-memory index, useful for tests.
func NewBleveKeywordRepo(path string) (*BleveKeywordRepo, error) {
	indexMapping, err := createCodeIndexMapping()
	if err != nil {
		return nil, SchemaMigrationError("failed to build bleve index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, StoreOpenError(fmt.Sprintf("failed to create directory for bleve index %s", path), mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, StoreOpenError("failed to create or open bleve index", err)
	}

	return &BleveKeywordRepo{index: idx, path: path}, nil
}

func createCodeIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(codeAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			codeStopFilterName,
		},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = codeAnalyzerName
	return indexMapping, nil
}

func (b *BleveKeywordRepo) Index(ctx context.Context, symbolID, name, qualifiedName, content, filePath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return StoreOpenError("bleve keyword index is closed", nil)
	}
	doc := bleveSymbolDoc{Name: name, QualifiedName: qualifiedName, Content: content, FilePath: filePath}
	if err := b.index.Index(symbolID, doc); err != nil {
		return SchemaMigrationError("failed to index symbol in bleve", err)
	}
	return nil
}

func (b *BleveKeywordRepo) Search(ctx context.Context, query string, limit int) ([]KeywordResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, StoreOpenError("bleve keyword index is closed", nil)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")
	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		// A malformed query is treated as an empty result set rather than a
		// fatal error, matching the FTS5 backend's contract for
		// user-supplied search text.
		slog.Warn("malformed keyword query, returning empty result", slog.String("query", query), slog.String("error", err.Error()))
		return nil, nil
	}

	out := make([]KeywordResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		// Bleve's score convention is higher-is-better; negate so lower is
		// better, matching KeywordResult's FTS5 bm25() convention.
		out = append(out, KeywordResult{SymbolID: hit.ID, Rank: -hit.Score})
	}
	return out, nil
}

func (b *BleveKeywordRepo) Delete(ctx context.Context, symbolID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return StoreOpenError("bleve keyword index is closed", nil)
	}
	if err := b.index.Delete(symbolID); err != nil {
		return SchemaMigrationError("failed to delete symbol from bleve", err)
	}
	return nil
}

func (b *BleveKeywordRepo) DeleteByFile(ctx context.Context, path, branch string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return StoreOpenError("bleve keyword index is closed", nil)
	}

	query := bleve.NewTermQuery(path)
	query.SetField("file_path")
	req := bleve.NewSearchRequest(query)
	docCount, _ := b.index.DocCount()
	req.Size = int(docCount)

	result, err := b.index.Search(req)
	if err != nil {
		return SchemaMigrationError("failed to search bleve entries for file deletion", err)
	}

	batch := b.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := b.index.Batch(batch); err != nil {
		return SchemaMigrationError("failed to batch-delete bleve entries by file", err)
	}
	return nil
}

func (b *BleveKeywordRepo) Rebuild(ctx context.Context) error {
	// Bleve maintains its index incrementally on every Index/Delete call;
	// there is no separate source-of-truth table to resync against here,
	// unlike the SQLite FTS5 backend whose trigram table can drift from
	// the symbols table across a tokenizer upgrade.
	return nil
}

func (b *BleveKeywordRepo) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func codeTokenizerConstructor(config map[string]any, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

type codeTokenizer struct{}

func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)
		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func codeStopFilterConstructor(config map[string]any, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilter{stopWords: BuildStopWordMap(DefaultCodeStopWords)}, nil
}

type codeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
