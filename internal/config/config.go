package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete codeintel engine configuration.
// Field names mirror the engine's external configuration surface: the
// store, the index manager, retrieval, and analysis each own a section.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	Analysis  AnalysisConfig  `yaml:"analysis" json:"analysis"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

// StoreConfig configures the on-disk store and embedding cache.
type StoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string `yaml:"db_path" json:"db_path"`
	// CachePath is the path to the Merkle fingerprint cache file.
	CachePath string `yaml:"cache_path" json:"cache_path"`
	// EmbeddingDimension is the vector dimension stored in the vectors table.
	EmbeddingDimension int `yaml:"embedding_dimension" json:"embedding_dimension"`
	// VectorBackend selects the vector index implementation: "hnsw" or "scan".
	VectorBackend string `yaml:"vector_backend" json:"vector_backend"`
	// KeywordBackend selects the full-text backend: "sqlite" (FTS5 trigram,
	// default) or "bleve" (legacy, single-process).
	KeywordBackend string `yaml:"keyword_backend" json:"keyword_backend"`
	// SQLiteCacheMB sets the SQLite page cache size in megabytes.
	SQLiteCacheMB int `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
}

// IndexConfig configures discovery, extraction, and incremental indexing.
type IndexConfig struct {
	// IncludePatterns are glob patterns for files to index (empty = all).
	IncludePatterns []string `yaml:"include_patterns" json:"include_patterns"`
	// ExcludePatterns are glob patterns for files to skip.
	ExcludePatterns []string `yaml:"exclude_patterns" json:"exclude_patterns"`
	// MaxChunkLines bounds how many source lines a single extracted symbol
	// body may span before being truncated for embedding purposes.
	MaxChunkLines int `yaml:"max_chunk_lines" json:"max_chunk_lines"`
	// ChunkOverlap is the number of trailing lines of an oversized symbol
	// body kept after its first MaxChunkLines-ChunkOverlap lines when it is
	// truncated for embedding.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	// Parallelism bounds concurrent file-indexing tasks during update/rebuild.
	Parallelism int `yaml:"parallelism" json:"parallelism"`
	// EmbeddingBatchSize is the number of symbols embedded per batch call.
	EmbeddingBatchSize int `yaml:"embedding_batch_size" json:"embedding_batch_size"`
	// AutoRefresh enables ensure_fresh() to trigger an incremental update.
	// The engine's Watch calls it on every batch of changes; search,
	// impact, and diff do not call it.
	AutoRefresh bool `yaml:"auto_refresh" json:"auto_refresh"`
	// AutoRefreshCooldownMS is the minimum time between automatic refreshes.
	AutoRefreshCooldownMS int `yaml:"auto_refresh_cooldown_ms" json:"auto_refresh_cooldown_ms"`
	// AutoRefreshMaxFiles is a file-count ceiling: an automatic refresh is
	// skipped entirely when the index tracks more files than this.
	AutoRefreshMaxFiles int `yaml:"auto_refresh_max_files" json:"auto_refresh_max_files"`
	// MaxFileSizeBytes skips files larger than this during discovery.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`
}

// RetrievalConfig configures hybrid search and graph expansion.
type RetrievalConfig struct {
	// RRFK is the reciprocal rank fusion smoothing constant.
	RRFK int `yaml:"rrf_k" json:"rrf_k"`
	// ExactNameBoost scales the keyword-search rank of a hit whose symbol
	// name matches the query exactly, before fusion.
	ExactNameBoost float64 `yaml:"exact_name_boost" json:"exact_name_boost"`
	// GraphDepth bounds the BFS depth for CALLS-edge expansion.
	GraphDepth int `yaml:"graph_depth" json:"graph_depth"`
	// MaxFanOut truncates the edges expanded at each BFS level during graph walks.
	MaxFanOut int `yaml:"max_fan_out" json:"max_fan_out"`
	// ConfidenceThreshold filters out edges below this confidence during
	// graph expansion and impact analysis.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	// MaxTokens bounds the packed context budget returned by search.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
}

// AnalysisConfig configures impact analysis and branch diff.
type AnalysisConfig struct {
	// ImpactDepth bounds the BFS depth walked over callers during impact().
	ImpactDepth int `yaml:"impact_depth" json:"impact_depth"`
	// ImpactConfidenceThreshold filters low-confidence caller edges out of
	// impact results.
	ImpactConfidenceThreshold float64 `yaml:"impact_confidence_threshold" json:"impact_confidence_threshold"`
}

// ServerConfig configures the embedded CLI/server-facing concerns.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// defaultExcludePatterns are always excluded from discovery.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			DBPath:             filepath.Join(".codeintel", "index.db"),
			CachePath:          filepath.Join(".codeintel", "merkle-cache.json"),
			EmbeddingDimension: 0, // 0 triggers auto-detect from the configured Embedder
			VectorBackend:      "hnsw",
			KeywordBackend:     "sqlite",
			SQLiteCacheMB:      64,
		},
		Index: IndexConfig{
			IncludePatterns:       nil,
			ExcludePatterns:       defaultExcludePatterns,
			MaxChunkLines:         200,
			ChunkOverlap:          20,
			Parallelism:           10,
			EmbeddingBatchSize:    100,
			AutoRefresh:           true,
			AutoRefreshCooldownMS: 30000,
			AutoRefreshMaxFiles:   10000,
			MaxFileSizeBytes:      100 * 1024 * 1024,
		},
		Retrieval: RetrievalConfig{
			RRFK:                60,
			ExactNameBoost:      2.0,
			GraphDepth:          2,
			MaxFanOut:           50,
			ConfidenceThreshold: 0.5,
			MaxTokens:           8000,
		},
		Analysis: AnalysisConfig{
			ImpactDepth:               10,
			ImpactConfidenceThreshold: 0.5,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/codeintel/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/codeintel/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codeintel", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "codeintel", "config.yaml")
	}
	return filepath.Join(home, ".config", "codeintel", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/codeintel/config.yaml)
//  3. Project config (.codeintel.yaml in project root)
//  4. Environment variables (CODEINTEL_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .codeintel.yaml or .codeintel.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".codeintel.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".codeintel.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Store.DBPath != "" {
		c.Store.DBPath = other.Store.DBPath
	}
	if other.Store.CachePath != "" {
		c.Store.CachePath = other.Store.CachePath
	}
	if other.Store.EmbeddingDimension != 0 {
		c.Store.EmbeddingDimension = other.Store.EmbeddingDimension
	}
	if other.Store.VectorBackend != "" {
		c.Store.VectorBackend = other.Store.VectorBackend
	}
	if other.Store.KeywordBackend != "" {
		c.Store.KeywordBackend = other.Store.KeywordBackend
	}
	if other.Store.SQLiteCacheMB != 0 {
		c.Store.SQLiteCacheMB = other.Store.SQLiteCacheMB
	}

	if len(other.Index.IncludePatterns) > 0 {
		c.Index.IncludePatterns = other.Index.IncludePatterns
	}
	if len(other.Index.ExcludePatterns) > 0 {
		c.Index.ExcludePatterns = append(c.Index.ExcludePatterns, other.Index.ExcludePatterns...)
	}
	if other.Index.MaxChunkLines != 0 {
		c.Index.MaxChunkLines = other.Index.MaxChunkLines
	}
	if other.Index.ChunkOverlap != 0 {
		c.Index.ChunkOverlap = other.Index.ChunkOverlap
	}
	if other.Index.Parallelism != 0 {
		c.Index.Parallelism = other.Index.Parallelism
	}
	if other.Index.EmbeddingBatchSize != 0 {
		c.Index.EmbeddingBatchSize = other.Index.EmbeddingBatchSize
	}
	if other.Index.AutoRefreshCooldownMS != 0 {
		c.Index.AutoRefreshCooldownMS = other.Index.AutoRefreshCooldownMS
	}
	if other.Index.AutoRefreshMaxFiles != 0 {
		c.Index.AutoRefreshMaxFiles = other.Index.AutoRefreshMaxFiles
	}
	if other.Index.MaxFileSizeBytes != 0 {
		c.Index.MaxFileSizeBytes = other.Index.MaxFileSizeBytes
	}

	if other.Retrieval.RRFK != 0 {
		c.Retrieval.RRFK = other.Retrieval.RRFK
	}
	if other.Retrieval.ExactNameBoost != 0 {
		c.Retrieval.ExactNameBoost = other.Retrieval.ExactNameBoost
	}
	if other.Retrieval.GraphDepth != 0 {
		c.Retrieval.GraphDepth = other.Retrieval.GraphDepth
	}
	if other.Retrieval.MaxFanOut != 0 {
		c.Retrieval.MaxFanOut = other.Retrieval.MaxFanOut
	}
	if other.Retrieval.ConfidenceThreshold != 0 {
		c.Retrieval.ConfidenceThreshold = other.Retrieval.ConfidenceThreshold
	}
	if other.Retrieval.MaxTokens != 0 {
		c.Retrieval.MaxTokens = other.Retrieval.MaxTokens
	}

	if other.Analysis.ImpactDepth != 0 {
		c.Analysis.ImpactDepth = other.Analysis.ImpactDepth
	}
	if other.Analysis.ImpactConfidenceThreshold != 0 {
		c.Analysis.ImpactConfidenceThreshold = other.Analysis.ImpactConfidenceThreshold
	}

	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies CODEINTEL_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODEINTEL_DB_PATH"); v != "" {
		c.Store.DBPath = v
	}
	if v := os.Getenv("CODEINTEL_VECTOR_BACKEND"); v != "" {
		c.Store.VectorBackend = v
	}
	if v := os.Getenv("CODEINTEL_KEYWORD_BACKEND"); v != "" {
		c.Store.KeywordBackend = v
	}
	if v := os.Getenv("CODEINTEL_RRF_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Retrieval.RRFK = k
		}
	}
	if v := os.Getenv("CODEINTEL_PARALLELISM"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Index.Parallelism = p
		}
	}
	if v := os.Getenv("CODEINTEL_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CODEINTEL_AUTO_REFRESH"); v != "" {
		c.Index.AutoRefresh = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("CODEINTEL_CONFIDENCE_THRESHOLD"); v != "" {
		if t, err := parseFloat64(v); err == nil && t >= 0 && t <= 1 {
			c.Retrieval.ConfidenceThreshold = t
		}
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or .codeintel.yaml/.yml file by walking up
// the directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".codeintel.yaml")) ||
			fileExists(filepath.Join(currentDir, ".codeintel.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Retrieval.RRFK <= 0 {
		return fmt.Errorf("retrieval.rrf_k must be positive, got %d", c.Retrieval.RRFK)
	}
	if c.Retrieval.ConfidenceThreshold < 0 || c.Retrieval.ConfidenceThreshold > 1 {
		return fmt.Errorf("retrieval.confidence_threshold must be between 0 and 1, got %f", c.Retrieval.ConfidenceThreshold)
	}
	if c.Retrieval.MaxTokens < 0 {
		return fmt.Errorf("retrieval.max_tokens must be non-negative, got %d", c.Retrieval.MaxTokens)
	}
	if c.Retrieval.GraphDepth < 0 {
		return fmt.Errorf("retrieval.graph_depth must be non-negative, got %d", c.Retrieval.GraphDepth)
	}

	if c.Analysis.ImpactConfidenceThreshold < 0 || c.Analysis.ImpactConfidenceThreshold > 1 {
		return fmt.Errorf("analysis.impact_confidence_threshold must be between 0 and 1, got %f", c.Analysis.ImpactConfidenceThreshold)
	}

	validVectorBackends := map[string]bool{"hnsw": true, "scan": true}
	if !validVectorBackends[strings.ToLower(c.Store.VectorBackend)] {
		return fmt.Errorf("store.vector_backend must be 'hnsw' or 'scan', got %s", c.Store.VectorBackend)
	}

	validKeywordBackends := map[string]bool{"sqlite": true, "bleve": true}
	if !validKeywordBackends[strings.ToLower(c.Store.KeywordBackend)] {
		return fmt.Errorf("store.keyword_backend must be 'sqlite' or 'bleve', got %s", c.Store.KeywordBackend)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	if c.Index.Parallelism < 0 {
		return fmt.Errorf("index.parallelism must be non-negative, got %d", c.Index.Parallelism)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns a list of field names that were added with their default values.
// This keeps long-lived .codeintel.yaml files compatible across engine
// versions that introduce new configuration knobs.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Retrieval.RRFK == 0 {
		c.Retrieval.RRFK = defaults.Retrieval.RRFK
		added = append(added, "retrieval.rrf_k")
	}
	if c.Retrieval.ExactNameBoost == 0 {
		c.Retrieval.ExactNameBoost = defaults.Retrieval.ExactNameBoost
		added = append(added, "retrieval.exact_name_boost")
	}
	if c.Retrieval.ConfidenceThreshold == 0 {
		c.Retrieval.ConfidenceThreshold = defaults.Retrieval.ConfidenceThreshold
		added = append(added, "retrieval.confidence_threshold")
	}
	if c.Store.SQLiteCacheMB == 0 {
		c.Store.SQLiteCacheMB = defaults.Store.SQLiteCacheMB
		added = append(added, "store.sqlite_cache_mb")
	}
	if c.Index.AutoRefreshCooldownMS == 0 {
		c.Index.AutoRefreshCooldownMS = defaults.Index.AutoRefreshCooldownMS
		added = append(added, "index.auto_refresh_cooldown_ms")
	}
	if c.Analysis.ImpactDepth == 0 {
		c.Analysis.ImpactDepth = defaults.Analysis.ImpactDepth
		added = append(added, "analysis.impact_depth")
	}

	return added
}
