package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
)

// Config holds the hybridsearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Search    SearchConfig    `yaml:"search"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig describes the document index the engine queries.
type IndexConfig struct {
	Name            string   `yaml:"name"`
	KeyPrefix       string   `yaml:"key_prefix"`
	TitleField      string   `yaml:"title_field"`
	TitleWeight     float64  `yaml:"title_weight"`
	ContentField    string   `yaml:"content_field"`
	TagFields       []string `yaml:"tag_fields"`
	ReturnFields    []string `yaml:"return_fields"`
	VectorField     string   `yaml:"vector_field"`
	Highlight       *bool    `yaml:"highlight"`
	FacetLimit      int      `yaml:"facet_limit"`
	HNSWM           int      `yaml:"hnsw_m"`
	HNSWEFConstruct int      `yaml:"hnsw_ef_construction"`
	CreateOnStart   bool     `yaml:"create_on_start"`
	// RecreateOnStart drops and rebuilds the index, e.g. after a schema change.
	RecreateOnStart bool `yaml:"recreate_on_start"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"` // 0 disables the cache
}

// RewriteConfig holds query rewriting settings. Patterns always run when a
// request asks for rewriting; the model pass needs Model.
type RewriteConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutMs      int    `yaml:"timeout_ms"`
	MinWords       int    `yaml:"min_words"`
	MaxOutputChars int    `yaml:"max_output_chars"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	LexicalTimeoutMs int `yaml:"lexical_timeout_ms"`
	VectorTimeoutMs  int `yaml:"vector_timeout_ms"`
}

// SuggestConfig holds autocomplete settings.
type SuggestConfig struct {
	CacheSize             int     `yaml:"cache_size"`
	CacheTTLSec           int     `yaml:"cache_ttl_sec"`
	PopularitySize        int     `yaml:"popularity_size"`
	PopularityCap         float64 `yaml:"popularity_cap"`
	PopularityHalfLifeSec int     `yaml:"popularity_half_life_sec"`
}

// HistoryConfig holds search history settings.
type HistoryConfig struct {
	Driver         string `yaml:"driver"` // redis, sqlite, none (default: redis)
	SQLitePath     string `yaml:"sqlite_path"`
	KeyPrefix      string `yaml:"key_prefix"`
	MaxPerUser     int    `yaml:"max_per_user"`
	Workers        int    `yaml:"workers"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Index.Name == "" {
		c.Index.Name = "documents"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "doc:"
	}
	if c.Index.TitleField == "" {
		c.Index.TitleField = "title"
	}
	if c.Index.TitleWeight <= 0 {
		c.Index.TitleWeight = 2
	}
	if c.Index.ContentField == "" {
		c.Index.ContentField = "content"
	}
	if c.Index.VectorField == "" {
		c.Index.VectorField = "embedding"
	}
	if c.Index.Highlight == nil {
		on := true
		c.Index.Highlight = &on
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Rewrite.Provider == "" {
		c.Rewrite.Provider = "openai"
	}
	if c.Rewrite.TimeoutMs <= 0 {
		c.Rewrite.TimeoutMs = 1500
	}
	if c.Rewrite.MinWords <= 0 {
		c.Rewrite.MinWords = 3
	}
	if c.Rewrite.MaxOutputChars <= 0 {
		c.Rewrite.MaxOutputChars = 500
	}

	if c.Search.LexicalTimeoutMs <= 0 {
		c.Search.LexicalTimeoutMs = 2000
	}
	if c.Search.VectorTimeoutMs <= 0 {
		c.Search.VectorTimeoutMs = 2000
	}

	if c.Suggest.CacheSize <= 0 {
		c.Suggest.CacheSize = 10000
	}
	if c.Suggest.CacheTTLSec <= 0 {
		c.Suggest.CacheTTLSec = 300
	}
	if c.Suggest.PopularitySize <= 0 {
		c.Suggest.PopularitySize = 10000
	}
	if c.Suggest.PopularityCap <= 0 {
		c.Suggest.PopularityCap = 100
	}
	if c.Suggest.PopularityHalfLifeSec <= 0 {
		c.Suggest.PopularityHalfLifeSec = 86400
	}

	if c.History.Driver == "" {
		c.History.Driver = "redis"
	}
	if c.History.SQLitePath == "" {
		c.History.SQLitePath = "history.db"
	}
	if c.History.KeyPrefix == "" {
		c.History.KeyPrefix = "history:"
	}
	if c.History.MaxPerUser <= 0 {
		c.History.MaxPerUser = 100
	}
	if c.History.Workers <= 0 {
		c.History.Workers = 4
	}
	if c.History.WriteTimeoutMs <= 0 {
		c.History.WriteTimeoutMs = 2000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	for _, f := range c.Index.TagFields {
		if !filter.ValidFieldName(f) {
			return fmt.Errorf("index.tag_fields: %q must match [A-Za-z0-9_]+", f)
		}
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.CacheTTLSec < 0 {
		return fmt.Errorf("embedding.cache_ttl_sec must not be negative, got %d", c.Embedding.CacheTTLSec)
	}
	if c.Rewrite.Enabled && c.Rewrite.Model != "" && c.Rewrite.APIKey == "" && c.Rewrite.BaseURL == "" {
		return fmt.Errorf("rewrite.api_key or rewrite.base_url is required when rewrite.model is set")
	}
	switch c.History.Driver {
	case "redis", "sqlite", "none":
		// ok
	default:
		return fmt.Errorf("history.driver must be \"redis\", \"sqlite\" or \"none\", got %q", c.History.Driver)
	}
	return nil
}

// LexicalTimeout returns the lexical branch timeout.
func (s SearchConfig) LexicalTimeout() time.Duration {
	return time.Duration(s.LexicalTimeoutMs) * time.Millisecond
}

// VectorTimeout returns the vector branch timeout.
func (s SearchConfig) VectorTimeout() time.Duration {
	return time.Duration(s.VectorTimeoutMs) * time.Millisecond
}

// Timeout returns the model call timeout.
func (r RewriteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// WriteTimeout returns the per-write history timeout.
func (h HistoryConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutMs) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
