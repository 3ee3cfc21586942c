package hybridsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type historyMode string

const (
	historyRedis  historyMode = "redis"
	historySQLite historyMode = "sqlite"
	historyNone   historyMode = "none"
)

type clientConfig struct {
	addrs    []string
	password string

	schema           IndexSchema
	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	embedder  Embedder
	generator Generator

	lexicalTimeout time.Duration
	vectorTimeout  time.Duration

	history    historyMode
	sqlitePath string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis 8 instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithIndex sets the index to search. Empty fields keep their defaults:
// index "documents", prefix "doc:", fields "title", "content" and "embedding".
func WithIndex(s IndexSchema) Option {
	return optionFunc(func(c *clientConfig) {
		c.schema = s
	})
}

// WithVectorDimensions sets the vector size used by EnsureIndex.
// Zero creates a text-only index.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction) for EnsureIndex.
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithEmbedder sets the query embedding provider.
// Without one, hybrid searches return keyword-only results marked Degraded.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator enables the model pass of query rewriting.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithTimeouts bounds the lexical and vector retrieval branches.
// Default: 2s each.
func WithTimeouts(lexical, vector time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.lexicalTimeout = lexical
		c.vectorTimeout = vector
	})
}

// WithSQLiteHistory keeps search history in a local SQLite database
// instead of Redis lists.
func WithSQLiteHistory(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.history = historySQLite
		c.sqlitePath = path
	})
}

// WithoutHistory disables search history. Suggestions then come from titles only.
func WithoutHistory() Option {
	return optionFunc(func(c *clientConfig) {
		c.history = historyNone
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

func (c *clientConfig) applyDefaults() {
	if c.schema.Name == "" {
		c.schema.Name = "documents"
	}
	if c.schema.KeyPrefix == "" {
		c.schema.KeyPrefix = "doc:"
	}
	if c.schema.TitleField == "" {
		c.schema.TitleField = "title"
	}
	if c.schema.ContentField == "" {
		c.schema.ContentField = "content"
	}
	if c.schema.VectorField == "" {
		c.schema.VectorField = "embedding"
	}
	if c.hnswM <= 0 {
		c.hnswM = 16
	}
	if c.hnswEFConstruct <= 0 {
		c.hnswEFConstruct = 200
	}
	if c.history == "" {
		c.history = historyRedis
	}
}
