package search

import (
	"context"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/query"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/suggestion"
)

// LexicalSearcher runs full-text queries with facet counts.
type LexicalSearcher interface {
	Search(ctx context.Context, q query.Query) ([]hit.Hit, map[string]map[string]int64, error)
}

// VectorSearcher runs nearest-neighbour queries.
type VectorSearcher interface {
	Search(ctx context.Context, vec []float32, filters filter.Set, limit int) ([]hit.Hit, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Rewriter normalizes free-form query text. It never fails.
type Rewriter interface {
	Rewrite(ctx context.Context, raw string) (string, bool)
}

// Suggester produces autocomplete suggestions and learns from completed searches.
type Suggester interface {
	Suggest(ctx context.Context, text, userID string) []suggestion.Suggestion
	Observe(text string)
}

// HistoryRecorder persists completed searches asynchronously.
type HistoryRecorder interface {
	Record(rec domain.HistoryRecord)
}

// retriever is the dispatcher as seen by the service.
type retriever interface {
	Dispatch(ctx context.Context, q query.Query, m mode.Mode) (Retrieval, error)
}
