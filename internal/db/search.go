package db

import (
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/query"
)

// TextQuery is the input for BM25 full-text search.
type TextQuery struct {
	IndexName    string
	Expr         query.Expr
	Fields       []string // restrict matching to these TEXT fields; empty = all
	Filters      filter.Set
	Limit        int
	ReturnFields []string
	Highlight    *Highlight
}

// Highlight wraps matched terms of Field in Open/Close tags.
type Highlight struct {
	Field string
	Open  string
	Close string
}

// PrefixQuery is the input for title prefix lookups.
type PrefixQuery struct {
	IndexName string
	Field     string
	Prefix    string
	Limit     int
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Set
	Vector       []float32
	K            int
	ReturnFields []string
}

// AggregateQuery counts documents matching Expr grouped by a TAG field.
type AggregateQuery struct {
	IndexName string
	Expr      query.Expr
	Fields    []string
	Filters   filter.Set
	GroupBy   string
	Limit     int
}

// FacetCount is a single value bucket of an aggregation.
type FacetCount struct {
	Value string
	Count int64
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
