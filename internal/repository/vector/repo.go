package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/hybridsearch/internal/db"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
)

// store is the consumer interface for vector search (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Schema names the index and fields used for KNN search.
type Schema struct {
	IndexName    string
	KeyPrefix    string
	VectorField  string
	ReturnFields []string
}

// Repo implements the vector backend over RediSearch HNSW.
type Repo struct {
	store  store
	schema Schema
}

// New creates a vector repository.
func New(s store, schema Schema) *Repo {
	return &Repo{store: s, schema: schema}
}

// Search returns the limit nearest neighbours of vec, closest first.
func (r *Repo) Search(ctx context.Context, vec []float32, filters filter.Set, limit int) ([]hit.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.schema.IndexName,
		VectorField:  r.schema.VectorField,
		Filters:      filters,
		Vector:       vec,
		K:            limit,
		ReturnFields: r.schema.ReturnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]hit.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, hit.Hit{
			DocumentID: strings.TrimPrefix(e.Key, r.schema.KeyPrefix),
			Score:      e.Score,
			Payload:    e.Fields,
		})
	}
	return hit.FromOrdered(hits), nil
}

// HealthCheck verifies the index is reachable.
func (r *Repo) HealthCheck(ctx context.Context) error {
	ok, err := r.store.IndexExists(ctx, r.schema.IndexName)
	if err != nil {
		return fmt.Errorf("vector index: %w", err)
	}
	if !ok {
		return fmt.Errorf("vector index %s not found", r.schema.IndexName)
	}
	return nil
}
