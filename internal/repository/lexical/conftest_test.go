package lexical

import (
	"context"
	"testing"

	"github.com/kailas-cloud/hybridsearch/internal/db"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/query"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchTextFn   func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchPrefixFn func(ctx context.Context, q *db.PrefixQuery) (*db.SearchResult, error)
	aggregateFn    func(ctx context.Context, q *db.AggregateQuery) ([]db.FacetCount, error)
	indexExistsFn  func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchPrefix(ctx context.Context, q *db.PrefixQuery) (*db.SearchResult, error) {
	if m.searchPrefixFn != nil {
		return m.searchPrefixFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.FacetCount, error) {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func testSchema() Schema {
	return Schema{
		IndexName:    "docs:idx",
		KeyPrefix:    "doc:",
		TitleField:   "title",
		ContentField: "content",
		ReturnFields: []string{"title", "content", "tags"},
	}
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testSchema()), ms
}

func mustParse(t *testing.T, raw string, opts ...query.Option) query.Query {
	t.Helper()
	q, err := query.Parse(raw, opts...)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return q
}
