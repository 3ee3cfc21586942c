package lexical

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/hybridsearch/internal/db"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/query"
)

// HighlightField is the payload key holding the highlighted content fragment.
const HighlightField = "_highlight"

// Highlight tags wrapped around matched terms.
const (
	HighlightOpen  = "<mark>"
	HighlightClose = "</mark>"
)

const defaultFacetLimit = 20

// store is the consumer interface for lexical search (ISP).
type store interface {
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchPrefix(ctx context.Context, q *db.PrefixQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.FacetCount, error)
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Schema names the index and the document fields the repository reads.
type Schema struct {
	IndexName    string
	KeyPrefix    string
	TitleField   string
	ContentField string
	ReturnFields []string // payload fields; empty returns all stored fields
}

// Repo implements the lexical backend over RediSearch BM25.
type Repo struct {
	store      store
	schema     Schema
	highlight  bool
	facetLimit int
}

// New creates a lexical repository. Highlighting is on by default.
func New(s store, schema Schema) *Repo {
	return &Repo{store: s, schema: schema, highlight: true, facetLimit: defaultFacetLimit}
}

// WithHighlight toggles <mark> highlighting of the content field.
func (r *Repo) WithHighlight(enabled bool) *Repo {
	r.highlight = enabled
	return r
}

// WithFacetLimit caps the number of buckets per facet.
func (r *Repo) WithFacetLimit(n int) *Repo {
	if n > 0 {
		r.facetLimit = n
	}
	return r
}

// Search runs the BM25 query and the facet aggregations concurrently.
// Hits are ranked by position; facet counts are keyed field -> value -> count.
func (r *Repo) Search(ctx context.Context, q query.Query) ([]hit.Hit, map[string]map[string]int64, error) {
	var (
		hits   []hit.Hit
		facets = make([]map[string]int64, len(q.Facets()))
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tq := &db.TextQuery{
			IndexName:    r.schema.IndexName,
			Expr:         q.Expr(),
			Fields:       r.textFields(),
			Filters:      q.Filters(),
			Limit:        q.Limit(),
			ReturnFields: r.schema.ReturnFields,
		}
		if r.highlight && r.schema.ContentField != "" {
			tq.Highlight = &db.Highlight{Field: r.schema.ContentField, Open: HighlightOpen, Close: HighlightClose}
		}
		sr, err := r.store.SearchText(gctx, tq)
		if err != nil {
			return fmt.Errorf("search text: %w", err)
		}
		hits = r.toHits(sr, tq.Highlight != nil)
		return nil
	})

	for i, field := range q.Facets() {
		g.Go(func() error {
			counts, err := r.store.Aggregate(gctx, &db.AggregateQuery{
				IndexName: r.schema.IndexName,
				Expr:      q.Expr(),
				Fields:    r.textFields(),
				Filters:   q.Filters(),
				GroupBy:   field,
				Limit:     r.facetLimit,
			})
			if err != nil {
				return fmt.Errorf("facet %s: %w", field, err)
			}
			m := make(map[string]int64, len(counts))
			for _, c := range counts {
				m[c.Value] = c.Count
			}
			facets[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out map[string]map[string]int64
	if len(q.Facets()) > 0 {
		out = make(map[string]map[string]int64, len(q.Facets()))
		for i, field := range q.Facets() {
			out[field] = facets[i]
		}
	}
	return hits, out, nil
}

// PrefixSearch returns up to limit titles starting with prefix.
func (r *Repo) PrefixSearch(ctx context.Context, prefix string, limit int) ([]string, error) {
	sr, err := r.store.SearchPrefix(ctx, &db.PrefixQuery{
		IndexName: r.schema.IndexName,
		Field:     r.schema.TitleField,
		Prefix:    prefix,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("prefix search: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	titles := make([]string, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if t := e.Fields[r.schema.TitleField]; t != "" {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

// HealthCheck verifies the index is reachable.
func (r *Repo) HealthCheck(ctx context.Context) error {
	ok, err := r.store.IndexExists(ctx, r.schema.IndexName)
	if err != nil {
		return fmt.Errorf("lexical index: %w", err)
	}
	if !ok {
		return fmt.Errorf("lexical index %s not found", r.schema.IndexName)
	}
	return nil
}

func (r *Repo) textFields() []string {
	fields := make([]string, 0, 2)
	if r.schema.TitleField != "" {
		fields = append(fields, r.schema.TitleField)
	}
	if r.schema.ContentField != "" {
		fields = append(fields, r.schema.ContentField)
	}
	return fields
}

var markStripper = strings.NewReplacer(HighlightOpen, "", HighlightClose, "")

func (r *Repo) toHits(sr *db.SearchResult, highlighted bool) []hit.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	hits := make([]hit.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		payload := e.Fields
		if payload == nil {
			payload = map[string]string{}
		}
		if highlighted {
			if content, ok := payload[r.schema.ContentField]; ok {
				if strings.Contains(content, HighlightOpen) {
					payload[HighlightField] = content
				}
				payload[r.schema.ContentField] = markStripper.Replace(content)
			}
		}
		hits = append(hits, hit.Hit{
			DocumentID: strings.TrimPrefix(e.Key, r.schema.KeyPrefix),
			Score:      e.Score,
			Payload:    payload,
		})
	}
	return hit.FromOrdered(hits)
}
