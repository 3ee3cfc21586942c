package search

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/query"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/request"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/suggestion"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

func newService(lex *mockLexical, vec *mockVector, sug *mockSuggester) *Service {
	d := NewDispatcher(lex, vec, &mockEmbedder{}, zap.NewNop())
	return New(d, sug, zap.NewNop())
}

func TestSearch_Hybrid(t *testing.T) {
	facets := map[string]map[string]int64{"tags": {"go": 3}}
	sug := &mockSuggester{result: []suggestion.Suggestion{{Text: "golang", Score: 2}}}
	svc := newService(lexicalReturning(hits("A", "B"), facets), vectorReturning(hits("B", "C")), sug)

	resp, err := svc.Search(context.Background(), mustRequest(t, "golang", mode.Hybrid, "", false))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	ids := make([]string, len(resp.Hits))
	for i := range resp.Hits {
		ids[i] = resp.Hits[i].ID()
	}
	if len(ids) != 3 || ids[0] != "B" || ids[1] != "A" || ids[2] != "C" {
		t.Errorf("order = %v, want [B A C]", ids)
	}
	if resp.Facets["tags"]["go"] != 3 {
		t.Errorf("facets = %v", resp.Facets)
	}
	if len(resp.Suggestions) != 1 || resp.Suggestions[0].Text != "golang" {
		t.Errorf("suggestions = %v", resp.Suggestions)
	}
	if resp.Rewritten || resp.OriginalQuery != "" || resp.Query != "golang" {
		t.Errorf("unexpected rewrite state: %+v", resp)
	}
	if resp.Mode != mode.Hybrid {
		t.Errorf("mode = %q", resp.Mode)
	}
	if len(sug.observed) != 1 || sug.observed[0] != "golang" {
		t.Errorf("observed = %v", sug.observed)
	}
}

func TestSearch_PassesRequestToQuery(t *testing.T) {
	lex := &mockLexical{}
	svc := newService(lex, vectorReturning(nil), &mockSuggester{})

	filters, err := filter.New(map[string][]string{"category": {"books"}})
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	req, err := request.New("golang AND java", mode.Keyword, 5, filters, []string{"tags"}, "", false)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}

	if _, err := svc.Search(context.Background(), &req); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(lex.queries) != 1 {
		t.Fatalf("expected 1 lexical query, got %d", len(lex.queries))
	}
	q := lex.queries[0]
	if !q.IsAdvanced() || q.StructuredText() != "(golang AND java)" {
		t.Errorf("structured = %q, want (golang AND java)", q.StructuredText())
	}
	if q.Limit() != 5 || q.Filters().Values("category")[0] != "books" || q.Facets()[0] != "tags" {
		t.Errorf("query options not propagated: limit=%d filters=%v facets=%v", q.Limit(), q.Filters().Map(), q.Facets())
	}
}

func TestSearch_RejectsUnknownTagFields(t *testing.T) {
	tests := []struct {
		name    string
		filters map[string][]string
		facets  []string
	}{
		{"filter", map[string][]string{"secret": {"x"}}, nil},
		{"facet", nil, []string{"secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := &mockLexical{}
			svc := newService(lex, vectorReturning(nil), &mockSuggester{}).WithTagFields([]string{"category", "tags"})

			filters, err := filter.New(tt.filters)
			if err != nil {
				t.Fatalf("filter.New: %v", err)
			}
			req, err := request.New("report", mode.Keyword, 5, filters, tt.facets, "", false)
			if err != nil {
				t.Fatalf("request.New: %v", err)
			}

			before := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(string(mode.Keyword), "invalid"))
			_, err = svc.Search(context.Background(), &req)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if errors.Is(err, domain.ErrBackendUnavailable) {
				t.Error("unknown field must not look like a backend outage")
			}
			if len(lex.queries) != 0 {
				t.Error("backend must not be called for an unknown field")
			}
			after := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(string(mode.Keyword), "invalid"))
			if after != before+1 {
				t.Errorf("invalid count = %v, want %v", after, before+1)
			}
		})
	}
}

func TestSearch_AcceptsConfiguredTagFields(t *testing.T) {
	lex := &mockLexical{}
	svc := newService(lex, vectorReturning(nil), &mockSuggester{}).WithTagFields([]string{"category", "tags"})

	filters, err := filter.New(map[string][]string{"category": {"books"}})
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	req, err := request.New("report", mode.Keyword, 5, filters, []string{"tags"}, "", false)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	if _, err := svc.Search(context.Background(), &req); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(lex.queries) != 1 {
		t.Errorf("expected 1 lexical query, got %d", len(lex.queries))
	}
}

func TestSearch_LimitTruncatesFusion(t *testing.T) {
	svc := newService(lexicalReturning(hits("A", "B", "C"), nil), vectorReturning(hits("D", "E")), &mockSuggester{})
	req, err := request.New("x", mode.Hybrid, 2, filter.Set{}, nil, "", false)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}

	resp, err := svc.Search(context.Background(), &req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(resp.Hits))
	}
}

func TestSearch_Malformed(t *testing.T) {
	lex := &mockLexical{}
	svc := newService(lex, vectorReturning(nil), &mockSuggester{})

	before := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(string(mode.Hybrid), "malformed"))
	_, err := svc.Search(context.Background(), mustRequest(t, "foo AND", mode.Hybrid, "", false))

	var mqe *domain.MalformedQueryError
	if !errors.As(err, &mqe) || mqe.Index != 1 {
		t.Fatalf("expected MalformedQueryError at token 1, got %v", err)
	}
	if len(lex.queries) != 0 {
		t.Error("backends must not be called for a malformed query")
	}
	if after := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(string(mode.Hybrid), "malformed")); after != before+1 {
		t.Errorf("malformed count = %v, want %v", after, before+1)
	}
}

func TestSearch_Rewrite(t *testing.T) {
	lex := &mockLexical{}
	rw := &mockRewriter{out: "cheap laptops", changed: true}
	svc := newService(lex, vectorReturning(nil), &mockSuggester{}).WithRewriter(rw)

	resp, err := svc.Search(context.Background(), mustRequest(t, "show me cheap laptops", mode.Hybrid, "", true))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !resp.Rewritten || resp.OriginalQuery != "show me cheap laptops" || resp.Query != "cheap laptops" {
		t.Errorf("unexpected rewrite state: %+v", resp)
	}
	if lex.queries[0].Raw() != "cheap laptops" {
		t.Errorf("lexical got %q, want rewritten text", lex.queries[0].Raw())
	}
}

func TestSearch_RewriteNotRequested(t *testing.T) {
	rw := &mockRewriter{out: "other", changed: true}
	svc := newService(&mockLexical{}, vectorReturning(nil), &mockSuggester{}).WithRewriter(rw)

	resp, err := svc.Search(context.Background(), mustRequest(t, "laptops", mode.Hybrid, "", false))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if rw.calls != 0 || resp.Rewritten {
		t.Errorf("rewriter must not run when not requested: calls=%d resp=%+v", rw.calls, resp)
	}
}

func TestSearch_RewriteParseFallback(t *testing.T) {
	lex := &mockLexical{}
	rw := &mockRewriter{out: "laptops AND", changed: true}
	svc := newService(lex, vectorReturning(nil), &mockSuggester{}).WithRewriter(rw)

	resp, err := svc.Search(context.Background(), mustRequest(t, "laptops", mode.Hybrid, "", true))
	if err != nil {
		t.Fatalf("expected fallback to original text, got %v", err)
	}
	if resp.Rewritten || resp.Query != "laptops" {
		t.Errorf("unexpected state after fallback: %+v", resp)
	}
	if lex.queries[0].Raw() != "laptops" {
		t.Errorf("lexical got %q, want original", lex.queries[0].Raw())
	}
}

func TestSearch_RewriteFallbackStillMalformed(t *testing.T) {
	rw := &mockRewriter{out: "a AND", changed: true}
	svc := newService(&mockLexical{}, vectorReturning(nil), &mockSuggester{}).WithRewriter(rw)

	_, err := svc.Search(context.Background(), mustRequest(t, "OR b", mode.Hybrid, "", true))
	if !errors.Is(err, domain.ErrMalformedQuery) {
		t.Fatalf("expected ErrMalformedQuery, got %v", err)
	}
}

func TestSearch_Degraded(t *testing.T) {
	vec := &mockVector{searchFn: func(context.Context, []float32, filter.Set, int) ([]hit.Hit, error) {
		return nil, errors.New("down")
	}}
	svc := newService(lexicalReturning(hits("A"), nil), vec, &mockSuggester{})

	before := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(string(mode.Hybrid), "degraded"))
	resp, err := svc.Search(context.Background(), mustRequest(t, "x", mode.Hybrid, "", false))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !resp.Degraded || len(resp.Warnings) == 0 || len(resp.Hits) != 1 {
		t.Errorf("expected degraded lexical-only response, got %+v", resp)
	}
	if after := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(string(mode.Hybrid), "degraded")); after != before+1 {
		t.Errorf("degraded count = %v, want %v", after, before+1)
	}
}

func TestSearch_BackendUnavailable(t *testing.T) {
	lex := &mockLexical{searchFn: func(context.Context, query.Query) ([]hit.Hit, map[string]map[string]int64, error) {
		return nil, nil, errors.New("down")
	}}
	rec := &mockRecorder{}
	sug := &mockSuggester{}
	svc := newService(lex, vectorReturning(nil), sug).WithRecorder(rec)

	_, err := svc.Search(context.Background(), mustRequest(t, "x", mode.Hybrid, "u1", false))
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if len(rec.records) != 0 || len(sug.observed) != 0 {
		t.Error("failed searches must not be recorded")
	}
}

func TestSearch_History(t *testing.T) {
	rec := &mockRecorder{}
	svc := newService(lexicalReturning(hits("A", "B"), nil), vectorReturning(nil), &mockSuggester{}).WithRecorder(rec)

	if _, err := svc.Search(context.Background(), mustRequest(t, "golang", mode.Keyword, "u1", false)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rec.records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(rec.records))
	}
	r := rec.records[0]
	if r.UserID != "u1" || r.Query != "golang" || r.ResultCount != 2 || r.Mode != "keyword" || r.Timestamp.IsZero() {
		t.Errorf("unexpected record: %+v", r)
	}

	// anonymous searches are not recorded
	if _, err := svc.Search(context.Background(), mustRequest(t, "golang", mode.Keyword, "", false)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rec.records) != 1 {
		t.Errorf("anonymous search recorded: %d records", len(rec.records))
	}
}

func TestSearch_SuggestionsUseOriginalText(t *testing.T) {
	sug := &mockSuggester{}
	rw := &mockRewriter{out: "laptops", changed: true}
	svc := newService(&mockLexical{}, vectorReturning(nil), sug).WithRewriter(rw)

	if _, err := svc.Search(context.Background(), mustRequest(t, "show me laptops", mode.Hybrid, "", true)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(sug.texts) != 1 || sug.texts[0] != "show me laptops" {
		t.Errorf("suggest texts = %v", sug.texts)
	}
}

func TestService_Suggest(t *testing.T) {
	sug := &mockSuggester{result: []suggestion.Suggestion{{Text: "golang", Score: 2.1}}}
	svc := newService(&mockLexical{}, &mockVector{}, sug)

	got := svc.Suggest(context.Background(), "go", "u1")
	if len(got) != 1 || got[0].Text != "golang" {
		t.Errorf("Suggest = %v", got)
	}
}
