package suggest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

func newPopularity(t *testing.T) *Popularity {
	t.Helper()
	p, err := NewPopularity(100, DefaultPopularityCap, 0)
	if err != nil {
		t.Fatalf("NewPopularity: %v", err)
	}
	return p
}

func TestSuggest_ShortInput(t *testing.T) {
	titles := titlesOf("a title")
	e := New(titles, historyOf(), nil, zap.NewNop())

	for _, in := range []string{"", "a", "  b  "} {
		if got := e.Suggest(context.Background(), in, "u1"); len(got) != 0 {
			t.Errorf("Suggest(%q) = %v, want empty", in, got)
		}
	}
	if titles.calls.Load() != 0 {
		t.Errorf("backend called %d times for short input", titles.calls.Load())
	}
}

func TestSuggest_MergesSourcesAndFilters(t *testing.T) {
	titles := titlesOf("Machine Learning Basics", "Deep Learning", "machine learning basics")
	history := historyOf("machine vision", "cooking", "MACHINE learning basics")

	e := New(titles, history, nil, zap.NewNop())
	got := e.Suggest(context.Background(), "Mach", "u1")

	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d: %+v", len(got), got)
	}
	// equal scores: ordered by text, uppercase first
	if got[0].Text != "Machine Learning Basics" || got[1].Text != "machine vision" {
		t.Errorf("unexpected order: %+v", got)
	}
	for _, s := range got {
		if s.Score != prefixBonus {
			t.Errorf("score(%q) = %v, want %v", s.Text, s.Score, prefixBonus)
		}
	}
}

func TestSuggest_Scoring(t *testing.T) {
	pop := newPopularity(t)
	for range 5 {
		pop.Observe("golang")
	}
	e := New(titlesOf("go", "golang", "gopher"), nil, pop, zap.NewNop())

	got := e.Suggest(context.Background(), "go", "")
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %+v", got)
	}
	want := map[string]float64{
		"golang": 2 + 0.1*5 + 0.05*4,
		"go":     2 + 0.05*8,
		"gopher": 2 + 0.05*4,
	}
	for _, s := range got {
		if math.Abs(s.Score-want[s.Text]) > 1e-9 {
			t.Errorf("score(%q) = %v, want %v", s.Text, s.Score, want[s.Text])
		}
	}
	if got[0].Text != "golang" || got[1].Text != "go" || got[2].Text != "gopher" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestSuggest_TieBrokenByText(t *testing.T) {
	e := New(titlesOf("abd", "abc", "abe"), nil, nil, zap.NewNop())
	got := e.Suggest(context.Background(), "ab", "")
	if len(got) != 3 || got[0].Text != "abc" || got[1].Text != "abd" || got[2].Text != "abe" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestSuggest_TopEight(t *testing.T) {
	var list []string
	for i := range 20 {
		list = append(list, fmt.Sprintf("query %02d", i))
	}
	e := New(titlesOf(), historyOf(list...), nil, zap.NewNop())

	got := e.Suggest(context.Background(), "query", "u1")
	if len(got) != MaxSuggestions {
		t.Fatalf("expected %d suggestions, got %d", MaxSuggestions, len(got))
	}
}

func TestSuggest_Limits(t *testing.T) {
	titles := &mockTitles{prefixSearchFn: func(_ context.Context, _ string, limit int) ([]string, error) {
		if limit != TitleLimit {
			t.Errorf("title limit = %d, want %d", limit, TitleLimit)
		}
		return nil, nil
	}}
	history := &mockHistory{recentQueriesFn: func(_ context.Context, userID string, limit int) ([]string, error) {
		if userID != "u1" || limit != HistoryLimit {
			t.Errorf("history called with (%q, %d)", userID, limit)
		}
		return nil, nil
	}}
	New(titles, history, nil, zap.NewNop()).Suggest(context.Background(), "abc", "u1")
}

func TestSuggest_HistorySkippedWithoutUser(t *testing.T) {
	history := historyOf("abc")
	e := New(titlesOf(), history, nil, zap.NewNop())

	if got := e.Suggest(context.Background(), "ab", ""); len(got) != 0 {
		t.Errorf("expected no suggestions, got %+v", got)
	}
	if history.calls.Load() != 0 {
		t.Error("history must not be consulted without a user id")
	}
}

func TestSuggest_CacheHit(t *testing.T) {
	titles := titlesOf("laptop stand", "laptop bag")
	e := New(titles, nil, nil, zap.NewNop())

	hitsBefore := testutil.ToFloat64(metrics.SuggestCacheTotal.WithLabelValues("hit"))
	first := e.Suggest(context.Background(), "Lap", "")
	second := e.Suggest(context.Background(), "lap", "")

	if titles.calls.Load() != 1 {
		t.Errorf("expected 1 backend call, got %d", titles.calls.Load())
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
	if after := testutil.ToFloat64(metrics.SuggestCacheTotal.WithLabelValues("hit")); after != hitsBefore+1 {
		t.Errorf("cache hits = %v, want %v", after, hitsBefore+1)
	}

	// another owner has its own entry
	e.Suggest(context.Background(), "lap", "u2")
	if titles.calls.Load() != 2 {
		t.Errorf("expected per-user cache entry, backend calls = %d", titles.calls.Load())
	}
}

func TestSuggest_CacheExpires(t *testing.T) {
	titles := titlesOf("laptop")
	e := New(titles, nil, nil, zap.NewNop()).WithCache(10, 20*time.Millisecond)

	e.Suggest(context.Background(), "lap", "")
	time.Sleep(60 * time.Millisecond)
	e.Suggest(context.Background(), "lap", "")

	if titles.calls.Load() != 2 {
		t.Errorf("expected cache entry to expire, backend calls = %d", titles.calls.Load())
	}
}

func TestSuggest_SourceFailureIsBestEffort(t *testing.T) {
	titles := &mockTitles{prefixSearchFn: func(context.Context, string, int) ([]string, error) {
		return nil, errors.New("index down")
	}}
	e := New(titles, historyOf("laptop repair"), nil, zap.NewNop())

	got := e.Suggest(context.Background(), "lap", "u1")
	if len(got) != 1 || got[0].Text != "laptop repair" {
		t.Fatalf("expected history suggestion, got %+v", got)
	}

	// failed lookups are not cached
	e.Suggest(context.Background(), "lap", "u1")
	if titles.calls.Load() != 2 {
		t.Errorf("expected retry after failure, backend calls = %d", titles.calls.Load())
	}
}

func TestSuggest_ResultIsACopy(t *testing.T) {
	e := New(titlesOf("laptop"), nil, nil, zap.NewNop())
	got := e.Suggest(context.Background(), "lap", "")
	got[0].Text = "mutated"

	again := e.Suggest(context.Background(), "lap", "")
	if again[0].Text != "laptop" {
		t.Errorf("cache was mutated through returned slice: %+v", again)
	}
}
