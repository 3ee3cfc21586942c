package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/hybridsearch/internal/domain/search/suggestion"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

const (
	// MinPrefixLen is the shortest input that produces suggestions.
	MinPrefixLen = 2
	// MaxSuggestions is the number of suggestions returned.
	MaxSuggestions = 8
	// TitleLimit bounds the lexical prefix scan.
	TitleLimit = 10
	// HistoryLimit bounds the user history scan.
	HistoryLimit = 100

	// DefaultCacheSize bounds the suggestion cache.
	DefaultCacheSize = 10000
	// DefaultCacheTTL expires cached suggestions.
	DefaultCacheTTL = 5 * time.Minute

	globalOwner = "global"
)

// Scoring weights.
const (
	prefixBonus      = 2.0
	popularityWeight = 0.1
	lengthWeight     = 0.05
	lengthPivot      = 10
)

type cacheKey struct {
	owner  string
	prefix string
}

// Engine produces autocomplete suggestions from document titles and the
// user's own search history.
type Engine struct {
	titles     titleSource
	history    historySource
	cache      *expirable.LRU[cacheKey, []suggestion.Suggestion]
	popularity *Popularity
	logger     *zap.Logger
}

// New creates an Engine. history may be nil when no history store is configured.
func New(titles titleSource, history historySource, popularity *Popularity, logger *zap.Logger) *Engine {
	return &Engine{
		titles:     titles,
		history:    history,
		cache:      expirable.NewLRU[cacheKey, []suggestion.Suggestion](DefaultCacheSize, nil, DefaultCacheTTL),
		popularity: popularity,
		logger:     logger,
	}
}

// WithCache replaces the suggestion cache with one of the given size and TTL.
func (e *Engine) WithCache(size int, ttl time.Duration) *Engine {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	e.cache = expirable.NewLRU[cacheKey, []suggestion.Suggestion](size, nil, ttl)
	return e
}

// Observe records that text was searched. Feeds the popularity score.
func (e *Engine) Observe(text string) {
	if e.popularity != nil {
		e.popularity.Observe(text)
	}
}

// Suggest returns up to MaxSuggestions completions for text. It never fails:
// an unavailable source contributes no candidates.
func (e *Engine) Suggest(ctx context.Context, text, userID string) []suggestion.Suggestion {
	prefix := strings.TrimSpace(text)
	if utf8.RuneCountInString(prefix) < MinPrefixLen {
		return []suggestion.Suggestion{}
	}

	key := cacheKey{owner: userID, prefix: strings.ToLower(prefix)}
	if key.owner == "" {
		key.owner = globalOwner
	}
	if cached, ok := e.cache.Get(key); ok {
		metrics.SuggestCacheTotal.WithLabelValues("hit").Inc()
		return append([]suggestion.Suggestion(nil), cached...)
	}
	metrics.SuggestCacheTotal.WithLabelValues("miss").Inc()

	titles, recent, complete := e.fetch(ctx, prefix, userID)
	out := e.rank(key.prefix, titles, recent)

	if complete {
		e.cache.Add(key, out)
	}
	return append([]suggestion.Suggestion(nil), out...)
}

// fetch queries both sources concurrently. complete is false when any source failed.
func (e *Engine) fetch(ctx context.Context, prefix, userID string) (titles, recent []string, complete bool) {
	var titleErr, historyErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		titles, titleErr = e.titles.PrefixSearch(gctx, prefix, TitleLimit)
		return nil
	})
	if userID != "" && e.history != nil {
		g.Go(func() error {
			recent, historyErr = e.history.RecentQueries(gctx, userID, HistoryLimit)
			return nil
		})
	}
	_ = g.Wait()

	if titleErr != nil {
		e.logger.Warn("Suggest title lookup failed", zap.Error(fmt.Errorf("prefix search: %w", titleErr)))
		titles = nil
	}
	if historyErr != nil {
		e.logger.Warn("Suggest history lookup failed",
			zap.String("user_id", userID),
			zap.Error(fmt.Errorf("recent queries: %w", historyErr)),
		)
		recent = nil
	}
	return titles, recent, titleErr == nil && historyErr == nil
}

// rank merges candidates that start with lowerPrefix, scores and truncates them.
func (e *Engine) rank(lowerPrefix string, sources ...[]string) []suggestion.Suggestion {
	seen := make(map[string]struct{})
	var out []suggestion.Suggestion

	for _, src := range sources {
		for _, c := range src {
			c = strings.TrimSpace(c)
			lower := strings.ToLower(c)
			if !strings.HasPrefix(lower, lowerPrefix) {
				continue
			}
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			out = append(out, suggestion.Suggestion{Text: c, Score: e.score(c)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	if out == nil {
		out = []suggestion.Suggestion{}
	}
	return out
}

// score: prefix bonus + popularity + preference for short completions.
func (e *Engine) score(text string) float64 {
	s := prefixBonus
	if e.popularity != nil {
		s += popularityWeight * e.popularity.Count(text)
	}
	if n := utf8.RuneCountInString(text); n < lengthPivot {
		s += lengthWeight * float64(lengthPivot-n)
	}
	return s
}
