package hybridsearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/db"
	dbRedis "github.com/kailas-cloud/hybridsearch/internal/db/redis"
	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/request"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/suggestion"
	historyrepo "github.com/kailas-cloud/hybridsearch/internal/repository/history"
	"github.com/kailas-cloud/hybridsearch/internal/repository/index"
	"github.com/kailas-cloud/hybridsearch/internal/repository/lexical"
	"github.com/kailas-cloud/hybridsearch/internal/repository/vector"
	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/hybridsearch/internal/usecase/history"
	"github.com/kailas-cloud/hybridsearch/internal/usecase/rewrite"
	searchuc "github.com/kailas-cloud/hybridsearch/internal/usecase/search"
	"github.com/kailas-cloud/hybridsearch/internal/usecase/suggest"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	historyDrainTimeout     = 5 * time.Second
)

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (searchuc.Response, error)
	Suggest(ctx context.Context, text, userID string) []suggestion.Suggestion
}

type historyStore interface {
	Append(ctx context.Context, rec domain.HistoryRecord) error
	RecentQueries(ctx context.Context, userID string, limit int) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// Client is the hybridsearch SDK entry point.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	healthSvc healthUseCase
	recorder  *historyuc.Recorder
	closers   []io.Closer
	spec      index.Spec
	logger    *zap.Logger
	obs       *observer
}

// New creates a Client and connects to Redis.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	cfg.applyDefaults()

	if len(cfg.addrs) == 0 {
		return nil, errors.New("hybridsearch: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
	if err != nil {
		return nil, fmt.Errorf("hybridsearch: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("hybridsearch: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()

	lexRepo := lexical.New(store, lexical.Schema{
		IndexName:    cfg.schema.Name,
		KeyPrefix:    cfg.schema.KeyPrefix,
		TitleField:   cfg.schema.TitleField,
		ContentField: cfg.schema.ContentField,
		ReturnFields: cfg.schema.ReturnFields,
	})
	vecRepo := vector.New(store, vector.Schema{
		IndexName:    cfg.schema.Name,
		KeyPrefix:    cfg.schema.KeyPrefix,
		VectorField:  cfg.schema.VectorField,
		ReturnFields: cfg.schema.ReturnFields,
	})

	// Embedder: noop when not set; hybrid searches then degrade to keyword-only.
	var emb domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
	}

	c := &Client{
		store:  store,
		logger: logger,
		obs:    obs,
		spec: index.Spec{
			Name:         cfg.schema.Name,
			KeyPrefix:    cfg.schema.KeyPrefix,
			TitleField:   cfg.schema.TitleField,
			TitleWeight:  2,
			ContentField: cfg.schema.ContentField,
			TagFields:    cfg.schema.TagFields,
			VectorField:  cfg.schema.VectorField,
			Dimensions:   cfg.vectorDimensions,
			HNSW:         index.HNSWConfig{M: cfg.hnswM, EFConstruct: cfg.hnswEFConstruct},
		},
	}

	hist, err := c.openHistory(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	popularity, err := suggest.NewPopularity(
		suggest.DefaultPopularitySize, suggest.DefaultPopularityCap, suggest.DefaultPopularityHalfLife,
	)
	if err != nil {
		return nil, fmt.Errorf("hybridsearch: %w", err)
	}

	var recent interface {
		RecentQueries(ctx context.Context, userID string, limit int) ([]string, error)
	}
	if hist != nil {
		recent = hist
	}
	suggester := suggest.New(lexRepo, recent, popularity, logger)

	dispatcher := searchuc.NewDispatcher(lexRepo, vecRepo, emb, logger).
		WithTimeouts(cfg.lexicalTimeout, cfg.vectorTimeout)

	var gen domain.Generator
	if cfg.generator != nil {
		gen = cfg.generator
	}
	svc := searchuc.New(dispatcher, suggester, logger).
		WithTagFields(cfg.schema.TagFields).
		WithRewriter(rewrite.New(gen, logger))

	if hist != nil {
		rec, err := historyuc.NewRecorder(hist, historyuc.DefaultWorkers, logger)
		if err != nil {
			c.closeAll()
			return nil, fmt.Errorf("hybridsearch: %w", err)
		}
		c.recorder = rec
		svc.WithRecorder(rec)
	}
	c.searchSvc = svc

	c.healthSvc = healthuc.New(logger).
		Critical(domain.BackendLexical, lexRepo).
		Optional(domain.BackendVector, vecRepo)
	if hist != nil {
		c.healthSvc.Optional(domain.BackendHistory, hist)
	}
	return c, nil
}

// openHistory returns nil when history is disabled.
func (c *Client) openHistory(ctx context.Context, cfg *clientConfig, store db.Store) (historyStore, error) {
	switch cfg.history {
	case historySQLite:
		s, err := historyrepo.OpenSQLite(ctx, cfg.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("hybridsearch: %w", err)
		}
		c.closers = append(c.closers, s)
		return s, nil
	case historyRedis:
		return historyrepo.NewRedisStore(store, "history:"), nil
	default:
		return nil, nil
	}
}

// Close flushes pending history writes and releases all resources.
func (c *Client) Close() {
	if c.recorder != nil {
		if err := c.recorder.Close(historyDrainTimeout); err != nil {
			c.logger.Warn("History writes not drained", zap.Error(err))
		}
	}
	c.closeAll()
	if c.store != nil {
		c.store.Close()
	}
}

func (c *Client) closeAll() {
	for _, cl := range c.closers {
		_ = cl.Close()
	}
	c.closers = nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", statusOK, start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// EnsureIndex creates the search index if it does not exist.
// Documents written under the key prefix are indexed by Redis.
func (c *Client) EnsureIndex(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("index.ensure", statusOK, start, err) }()

	if err = index.Ensure(ctx, c.store, c.spec, c.logger); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// Search runs one search. Validation failures wrap ErrInvalidRequest,
// query syntax errors wrap ErrMalformedQuery and an unreachable primary
// backend wraps ErrBackendUnavailable.
func (c *Client) Search(ctx context.Context, sr SearchRequest) (res SearchResult, err error) {
	start := time.Now()
	defer func() {
		status := statusOK
		if res.Degraded {
			status = statusDegraded
		}
		c.obs.observe("search", status, start, err)
	}()

	req, err := toRequest(sr)
	if err != nil {
		return SearchResult{}, err
	}

	resp, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return fromResponse(&resp), nil
}

// Suggest returns autocomplete suggestions for a prefix. It never fails;
// backend errors yield fewer suggestions.
func (c *Client) Suggest(ctx context.Context, text, userID string) []Suggestion {
	start := time.Now()
	defer c.obs.observe("suggest", statusOK, start, nil)

	return fromSuggestions(c.searchSvc.Suggest(ctx, text, userID))
}

func toRequest(sr SearchRequest) (request.Request, error) {
	filters, err := filter.New(sr.Filters)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req, err := request.New(
		sr.Query, mode.Parse(string(sr.Mode)), sr.Limit, filters, sr.Facets, sr.UserID, sr.Rewrite,
	)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return req, nil
}

func fromResponse(resp *searchuc.Response) SearchResult {
	hits := make([]Hit, len(resp.Hits))
	for i := range resp.Hits {
		h := &resp.Hits[i]
		hits[i] = Hit{
			ID:          h.ID(),
			Score:       h.Score(),
			Payload:     h.Payload(),
			LexicalRank: h.LexicalRank(),
			VectorRank:  h.VectorRank(),
		}
	}
	return SearchResult{
		Hits:          hits,
		Facets:        resp.Facets,
		Suggestions:   fromSuggestions(resp.Suggestions),
		Query:         resp.Query,
		Rewritten:     resp.Rewritten,
		OriginalQuery: resp.OriginalQuery,
		Degraded:      resp.Degraded,
		Warnings:      resp.Warnings,
		Mode:          SearchMode(resp.Mode),
	}
}

func fromSuggestions(in []suggestion.Suggestion) []Suggestion {
	out := make([]Suggestion, len(in))
	for i, s := range in {
		out[i] = Suggestion{Text: s.Text, Score: s.Score}
	}
	return out
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder fails every call (used when no embedder is configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf(
		"%w: embedder not configured (use WithEmbedder)", domain.ErrEmbeddingProviderError,
	)
}
