package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/query"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/request"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/suggestion"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

// Response is the assembled answer to one search.
type Response struct {
	Hits        []result.Fused
	Facets      map[string]map[string]int64
	Suggestions []suggestion.Suggestion
	// Query is the text that was actually parsed and executed.
	Query string
	// Rewritten reports whether Query differs from the submitted text.
	Rewritten bool
	// OriginalQuery is the submitted text, set only when Rewritten.
	OriginalQuery string
	Degraded      bool
	Warnings      []string
	Mode          mode.Mode
}

// Service orchestrates rewrite, parse, retrieval, fusion, suggestions and history.
type Service struct {
	retriever retriever
	suggester Suggester
	rewriter  Rewriter
	recorder  HistoryRecorder
	// tagFields restricts filter and facet names when non-nil.
	tagFields map[string]struct{}
	logger    *zap.Logger
}

// New creates a search service. Rewriting and history are off until configured.
func New(r retriever, suggester Suggester, logger *zap.Logger) *Service {
	return &Service{retriever: r, suggester: suggester, logger: logger}
}

// WithRewriter enables query rewriting for requests that ask for it.
func (s *Service) WithRewriter(rw Rewriter) *Service {
	s.rewriter = rw
	return s
}

// WithRecorder enables search history for requests carrying a user id.
func (s *Service) WithRecorder(rec HistoryRecorder) *Service {
	s.recorder = rec
	return s
}

// WithTagFields restricts filters and facets to the index's TAG fields.
// Requests naming any other field fail with domain.ErrInvalidRequest
// instead of reaching the backend.
func (s *Service) WithTagFields(fields []string) *Service {
	s.tagFields = make(map[string]struct{}, len(fields))
	for _, f := range fields {
		s.tagFields[f] = struct{}{}
	}
	return s
}

// Search runs one hybrid search.
func (s *Service) Search(ctx context.Context, req *request.Request) (Response, error) {
	start := time.Now()
	m := req.Mode()

	resp, err := s.search(ctx, req)
	metrics.SearchDuration.WithLabelValues(string(m)).Observe(time.Since(start).Seconds())
	metrics.SearchRequestsTotal.WithLabelValues(string(m), outcome(resp, err)).Inc()
	if err != nil {
		return Response{}, err
	}

	s.suggester.Observe(req.Text())
	if req.UserID() != "" && s.recorder != nil {
		s.recorder.Record(domain.HistoryRecord{
			UserID:       req.UserID(),
			Query:        req.Text(),
			ResultCount:  len(resp.Hits),
			Mode:         string(m),
			Filters:      req.Filters().Map(),
			ResponseTime: time.Since(start),
			Timestamp:    time.Now().UTC(),
		})
	}
	return resp, nil
}

func (s *Service) search(ctx context.Context, req *request.Request) (Response, error) {
	if err := s.checkFields(req); err != nil {
		return Response{}, err
	}

	q, rewritten, err := s.parse(ctx, req)
	if err != nil {
		return Response{}, err
	}

	resp := Response{Query: q.Raw(), Rewritten: rewritten, Mode: req.Mode()}
	if rewritten {
		resp.OriginalQuery = req.Text()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ret, err := s.retriever.Dispatch(gctx, q, req.Mode())
		if err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
		resp.Hits = Fuse(ret.Lexical, ret.Vector, req.Limit())
		resp.Facets = ret.Facets
		resp.Degraded = ret.Degraded
		resp.Warnings = ret.Warnings
		return nil
	})
	g.Go(func() error {
		resp.Suggestions = s.suggester.Suggest(gctx, req.Text(), req.UserID())
		return nil
	})
	if err := g.Wait(); err != nil {
		return Response{}, err //nolint:wrapcheck // wrapped inside the group
	}
	return resp, nil
}

func (s *Service) checkFields(req *request.Request) error {
	if s.tagFields == nil {
		return nil
	}
	for _, key := range req.Filters().Keys() {
		if _, ok := s.tagFields[key]; !ok {
			return fmt.Errorf("%w: unknown filter field %q", domain.ErrInvalidRequest, key)
		}
	}
	for _, f := range req.Facets() {
		if _, ok := s.tagFields[f]; !ok {
			return fmt.Errorf("%w: unknown facet field %q", domain.ErrInvalidRequest, f)
		}
	}
	return nil
}

// parse rewrites when asked and parses the result. If the rewritten text does
// not parse, the submitted text is parsed instead.
func (s *Service) parse(ctx context.Context, req *request.Request) (query.Query, bool, error) {
	opts := []query.Option{
		query.WithFilters(req.Filters()),
		query.WithFacets(req.Facets()),
		query.WithLimit(req.Limit()),
	}

	text, rewritten := req.Text(), false
	if req.UseRewrite() && s.rewriter != nil {
		text, rewritten = s.rewriter.Rewrite(ctx, req.Text())
	}

	q, err := query.Parse(text, opts...)
	if err == nil {
		return q, rewritten, nil
	}
	if !rewritten {
		return query.Query{}, false, fmt.Errorf("parse query: %w", err)
	}

	s.logger.Warn("Rewritten query failed to parse, using original",
		zap.String("original", req.Text()),
		zap.String("rewritten", text),
		zap.Error(err),
	)
	q, err = query.Parse(req.Text(), opts...)
	if err != nil {
		return query.Query{}, false, fmt.Errorf("parse query: %w", err)
	}
	return q, false, nil
}

// Suggest returns autocomplete suggestions for a partial query.
func (s *Service) Suggest(ctx context.Context, text, userID string) []suggestion.Suggestion {
	return s.suggester.Suggest(ctx, text, userID)
}

func outcome(resp Response, err error) string {
	switch {
	case err == nil && resp.Degraded:
		return "degraded"
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrMalformedQuery):
		return "malformed"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "unavailable"
	}
	return "error"
}
