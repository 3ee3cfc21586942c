package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/query"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

const (
	// DefaultLexicalTimeout bounds the lexical branch.
	DefaultLexicalTimeout = 2 * time.Second
	// DefaultVectorTimeout bounds the vector branch, embedding included.
	DefaultVectorTimeout = 2 * time.Second
)

// Retrieval is the raw output of both backends for one query.
type Retrieval struct {
	Lexical  []hit.Hit
	Vector   []hit.Hit
	Facets   map[string]map[string]int64
	Degraded bool
	Warnings []string
}

// Dispatcher fans a parsed query out to the retrieval backends.
// Lexical is primary in hybrid mode: its failure fails the search, while a
// vector or embedding failure degrades to keyword-only results.
type Dispatcher struct {
	lexical        LexicalSearcher
	vector         VectorSearcher
	embed          Embedder
	lexicalTimeout time.Duration
	vectorTimeout  time.Duration
	logger         *zap.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(lexical LexicalSearcher, vector VectorSearcher, embed Embedder, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		lexical:        lexical,
		vector:         vector,
		embed:          embed,
		lexicalTimeout: DefaultLexicalTimeout,
		vectorTimeout:  DefaultVectorTimeout,
		logger:         logger,
	}
}

// WithTimeouts overrides the per-branch timeouts. Non-positive values are ignored.
func (d *Dispatcher) WithTimeouts(lexical, vector time.Duration) *Dispatcher {
	if lexical > 0 {
		d.lexicalTimeout = lexical
	}
	if vector > 0 {
		d.vectorTimeout = vector
	}
	return d
}

// Dispatch runs the backends m needs.
func (d *Dispatcher) Dispatch(ctx context.Context, q query.Query, m mode.Mode) (Retrieval, error) {
	if !m.IsValid() {
		return Retrieval{}, fmt.Errorf("%w: unsupported search mode %q", domain.ErrInvalidRequest, m)
	}

	switch {
	case m.UsesLexical() && m.UsesVector():
		return d.dispatchHybrid(ctx, q)

	case m.UsesLexical():
		lex, facets, err := d.searchLexical(ctx, q)
		if err != nil {
			return Retrieval{}, err
		}
		return Retrieval{Lexical: lex, Facets: facets}, nil

	default:
		vec, err := d.searchVector(ctx, q)
		if err != nil {
			return Retrieval{}, err
		}
		return Retrieval{Vector: vec}, nil
	}
}

func (d *Dispatcher) dispatchHybrid(ctx context.Context, q query.Query) (Retrieval, error) {
	var (
		out    Retrieval
		vecErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lex, facets, err := d.searchLexical(gctx, q)
		if err != nil {
			return err
		}
		out.Lexical, out.Facets = lex, facets
		return nil
	})
	g.Go(func() error {
		out.Vector, vecErr = d.searchVector(gctx, q)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Retrieval{}, err //nolint:wrapcheck // already a BackendError
	}

	if vecErr != nil {
		reason := domain.BackendVector
		var be *domain.BackendError
		if errors.As(vecErr, &be) {
			reason = be.Backend
		}
		metrics.SearchDegradedTotal.WithLabelValues(reason).Inc()
		d.logger.Warn("Vector retrieval unavailable, serving keyword results",
			zap.String("reason", reason),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrDegradedRetrieval, vecErr)),
		)
		out.Vector = nil
		out.Degraded = true
		out.Warnings = append(out.Warnings, reason+" unavailable: results are keyword-only")
	}
	return out, nil
}

func (d *Dispatcher) searchLexical(ctx context.Context, q query.Query) ([]hit.Hit, map[string]map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.lexicalTimeout)
	defer cancel()

	start := time.Now()
	hits, facets, err := d.lexical.Search(ctx, q)
	if err != nil {
		metrics.BackendDuration.WithLabelValues(domain.BackendLexical, "error").Observe(time.Since(start).Seconds())
		return nil, nil, domain.NewBackendUnavailable(domain.BackendLexical, err)
	}
	metrics.BackendDuration.WithLabelValues(domain.BackendLexical, "ok").Observe(time.Since(start).Seconds())
	return hits, facets, nil
}

// searchVector embeds the raw query text and runs KNN under one timeout.
func (d *Dispatcher) searchVector(ctx context.Context, q query.Query) ([]hit.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, d.vectorTimeout)
	defer cancel()

	start := time.Now()
	emb, err := d.embed.Embed(ctx, q.Raw())
	if err != nil {
		metrics.BackendDuration.WithLabelValues(domain.BackendEmbedder, "error").Observe(time.Since(start).Seconds())
		return nil, domain.NewBackendUnavailable(domain.BackendEmbedder, err)
	}
	metrics.BackendDuration.WithLabelValues(domain.BackendEmbedder, "ok").Observe(time.Since(start).Seconds())

	start = time.Now()
	hits, err := d.vector.Search(ctx, emb.Embedding, q.Filters(), q.Limit())
	if err != nil {
		metrics.BackendDuration.WithLabelValues(domain.BackendVector, "error").Observe(time.Since(start).Seconds())
		return nil, domain.NewBackendUnavailable(domain.BackendVector, err)
	}
	metrics.BackendDuration.WithLabelValues(domain.BackendVector, "ok").Observe(time.Since(start).Seconds())
	return hits, nil
}
