package domain

import (
	"context"
	"sync/atomic"
)

type requestUsageKey struct{}

// RequestUsage collects provider token usage for a single HTTP request.
// The handler puts a pointer into the context, services record into it
// (possibly from several goroutines), and the handler reads it for response headers.
type RequestUsage struct {
	embeddingTokens atomic.Int64
	modelTokens     atomic.Int64
	embedded        atomic.Bool
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *RequestUsage) {
	u := &RequestUsage{}
	return context.WithValue(ctx, requestUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *RequestUsage {
	u, _ := ctx.Value(requestUsageKey{}).(*RequestUsage)
	return u
}

// AddEmbeddingTokens records embedding tokens. Safe on a nil receiver.
func (u *RequestUsage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.embeddingTokens.Add(int64(n))
	u.embedded.Store(true)
}

// AddModelTokens records rewrite model tokens. Safe on a nil receiver.
func (u *RequestUsage) AddModelTokens(n int) {
	if u != nil {
		u.modelTokens.Add(int64(n))
	}
}

// EmbeddingTokens returns the recorded embedding tokens.
func (u *RequestUsage) EmbeddingTokens() int64 { return u.embeddingTokens.Load() }

// ModelTokens returns the recorded rewrite model tokens.
func (u *RequestUsage) ModelTokens() int64 { return u.modelTokens.Load() }

// Embedded reports whether the query was embedded, even on a cache hit with 0 tokens.
func (u *RequestUsage) Embedded() bool { return u.embedded.Load() }
