package rewrite

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

const (
	// DefaultMinWords is the word count a query must exceed before the model pass runs.
	DefaultMinWords = 3
	// DefaultTimeout bounds the model pass.
	DefaultTimeout = 1500 * time.Millisecond
	// DefaultMaxOutputChars rejects runaway model output.
	DefaultMaxOutputChars = 500
)

// Rewrite outcomes reported in rewrite_total.
const (
	outcomeUnchanged     = "unchanged"
	outcomePattern       = "pattern"
	outcomeModel         = "model"
	outcomeModelRejected = "model_rejected"
	outcomeModelError    = "model_error"
)

const promptTemplate = `Rewrite the search query below so a search engine finds the most relevant documents.
Keep quoted phrases and the operators AND, OR, NOT unchanged. Do not add explanations.
Reply with the rewritten query only.

Query: %s`

// Rewriter normalizes free-form queries: pattern rules first, then an
// optional model pass for longer queries, then intent shaping.
type Rewriter struct {
	gen            domain.Generator
	minWords       int
	timeout        time.Duration
	maxOutputChars int
	logger         *zap.Logger
}

// New creates a Rewriter. gen may be nil, which disables the model pass.
func New(gen domain.Generator, logger *zap.Logger) *Rewriter {
	return &Rewriter{
		gen:            gen,
		minWords:       DefaultMinWords,
		timeout:        DefaultTimeout,
		maxOutputChars: DefaultMaxOutputChars,
		logger:         logger,
	}
}

// WithMinWords sets the model pass word threshold.
func (r *Rewriter) WithMinWords(n int) *Rewriter {
	if n >= 0 {
		r.minWords = n
	}
	return r
}

// WithTimeout sets the model pass timeout.
func (r *Rewriter) WithTimeout(d time.Duration) *Rewriter {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// WithMaxOutputChars sets the longest model output accepted.
func (r *Rewriter) WithMaxOutputChars(n int) *Rewriter {
	if n > 0 {
		r.maxOutputChars = n
	}
	return r
}

// Rewrite returns the rewritten query and whether it differs from raw.
// It never fails: any internal error yields the best text produced so far.
func (r *Rewriter) Rewrite(ctx context.Context, raw string) (string, bool) {
	patterned := applyPatterns(raw)
	intent := Classify(patterned)

	final, outcome := patterned, outcomePattern
	if r.gen != nil && len(strings.Fields(patterned)) > r.minWords {
		out, err := r.generate(ctx, patterned)
		switch {
		case err != nil:
			outcome = outcomeModelError
			r.logger.Warn("Query rewrite model failed",
				zap.String("query", patterned),
				zap.Error(fmt.Errorf("%w: %w", domain.ErrRewriteFailed, err)),
			)
		case out == "" || utf8.RuneCountInString(out) > r.maxOutputChars:
			outcome = outcomeModelRejected
			r.logger.Debug("Query rewrite model output rejected",
				zap.String("query", patterned),
				zap.Int("output_chars", utf8.RuneCountInString(out)),
			)
		default:
			final, outcome = out, outcomeModel
		}
	}

	final = shape(final, intent)
	changed := final != raw
	if !changed && outcome == outcomePattern {
		outcome = outcomeUnchanged
	}
	metrics.RewriteTotal.WithLabelValues(outcome).Inc()

	if changed {
		r.logger.Debug("Query rewritten",
			zap.String("original", raw),
			zap.String("rewritten", final),
			zap.String("intent", string(intent)),
			zap.String("outcome", outcome),
		)
	}
	return final, changed
}

func (r *Rewriter) generate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.gen.Generate(ctx, fmt.Sprintf(promptTemplate, text))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}
