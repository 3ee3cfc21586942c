// Package query parses raw search text into an immutable Query.
//
// The boolean grammar is a strict left fold with no precedence:
// "A AND B OR C" parses as ((A AND B) OR C).
package query

import (
	"fmt"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
)

// DefaultLimit is applied when no positive limit is supplied.
const DefaultLimit = 10

// Query is a parsed search query. Immutable after Parse.
type Query struct {
	raw        string
	advanced   bool
	structured string
	expr       Expr
	filters    filter.Set
	facets     []string
	limit      int
}

// Option configures Parse.
type Option func(*Query)

// WithFilters sets the tag pre-filters.
func WithFilters(f filter.Set) Option {
	return func(q *Query) { q.filters = f }
}

// WithFacets sets the fields to compute facet counts for.
func WithFacets(facets []string) Option {
	return func(q *Query) { q.facets = append([]string(nil), facets...) }
}

// WithLimit sets the result limit. Non-positive values keep the default.
func WithLimit(n int) Option {
	return func(q *Query) {
		if n > 0 {
			q.limit = n
		}
	}
}

// Parse tokenizes raw and folds AND/OR/NOT operators left to right.
// Text without operators passes through unchanged.
func Parse(raw string, opts ...Option) (Query, error) {
	q := Query{raw: raw, limit: DefaultLimit}
	for _, o := range opts {
		o(&q)
	}

	tokens, err := tokenize(raw)
	if err != nil {
		return Query{}, err
	}

	hasOp := false
	for _, t := range tokens {
		if _, ok := t.operator(); ok {
			hasOp = true
			break
		}
	}
	if !hasOp {
		seq := make(Seq, 0, len(tokens))
		for _, t := range tokens {
			seq = append(seq, Term{Text: t.text, Phrase: t.phrase})
		}
		q.expr = seq
		q.structured = raw
		return q, nil
	}

	expr, err := fold(tokens)
	if err != nil {
		return Query{}, err
	}
	q.advanced = true
	q.expr = expr
	q.structured = expr.String()
	return q, nil
}

func fold(tokens []token) (Seq, error) {
	out := make(Seq, 0, len(tokens))
	last := len(tokens) - 1

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		op, isOp := t.operator()
		if !isOp {
			out = append(out, Term{Text: t.text, Phrase: t.phrase})
			continue
		}
		if i == last {
			return nil, domain.NewMalformedQuery(i, t.text, fmt.Sprintf("%s at end of query", op))
		}
		next := tokens[i+1]
		if _, nextOp := next.operator(); nextOp {
			return nil, domain.NewMalformedQuery(i+1, next.text, "consecutive operators")
		}
		right := Term{Text: next.text, Phrase: next.phrase}

		if op == "NOT" {
			out = append(out, Not{Operand: right})
			i++
			continue
		}
		if len(out) == 0 {
			return nil, domain.NewMalformedQuery(i, t.text, fmt.Sprintf("%s without left operand", op))
		}
		left := out[len(out)-1]
		out[len(out)-1] = Binary{Op: Op(op), Left: left, Right: right}
		i++
	}
	return out, nil
}

// Raw returns the text as received.
func (q Query) Raw() string { return q.raw }

// IsAdvanced reports whether the text contained boolean operators.
func (q Query) IsAdvanced() bool { return q.advanced }

// StructuredText returns the folded expression, or the raw text for plain queries.
func (q Query) StructuredText() string { return q.structured }

// Expr returns the parsed expression tree.
func (q Query) Expr() Expr { return q.expr }

// Filters returns the tag pre-filters.
func (q Query) Filters() filter.Set { return q.filters }

// Facets returns the facet field names.
func (q Query) Facets() []string { return q.facets }

// Limit returns the maximum number of results.
func (q Query) Limit() int { return q.limit }
