package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search text length in characters.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 100
	MaxUserIDLen   = 256
)

// Request is a validated search request.
type Request struct {
	text       string
	searchMode mode.Mode
	limit      int
	filters    filter.Set
	facets     []string
	userID     string
	useRewrite bool
}

// New validates and normalizes search parameters.
// Defaults: mode=hybrid, limit=10. Limit is clamped to MaxLimit.
// Validation errors wrap domain.ErrInvalidRequest.
func New(
	text string,
	m mode.Mode,
	limit int,
	filters filter.Set,
	facets []string,
	userID string,
	useRewrite bool,
) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(text) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid search mode: %q", domain.ErrInvalidRequest, m)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	facets, err := filter.ValidateFacets(facets)
	if err != nil {
		return Request{}, err
	}
	if len(userID) > MaxUserIDLen {
		return Request{}, fmt.Errorf("%w: user_id too long (max %d chars)", domain.ErrInvalidRequest, MaxUserIDLen)
	}

	return Request{
		text:       text,
		searchMode: m,
		limit:      limit,
		filters:    filters,
		facets:     facets,
		userID:     userID,
		useRewrite: useRewrite,
	}, nil
}

// Text returns the search text as received.
func (r *Request) Text() string { return r.text }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// Filters returns the tag pre-filters.
func (r *Request) Filters() filter.Set { return r.filters }

// Facets returns the fields to compute facet counts for.
func (r *Request) Facets() []string { return r.facets }

// UserID returns the caller's user id, empty when anonymous.
func (r *Request) UserID() string { return r.userID }

// UseRewrite reports whether natural-language rewriting was requested.
func (r *Request) UseRewrite() bool { return r.useRewrite }
