package hybridsearch

import "github.com/kailas-cloud/hybridsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrMalformedQuery         = domain.ErrMalformedQuery
	ErrBackendUnavailable     = domain.ErrBackendUnavailable
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// MalformedQueryError carries the index of the offending query token.
// Use errors.As() to extract it.
type MalformedQueryError = domain.MalformedQueryError
