package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedQuery signals a boolean query syntax error detected by the parser.
	ErrMalformedQuery = errors.New("malformed query")
	// ErrBackendUnavailable signals that the primary retrieval backend failed or timed out.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrDegradedRetrieval signals a secondary backend failure; the search continues without it.
	ErrDegradedRetrieval = errors.New("degraded retrieval")
	// ErrRewriteFailed signals a query rewrite failure. Never surfaced to callers.
	ErrRewriteFailed = errors.New("rewrite failed")
	// ErrHistoryWriteFailed signals a search history write failure. Never surfaced to callers.
	ErrHistoryWriteFailed = errors.New("history write failed")
	// ErrInvalidRequest signals a request that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrModelProviderError signals a text generation provider failure.
	ErrModelProviderError = errors.New("model provider error")
)

// MalformedQueryError wraps ErrMalformedQuery with the offending token position.
type MalformedQueryError struct {
	Index  int
	Token  string
	Reason string
}

func (e *MalformedQueryError) Error() string {
	return fmt.Sprintf("%s: token %d (%q): %s", ErrMalformedQuery.Error(), e.Index, e.Token, e.Reason)
}

func (e *MalformedQueryError) Unwrap() error { return ErrMalformedQuery }

// NewMalformedQuery creates a malformed query error for the token at index.
func NewMalformedQuery(index int, token, reason string) error {
	return &MalformedQueryError{Index: index, Token: token, Reason: reason}
}

// Backend names used in BackendError and metrics labels.
const (
	BackendLexical  = "lexical"
	BackendVector   = "vector"
	BackendEmbedder = "embedder"
	BackendHistory  = "history"
)

// BackendError wraps ErrBackendUnavailable with the name of the failing backend.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrBackendUnavailable.Error(), e.Backend, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *BackendError) Unwrap() []error { return []error{ErrBackendUnavailable, e.Err} }

// NewBackendUnavailable creates a backend error for the named backend.
func NewBackendUnavailable(backend string, err error) error {
	return &BackendError{Backend: backend, Err: err}
}
