package chi

// ErrorResponseCode is the machine-readable error class in ErrorResponse.
type ErrorResponseCode string

// ErrorResponseCode values.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed   ErrorResponseCode = "validation_failed"
	ErrorResponseCodeMalformedQuery     ErrorResponseCode = "malformed_query"
	ErrorResponseCodeBackendUnavailable ErrorResponseCode = "backend_unavailable"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
	// TokenIndex points at the offending token of a malformed query.
	TokenIndex *int `json:"token_index,omitempty"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query   string              `json:"query"`
	Mode    *string             `json:"mode,omitempty"`
	Limit   *int                `json:"limit,omitempty"`
	Filters map[string][]string `json:"filters,omitempty"`
	Facets  []string            `json:"facets,omitempty"`
	UserID  *string             `json:"user_id,omitempty"`
	Rewrite *bool               `json:"rewrite,omitempty"`
}

// SearchHit is one fused result. Ranks are -1 when the backend did not return the document.
type SearchHit struct {
	ID          string            `json:"id"`
	Score       float64           `json:"score"`
	Payload     map[string]string `json:"payload,omitempty"`
	LexicalRank int               `json:"lexical_rank"`
	VectorRank  int               `json:"vector_rank"`
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Hits          []SearchHit                 `json:"hits"`
	Total         int                         `json:"total"`
	Facets        map[string]map[string]int64 `json:"facets,omitempty"`
	Suggestions   []Suggestion                `json:"suggestions"`
	Query         string                      `json:"query"`
	Mode          string                      `json:"mode"`
	Rewritten     bool                        `json:"rewritten"`
	OriginalQuery *string                     `json:"original_query,omitempty"`
	Degraded      bool                        `json:"degraded,omitempty"`
	Warnings      []string                    `json:"warnings,omitempty"`
}

// SuggestResponse is the body of GET /api/v1/suggest.
type SuggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}
