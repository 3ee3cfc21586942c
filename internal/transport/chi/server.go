package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/request"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/suggestion"
	logpkg "github.com/kailas-cloud/hybridsearch/internal/logger"
	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/hybridsearch/internal/usecase/search"
	"github.com/kailas-cloud/hybridsearch/internal/version"
)

// UserIDHeader carries the caller's user id when it is not in the request itself.
const UserIDHeader = "X-User-ID"

// maxBodyBytes bounds POST /api/v1/search bodies.
const maxBodyBytes = 1 << 20

type searchService interface {
	Search(ctx context.Context, req *request.Request) (searchuc.Response, error)
	Suggest(ctx context.Context, text, userID string) []suggestion.Suggestion
}

type healthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search HTTP API.
type Server struct {
	search        searchService
	health        healthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search searchService, health healthService, logger *zap.Logger) *Server {
	s := &Server{search: search, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		malformedQueryHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, ErrorResponseCodeBackendUnavailable),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.SearchPost)
		r.Get("/search", s.SearchGet)
		r.Get("/suggest", s.Suggest)
	})
}

// SearchPost handles POST /api/v1/search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters, err := filter.New(body.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	req, err := request.New(
		body.Query,
		mode.Parse(deref(body.Mode)),
		deref(body.Limit),
		filters,
		body.Facets,
		userID(r, deref(body.UserID)),
		deref(body.Rewrite),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}
	s.runSearch(w, r, &req)
}

// SearchGet handles GET /api/v1/search.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	raw, err := parseFilterParams(params.Filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}
	filters, err := filter.New(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	req, err := request.New(
		params.Q,
		mode.Parse(deref(params.Mode)),
		deref(params.Limit),
		filters,
		params.Facet,
		userID(r, deref(params.UserID)),
		deref(params.Rewrite),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}
	s.runSearch(w, r, &req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req *request.Request) {
	ctx, usage := domain.NewContextWithUsage(r.Context())

	resp, err := s.search.Search(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponseFromDomain(resp))
}

// Suggest handles GET /api/v1/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	params, err := bindSuggestParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	uid := userID(r, deref(params.UserID))
	if len(uid) > request.MaxUserIDLen {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "user_id too long")
		return
	}

	writeJSON(w, http.StatusOK, SuggestResponse{
		Suggestions: suggestionsFromDomain(s.search.Suggest(r.Context(), params.Q, uid)),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// userID prefers the explicit value over the X-User-ID header.
func userID(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return r.Header.Get(UserIDHeader)
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.RequestUsage) {
	if usage.Embedded() {
		w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(usage.EmbeddingTokens(), 10))
	}
	if n := usage.ModelTokens(); n > 0 {
		w.Header().Set("X-Model-Tokens", strconv.FormatInt(n, 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// malformedQueryHandler reports the offending token so clients can point at it.
func malformedQueryHandler(w http.ResponseWriter, err error) bool {
	var mqe *domain.MalformedQueryError
	if !errors.As(err, &mqe) {
		return false
	}
	idx := mqe.Index
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:       ErrorResponseCodeMalformedQuery,
		Message:    mqe.Error(),
		TokenIndex: &idx,
	})
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees only the sentinel message.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func searchResponseFromDomain(resp searchuc.Response) SearchResponse {
	hits := make([]SearchHit, len(resp.Hits))
	for i := range resp.Hits {
		h := &resp.Hits[i]
		hits[i] = SearchHit{
			ID:          h.ID(),
			Score:       h.Score(),
			Payload:     h.Payload(),
			LexicalRank: h.LexicalRank(),
			VectorRank:  h.VectorRank(),
		}
	}

	out := SearchResponse{
		Hits:        hits,
		Total:       len(hits),
		Facets:      resp.Facets,
		Suggestions: suggestionsFromDomain(resp.Suggestions),
		Query:       resp.Query,
		Mode:        string(resp.Mode),
		Rewritten:   resp.Rewritten,
		Degraded:    resp.Degraded,
		Warnings:    resp.Warnings,
	}
	if resp.Rewritten {
		orig := resp.OriginalQuery
		out.OriginalQuery = &orig
	}
	return out
}

func suggestionsFromDomain(in []suggestion.Suggestion) []Suggestion {
	out := make([]Suggestion, len(in))
	for i, s := range in {
		out[i] = Suggestion{Text: s.Text, Score: s.Score}
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
