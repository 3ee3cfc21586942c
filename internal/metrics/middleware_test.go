package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMain(m *testing.M) {
	RegisterHTTPMetrics()
	RegisterHTTPMetrics() // idempotent
	RegisterEmbeddingMetrics()
	RegisterEmbeddingMetrics()
	RegisterModelMetrics()
	RegisterModelMetrics()
	RegisterSearchMetrics()
	m.Run()
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/v1/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/v1/suggest", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.Post("/api/v1/search", func(http.ResponseWriter, *http.Request) {})
	return r
}

func serve(h http.Handler, method, target string) {
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, target, http.NoBody))
}

func TestMiddleware_LabelsByRouteAndStatus(t *testing.T) {
	h := newRouter()

	tests := []struct {
		method, target, route, status string
	}{
		{http.MethodGet, "/api/v1/search?q=go", "/api/v1/search", "200"},
		{http.MethodGet, "/api/v1/suggest", "/api/v1/suggest", "400"},
		{http.MethodGet, "/health", "/health", "503"},
		{http.MethodPost, "/api/v1/search", "/api/v1/search", "200"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.route, func(t *testing.T) {
			counter := httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status)
			before := testutil.ToFloat64(counter)
			serve(h, tc.method, tc.target)
			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("requests_total delta = %v, want 1", got)
			}
		})
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds observations")
	}
	if v := testutil.ToFloat64(httpRequestsInFlight); v != 0 {
		t.Errorf("in-flight = %v after all requests finished", v)
	}
}

func TestMiddleware_QueryStringDoesNotLeakIntoLabels(t *testing.T) {
	h := newRouter()
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/search", "200")
	before := testutil.ToFloat64(counter)

	serve(h, http.MethodGet, "/api/v1/search?q=a")
	serve(h, http.MethodGet, "/api/v1/search?q=b")

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("requests_total delta = %v, want 2", got)
	}
}

func TestMiddleware_Unmatched(t *testing.T) {
	h := newRouter()
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before := testutil.ToFloat64(counter)

	serve(h, http.MethodGet, "/no/such/path")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("requests_total delta = %v, want 1", got)
	}
}

func TestNormalizeRoute(t *testing.T) {
	if got := normalizeRoute(""); got != "unmatched" {
		t.Errorf("normalizeRoute(\"\") = %q", got)
	}
	if got := normalizeRoute("/api/v1/search"); got != "/api/v1/search" {
		t.Errorf("normalizeRoute = %q", got)
	}
}
