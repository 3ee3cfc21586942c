package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	logpkg "github.com/kailas-cloud/hybridsearch/internal/logger"
	chiTransport "github.com/kailas-cloud/hybridsearch/internal/transport/chi"
)

func TestJSONRecoverer(t *testing.T) {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(zap.NewNop()))
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp chiTransport.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != chiTransport.ErrorResponseCodeInternalError {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(zap.New(core)))
	r.Get("/x", func(w http.ResponseWriter, r *http.Request) {
		logpkg.FromContext(r.Context()).Info("handler")
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set(chiTransport.UserIDHeader, "u1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
	handlerLogs := logs.FilterMessage("handler").All()
	if len(handlerLogs) != 1 {
		t.Fatalf("expected 1 handler line, got %d", len(handlerLogs))
	}
	if id, _ := handlerLogs[0].ContextMap()["request_id"].(string); id == "" {
		t.Error("request-scoped logger not in context")
	}

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 http_request line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status field = %v", fields["status"])
	}
	if fields["user_id"] != "u1" {
		t.Errorf("user_id field = %v", fields["user_id"])
	}
	if id, _ := fields["request_id"].(string); id == "" {
		t.Error("request_id field missing")
	}
}
