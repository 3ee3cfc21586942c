package hybridsearch

import (
	"context"

	"github.com/kailas-cloud/hybridsearch/internal/domain/search/request"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/suggestion"
	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/hybridsearch/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn  func(ctx context.Context, req *request.Request) (searchuc.Response, error)
	suggestFn func(ctx context.Context, text, userID string) []suggestion.Suggestion
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) (searchuc.Response, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSearchUC) Suggest(ctx context.Context, text, userID string) []suggestion.Suggestion {
	return m.suggestFn(ctx, text, userID)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- Embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// --- helpers ---

func testClient(searchSvc searchUseCase) *Client {
	return &Client{searchSvc: searchSvc}
}
