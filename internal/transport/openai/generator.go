package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

// DefaultMaxTokens bounds a single rewrite completion.
const DefaultMaxTokens = 128

// Generator produces short completions through an OpenAI-compatible chat API.
// It backs the query rewriter's model pass.
type Generator struct {
	client    *openai.Client
	model     string
	user      string
	provider  string
	maxTokens int
	logger    *zap.Logger
}

// NewGenerator creates a chat completion provider.
func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		client:    newClient(cfg.APIKey, cfg.BaseURL),
		model:     cfg.Model,
		user:      cfg.User,
		provider:  cfg.Provider,
		maxTokens: DefaultMaxTokens,
		logger:    cfg.Logger,
	}
}

// WithMaxTokens overrides the completion token limit.
func (g *Generator) WithMaxTokens(n int) *Generator {
	if n > 0 {
		g.maxTokens = n
	}
	return g
}

// Generate implements domain.Generator. Tokens used are recorded into the request usage.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.maxTokens,
		Temperature: 0,
		User:        g.user,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		g.logger.Debug("completion request failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return "", parseAPIError("completion", err, domain.ErrModelProviderError)
	}

	metrics.ModelRequestDuration.WithLabelValues(g.provider, g.model).Observe(elapsed.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ModelTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
		domain.UsageFromContext(ctx).AddModelTokens(resp.Usage.TotalTokens)
	}

	if len(resp.Choices) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrModelProviderError)
	}

	metrics.ModelRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
