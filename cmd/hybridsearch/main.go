package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/config"
	dbRedis "github.com/kailas-cloud/hybridsearch/internal/db/redis"
	"github.com/kailas-cloud/hybridsearch/internal/domain"
	logpkg "github.com/kailas-cloud/hybridsearch/internal/logger"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
	"github.com/kailas-cloud/hybridsearch/internal/repository/embcache"
	"github.com/kailas-cloud/hybridsearch/internal/repository/index"
	"github.com/kailas-cloud/hybridsearch/internal/repository/lexical"
	"github.com/kailas-cloud/hybridsearch/internal/repository/vector"
	chiTransport "github.com/kailas-cloud/hybridsearch/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/hybridsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/hybridsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/hybridsearch/internal/usecase/history"
	"github.com/kailas-cloud/hybridsearch/internal/usecase/rewrite"
	searchuc "github.com/kailas-cloud/hybridsearch/internal/usecase/search"
	"github.com/kailas-cloud/hybridsearch/internal/usecase/suggest"
	"github.com/kailas-cloud/hybridsearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting hybridsearch API server",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("index", cfg.Index.Name),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterModelMetrics()
	metrics.RegisterSearchMetrics()

	switch {
	case cfg.Index.RecreateOnStart:
		if err := index.Recreate(ctx, store, indexSpec(cfg), logger); err != nil {
			logger.Fatal("Failed to recreate search index", zap.Error(err))
		}
	case cfg.Index.CreateOnStart:
		if err := index.Ensure(ctx, store, indexSpec(cfg), logger); err != nil {
			logger.Fatal("Failed to ensure search index", zap.Error(err))
		}
	}

	// Repositories
	lexRepo := lexical.New(store, lexical.Schema{
		IndexName:    cfg.Index.Name,
		KeyPrefix:    cfg.Index.KeyPrefix,
		TitleField:   cfg.Index.TitleField,
		ContentField: cfg.Index.ContentField,
		ReturnFields: cfg.Index.ReturnFields,
	}).WithHighlight(*cfg.Index.Highlight).WithFacetLimit(cfg.Index.FacetLimit)

	vecRepo := vector.New(store, vector.Schema{
		IndexName:    cfg.Index.Name,
		KeyPrefix:    cfg.Index.KeyPrefix,
		VectorField:  cfg.Index.VectorField,
		ReturnFields: cfg.Index.ReturnFields,
	})

	queryEmbedder := buildEmbedder(cfg.Embedding, store, logger)
	logger.Info("Query embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.CacheTTLSec > 0),
	)

	hist, err := openHistory(ctx, cfg.History, store)
	if err != nil {
		logger.Fatal("Failed to open history store", zap.Error(err))
	}
	defer hist.close(logger)

	// Suggestions
	popularity, err := suggest.NewPopularity(
		cfg.Suggest.PopularitySize,
		cfg.Suggest.PopularityCap,
		time.Duration(cfg.Suggest.PopularityHalfLifeSec)*time.Second,
	)
	if err != nil {
		logger.Fatal("Failed to create popularity counters", zap.Error(err))
	}
	suggester := suggest.New(lexRepo, hist.source, popularity, logger).
		WithCache(cfg.Suggest.CacheSize, time.Duration(cfg.Suggest.CacheTTLSec)*time.Second)

	// Search
	dispatcher := searchuc.NewDispatcher(lexRepo, vecRepo, queryEmbedder, logger).
		WithTimeouts(cfg.Search.LexicalTimeout(), cfg.Search.VectorTimeout())
	searchSvc := searchuc.New(dispatcher, suggester, logger).WithTagFields(cfg.Index.TagFields)

	generator := buildGenerator(cfg.Rewrite, logger)
	if cfg.Rewrite.Enabled {
		// Pass a nil interface, not a typed nil pointer, when no model is configured.
		var gen domain.Generator
		if generator != nil {
			gen = generator
		}
		searchSvc.WithRewriter(
			rewrite.New(gen, logger).
				WithMinWords(cfg.Rewrite.MinWords).
				WithTimeout(cfg.Rewrite.Timeout()).
				WithMaxOutputChars(cfg.Rewrite.MaxOutputChars),
		)
		logger.Info("Query rewriting enabled", zap.Bool("model", generator != nil))
	}

	var recorder *historyuc.Recorder
	if hist.writer != nil {
		recorder, err = historyuc.NewRecorder(hist.writer, cfg.History.Workers, logger)
		if err != nil {
			logger.Fatal("Failed to create history recorder", zap.Error(err))
		}
		recorder.WithWriteTimeout(cfg.History.WriteTimeout())
		searchSvc.WithRecorder(recorder)
	}

	// Health: lexical is required to serve; everything else degrades.
	healthSvc := healthuc.New(logger).
		Critical(domain.BackendLexical, lexRepo).
		Optional(domain.BackendVector, vecRepo).
		Optional("embedding", queryEmbedder)
	if generator != nil {
		healthSvc.Optional("rewrite_model", generator)
	}
	if hist.checker != nil {
		healthSvc.Optional(domain.BackendHistory, hist.checker)
	}

	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownTimeout := time.Duration(cfg.HTTP.ShutdownSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if recorder != nil {
		if err := recorder.Close(shutdownTimeout); err != nil {
			logger.Warn("History writes not drained", zap.Error(err))
		}
	}

	logger.Info("Server stopped gracefully")
}

func indexSpec(cfg config.Config) index.Spec {
	return index.Spec{
		Name:         cfg.Index.Name,
		KeyPrefix:    cfg.Index.KeyPrefix,
		TitleField:   cfg.Index.TitleField,
		TitleWeight:  cfg.Index.TitleWeight,
		ContentField: cfg.Index.ContentField,
		TagFields:    cfg.Index.TagFields,
		VectorField:  cfg.Index.VectorField,
		Dimensions:   cfg.Embedding.Dimensions,
		HNSW: index.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		},
	}
}

// buildEmbedder assembles the query embedder chain:
// Instrumented -> Cached -> Instruction -> OpenAI.
// The cache sits above the instruction wrapper and keys on the raw query.
func buildEmbedder(cfg config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger) *embeddinguc.InstrumentedEmbedder {
	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}

	if cfg.CacheTTLSec > 0 {
		prefix := fmt.Sprintf("embcache:%s:%d:", cfg.Model, cfg.Dimensions)
		embedder = embcache.New(embedder, store, prefix, metrics.EmbeddingCacheTotal, logger).
			WithTTL(time.Duration(cfg.CacheTTLSec) * time.Second).
			WithDimensions(cfg.Dimensions)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)
}

// buildGenerator returns nil when no rewrite model is configured; the
// rewriter then runs its pattern pass only.
func buildGenerator(cfg config.RewriteConfig, logger *zap.Logger) *openaiTransport.Generator {
	if !cfg.Enabled || cfg.Model == "" {
		return nil
	}
	return openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: cfg.Provider,
		Logger:   logger,
	}).WithMaxTokens(cfg.MaxTokens)
}
