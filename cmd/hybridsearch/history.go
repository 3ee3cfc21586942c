package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/config"
	"github.com/kailas-cloud/hybridsearch/internal/db"
	"github.com/kailas-cloud/hybridsearch/internal/domain"
	historyrepo "github.com/kailas-cloud/hybridsearch/internal/repository/history"
	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
)

type historyWriter interface {
	Append(ctx context.Context, rec domain.HistoryRecord) error
}

type historySource interface {
	RecentQueries(ctx context.Context, userID string, limit int) ([]string, error)
}

// historyBackend bundles the views of the configured history store.
// All fields are nil when history is disabled.
type historyBackend struct {
	writer  historyWriter
	source  historySource
	checker healthuc.Checker
	closer  io.Closer
}

// historyListStore is what the Redis history driver needs from the database.
type historyListStore interface {
	db.ListStore
	db.Pinger
}

func openHistory(ctx context.Context, cfg config.HistoryConfig, store historyListStore) (historyBackend, error) {
	switch cfg.Driver {
	case "redis":
		s := historyrepo.NewRedisStore(store, cfg.KeyPrefix).WithMaxPerUser(cfg.MaxPerUser)
		return historyBackend{writer: s, source: s, checker: s}, nil
	case "sqlite":
		s, err := historyrepo.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return historyBackend{}, fmt.Errorf("open sqlite history %s: %w", cfg.SQLitePath, err)
		}
		return historyBackend{writer: s, source: s, checker: s, closer: s}, nil
	default:
		return historyBackend{}, nil
	}
}

func (h historyBackend) close(logger *zap.Logger) {
	if h.closer == nil {
		return
	}
	if err := h.closer.Close(); err != nil {
		logger.Warn("Failed to close history store", zap.Error(err))
	}
}
