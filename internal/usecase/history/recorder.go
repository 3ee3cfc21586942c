package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

const (
	// DefaultWorkers is the pool size for concurrent history writes.
	DefaultWorkers = 4
	// DefaultWriteTimeout bounds a single history write.
	DefaultWriteTimeout = 2 * time.Second
)

// Recorder appends history records off the request path.
// Writes never block the caller: when every worker is busy the record is dropped.
type Recorder struct {
	store        store
	pool         *ants.Pool
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewRecorder creates a recorder backed by a non-blocking pool of workers.
func NewRecorder(s store, workers int, logger *zap.Logger) (*Recorder, error) {
	if workers < 1 {
		workers = DefaultWorkers
	}
	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			logger.Error("History write panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create history pool: %w", err)
	}
	return &Recorder{
		store:        s,
		pool:         pool,
		writeTimeout: DefaultWriteTimeout,
		logger:       logger,
	}, nil
}

// WithWriteTimeout overrides the per-write timeout.
func (r *Recorder) WithWriteTimeout(d time.Duration) *Recorder {
	if d > 0 {
		r.writeTimeout = d
	}
	return r
}

// Record schedules rec for persistence and returns immediately.
func (r *Recorder) Record(rec domain.HistoryRecord) {
	err := r.pool.Submit(func() { r.write(rec) })
	if err == nil {
		return
	}
	metrics.HistoryWritesTotal.WithLabelValues("dropped").Inc()
	if errors.Is(err, ants.ErrPoolOverload) {
		r.logger.Warn("History write dropped: pool overloaded", zap.String("user_id", rec.UserID))
		return
	}
	r.logger.Warn("History write dropped", zap.String("user_id", rec.UserID), zap.Error(err))
}

func (r *Recorder) write(rec domain.HistoryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.store.Append(ctx, rec); err != nil {
		metrics.HistoryWritesTotal.WithLabelValues("error").Inc()
		r.logger.Warn("History write failed",
			zap.String("backend", domain.BackendHistory),
			zap.String("user_id", rec.UserID),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrHistoryWriteFailed, err)),
		)
		return
	}
	metrics.HistoryWritesTotal.WithLabelValues("ok").Inc()
}

// Close waits up to timeout for in-flight writes and releases the pool.
func (r *Recorder) Close(timeout time.Duration) error {
	if err := r.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release history pool: %w", err)
	}
	return nil
}
