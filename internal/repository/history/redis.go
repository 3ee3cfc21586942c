package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
)

// DefaultMaxPerUser caps the per-user history list.
const DefaultMaxPerUser = 100

// listStore is the consumer interface for Redis-backed history (ISP).
type listStore interface {
	PushCapped(ctx context.Context, key string, value []byte, maxLen int) error
	LRange(ctx context.Context, key string, start, stop int) ([][]byte, error)
	Ping(ctx context.Context) error
}

// RedisStore keeps each user's recent searches in a capped list, newest first.
type RedisStore struct {
	store      listStore
	keyPrefix  string
	maxPerUser int
}

// NewRedisStore creates a Redis history store.
func NewRedisStore(s listStore, keyPrefix string) *RedisStore {
	return &RedisStore{store: s, keyPrefix: keyPrefix, maxPerUser: DefaultMaxPerUser}
}

// WithMaxPerUser overrides the per-user list cap.
func (r *RedisStore) WithMaxPerUser(n int) *RedisStore {
	if n > 0 {
		r.maxPerUser = n
	}
	return r
}

// Append stores rec at the head of the user's list.
func (r *RedisStore) Append(ctx context.Context, rec domain.HistoryRecord) error {
	if rec.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	if err := r.store.PushCapped(ctx, r.key(rec.UserID), data, r.maxPerUser); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// RecentQueries returns up to limit query texts, newest first.
func (r *RedisStore) RecentQueries(ctx context.Context, userID string, limit int) ([]string, error) {
	if userID == "" || limit <= 0 {
		return nil, nil
	}
	items, err := r.store.LRange(ctx, r.key(userID), 0, limit-1)
	if err != nil {
		return nil, fmt.Errorf("recent queries: %w", err)
	}

	out := make([]string, 0, len(items))
	for _, raw := range items {
		var rec domain.HistoryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.Query != "" {
			out = append(out, rec.Query)
		}
	}
	return out, nil
}

// HealthCheck pings the server holding the history lists.
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("history store: %w", err)
	}
	return nil
}

func (r *RedisStore) key(userID string) string {
	return r.keyPrefix + userID
}
