package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	clientName       = "hybridsearch"
	readyBackoffMin  = 50 * time.Millisecond
	readyBackoffMax  = time.Second
	defaultWriteWait = 5 * time.Second
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ClientName is sent with CLIENT SETNAME. Empty means "hybridsearch".
	ClientName string
	// ConnWriteTimeout bounds a single socket write. Zero means 5s.
	ConnWriteTimeout time.Duration
}

// Store is the Redis 8 backend. Lexical search, KNN, facets, the embedding
// cache and search history all go through one rueidis client.
type Store struct {
	client rueidis.Client
}

// NewStore dials Redis. The client is RESP2 because FT.SEARCH and
// FT.AGGREGATE replies are parsed as flat arrays.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = clientName
	}
	writeWait := cfg.ConnWriteTimeout
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      cfg.Addrs,
		Username:         cfg.Username,
		Password:         cfg.Password,
		SelectDB:         cfg.DB,
		ClientName:       name,
		ConnWriteTimeout: writeWait,
		DisableCache:     true,
		AlwaysRESP2:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady blocks until the server answers PING and has the search
// module loaded, backing off between attempts. The last attempt error is
// reported on timeout.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := readyBackoffMin
	var last error
	for {
		if last = s.checkReady(ctx); last == nil {
			return nil
		}
		if errors.Is(last, db.ErrSearchUnavailable) {
			return last
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", errors.Join(ctx.Err(), last))
		case <-time.After(wait):
		}
		wait = min(wait*2, readyBackoffMax)
	}
}

// checkReady is one readiness attempt: PING, then FT._LIST to prove RediSearch
// is available. A server without the module fails permanently.
func (s *Store) checkReady(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	err := s.do(ctx, s.b().FtList().Build()).Error()
	switch {
	case err == nil:
		return nil
	case isRedisErr(err, "unknown command"):
		return fmt.Errorf("%w: %v", db.ErrSearchUnavailable, err)
	default:
		return fmt.Errorf("ft._list: %w", err)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a server error whose message contains
// substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
