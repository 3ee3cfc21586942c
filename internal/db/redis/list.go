package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

// PushCapped prepends value and trims the list to maxLen in one round-trip.
func (s *Store) PushCapped(ctx context.Context, key string, value []byte, maxLen int) error {
	if maxLen <= 0 {
		return fmt.Errorf("maxLen must be positive")
	}

	cmds := rueidis.Commands{
		s.b().Lpush().Key(key).Element(rueidis.BinaryString(value)).Build(),
		s.b().Ltrim().Key(key).Start(0).Stop(int64(maxLen - 1)).Build(),
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpLPush, Err: fmt.Errorf("key %s: %w", key, err)}
		}
	}
	return nil
}

// LRange returns list elements between start and stop (inclusive).
func (s *Store) LRange(ctx context.Context, key string, start, stop int) ([][]byte, error) {
	cmd := s.b().Lrange().Key(key).Start(int64(start)).Stop(int64(stop)).Build()
	msgs, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}

	out := make([][]byte, 0, len(msgs))
	for i := range msgs {
		b, err := msgs[i].AsBytes()
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
