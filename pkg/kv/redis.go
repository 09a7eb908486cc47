package kv

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// maxUpdateRetries bounds the optimistic WATCH loop. Contention on a single
// product key should resolve in a handful of rounds.
const maxUpdateRetries = 16

type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) prefixed(key string) string {
	var b strings.Builder
	b.Grow(len(s.prefix) + 1 + len(key))
	b.WriteString(s.prefix)
	b.WriteString(":")
	b.WriteString(key)
	return b.String()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefixed(key), value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefixed(key)).Err()
}

// Update runs fn inside a WATCH/MULTI/EXEC transaction: if another writer
// touches the key between the read and the write, the transaction fails and
// the whole read-modify-write is retried against the fresh value.
func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	watched := s.prefixed(key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, watched).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, watched, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, watched)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
