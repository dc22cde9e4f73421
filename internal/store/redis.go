package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	indexKey    = "state:index"
	valuePrefix = "state:"
)

// RedisStore is the Store implementation backed by Redis, for deployments
// where the distributor runs without a local disk. The single-writer epoch
// loop is the only mutator; the mutex keeps AtomicUpdate safe if that ever
// changes.
type RedisStore struct {
	client redis.Cmdable
	mu     sync.Mutex
}

func NewRedisStore(client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func recordKey(key string) string {
	return valuePrefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, recordKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(key), value, 0)
	pipe.SAdd(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

func (s *RedisStore) AtomicUpdate(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(ctx, key)
	if err != nil && err != ErrNotFound {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	return s.Put(ctx, key, next)
}

func (s *RedisStore) Close() error {
	if c, ok := s.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}
