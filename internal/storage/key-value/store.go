package key_value

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trackcqishibee-web/locallife-assistant/internal/storage"
)

// Store persists client state in Redis. Keys are namespaced per client so
// several assistants can share one instance.
type Store struct {
	rdb       *redis.Client
	namespace string
}

func NewStore(rdb *redis.Client, namespace string) *Store {
	return &Store{
		rdb:       rdb,
		namespace: namespace,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, s.storeKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return raw, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, s.storeKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.storeKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) storeKey(key string) string {
	return fmt.Sprintf("%s:%s", s.namespace, key)
}
