package mapping

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps per-post mappings as JSON values in Redis. Mappings are
// permanent (no TTL); regeneration overwrites the key wholesale.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, address, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "image-map:",
	}, nil
}

// Save stores the mapping under image-map:<postID>.
func (s *RedisStore) Save(ctx context.Context, postID string, m Mapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	return s.client.Set(ctx, s.prefix+postID, data, 0).Err()
}

// Load retrieves the mapping for a post, or ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, postID string) (Mapping, error) {
	data, err := s.client.Get(ctx, s.prefix+postID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode mapping %s: %w", postID, err)
	}
	return m, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
