package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list key used when history.redis_key is empty.
const DefaultRedisKey = "earworm:history"

// redisRetention caps the list so a long-lived shared server does not grow unbounded.
const redisRetention = 1000

// RedisStore keeps history as a JSON list in Redis, newest at the head.
type RedisStore struct {
	client *redis.Client
	key    string
}

// OpenRedis connects to addr and verifies the server responds.
func OpenRedis(ctx context.Context, addr string, key string) (*RedisStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("history.redis_addr is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis PING %s: %w", addr, err)
	}
	return NewRedisStore(client, key), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Append pushes one entry and trims the list to the retention window.
func (s *RedisStore) Append(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, payload)
		pipe.LTrim(ctx, s.key, 0, redisRetention-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis LPUSH %s: %w", s.key, err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *RedisStore) List(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE %s: %w", s.key, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close releases the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
