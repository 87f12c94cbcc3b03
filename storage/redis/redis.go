// Package redis provides a Redis-backed implementation of the
// storage.Storage interface. Per-key TTLs are mapped onto Redis key
// expiry so records disappear server-side without any sweeper.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
	"github.com/taskm-dev/mcp-authd/storage"
)

// Config contains configuration options for the Redis storage.
// Defaults can be loaded from the environment via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all Redis keys. ENV: OAUTH_KEY_PREFIX
	KeyPrefix string `env:"OAUTH_KEY_PREFIX,default=taskm:oauth:"`
}

// Storage implements the storage.Storage interface using Redis.
type Storage struct {
	client    *redis.Client
	keyPrefix string
}

// storedItem is the envelope persisted in Redis.
type storedItem struct {
	Data      []byte     `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New creates a new Redis-backed storage instance.
func New(cfg Config) (*Storage, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "taskm:oauth:"
	}
	return &Storage{client: cl, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Storage using envdecode to populate Config.
func NewFromEnv() (*Storage, error) {
	var cfg Config
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// Get retrieves the item stored under key.
func (s *Storage) Get(ctx context.Context, key string) (*storage.Item, error) {
	redisKey := s.keyPrefix + key

	result := s.client.Get(ctx, redisKey)
	if result.Err() != nil {
		if result.Err() == redis.Nil {
			return nil, nil // Key doesn't exist
		}
		return nil, fmt.Errorf("failed to get key %s: %w", redisKey, result.Err())
	}

	var item storedItem
	if err := json.Unmarshal([]byte(result.Val()), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored data: %w", err)
	}

	storageItem := &storage.Item{
		Data:      item.Data,
		CreatedAt: item.CreatedAt,
		ExpiresAt: item.ExpiresAt,
	}

	// Redis expiry normally removes the key first; this covers clock
	// drift between writer and server.
	if storageItem.IsExpired() {
		s.client.Del(ctx, redisKey)
		return nil, nil
	}

	return storageItem, nil
}

// Set stores data under key, optionally with a TTL.
func (s *Storage) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	options := &storage.Options{}
	for _, opt := range opts {
		opt(options)
	}

	redisKey := s.keyPrefix + key

	now := time.Now()
	item := storedItem{
		Data:      data,
		CreatedAt: now,
	}

	var redisTTL time.Duration
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
		redisTTL = *options.TTL
	}

	itemData, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal storage item: %w", err)
	}

	result := s.client.Set(ctx, redisKey, itemData, redisTTL)
	if result.Err() != nil {
		return fmt.Errorf("failed to set key %s: %w", redisKey, result.Err())
	}

	return nil
}

// Delete removes the key. Absent keys are ignored.
func (s *Storage) Delete(ctx context.Context, key string) error {
	redisKey := s.keyPrefix + key
	result := s.client.Del(ctx, redisKey)
	if result.Err() != nil {
		return fmt.Errorf("failed to delete key %s: %w", redisKey, result.Err())
	}
	return nil
}

// Close closes the storage backend and releases resources.
func (s *Storage) Close() error {
	return s.client.Close()
}

// Compile-time interface check
var _ storage.Storage = (*Storage)(nil)
