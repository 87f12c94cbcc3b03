// Package memory provides an in-memory implementation of the storage
// interface using github.com/hashicorp/golang-lru/v2 for bounded
// caching with TTL support. Suitable for tests and single-process
// deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/taskm-dev/mcp-authd/storage"
)

// Storage implements the storage.Storage interface in memory.
type Storage struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, *storage.Item]

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new in-memory storage implementation holding at most
// maxItems entries.
func New(maxItems int) (*Storage, error) {
	cache, err := lru.New[string, *storage.Item](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	s := &Storage{
		cache: cache,
		done:  make(chan struct{}),
	}

	// Background cleanup of expired items. Expiry is also enforced
	// lazily on Get, so the sweep only reclaims memory.
	go s.cleanupExpired()

	return s, nil
}

// Get retrieves the item stored under key.
func (s *Storage) Get(ctx context.Context, key string) (*storage.Item, error) {
	s.mu.RLock()
	item, exists := s.cache.Get(key)
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if item.IsExpired() {
		s.mu.Lock()
		s.cache.Remove(key)
		s.mu.Unlock()
		return nil, nil
	}

	return item, nil
}

// Set stores data under key, optionally with a TTL.
func (s *Storage) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	options := &storage.Options{}
	for _, opt := range opts {
		opt(options)
	}

	now := time.Now()
	item := &storage.Item{
		Data:      make([]byte, len(data)),
		CreatedAt: now,
	}
	copy(item.Data, data)

	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
	}

	s.mu.Lock()
	s.cache.Add(key, item)
	s.mu.Unlock()

	return nil
}

// Delete removes the key. Absent keys are ignored.
func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.cache.Remove(key)
	s.mu.Unlock()
	return nil
}

// Close releases resources and stops the background sweep. Safe to
// call more than once.
func (s *Storage) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.cache.Purge()
		s.mu.Unlock()
	})
	return nil
}

// cleanupExpired periodically removes expired items.
func (s *Storage) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		now := time.Now()
		for _, key := range s.cache.Keys() {
			if item, exists := s.cache.Peek(key); exists {
				if item.ExpiresAt != nil && now.After(*item.ExpiresAt) {
					s.cache.Remove(key)
				}
			}
		}
		s.mu.Unlock()
	}
}

// Compile-time interface check
var _ storage.Storage = (*Storage)(nil)
