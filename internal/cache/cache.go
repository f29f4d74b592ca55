// Package cache stores image search results so repeated prompts do not spend the
// image API's hourly quota. It supports in-memory (single instance) and Redis
// (shared) backends.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache defines the interface for image result caching backends.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, urls []string, ttl time.Duration) error
}

// GenerateCacheKey derives a key from a search term. Case and surrounding
// whitespace do not matter.
func GenerateCacheKey(term string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(term), " "))
	hash := sha256.Sum256([]byte(normalized))
	return "images:" + hex.EncodeToString(hash[:])
}

type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]*cacheItem
	done  chan struct{}
	once  sync.Once
}

type cacheItem struct {
	urls      []string
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	c := &InMemoryCache{
		items: make(map[string]*cacheItem),
		done:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *InMemoryCache) Get(ctx context.Context, key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		return nil, false
	}

	urls := make([]string, len(item.urls))
	copy(urls, item.urls)
	return urls, true
}

func (c *InMemoryCache) Set(ctx context.Context, key string, urls []string, ttl time.Duration) error {
	stored := make([]string, len(urls))
	copy(stored, urls)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem{
		urls:      stored,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Close stops the background eviction loop.
func (c *InMemoryCache) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *InMemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient shares an existing client.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]string, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, false
	}

	return urls, true
}

func (c *RedisCache) Set(ctx context.Context, key string, urls []string, ttl time.Duration) error {
	data, err := json.Marshal(urls)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
