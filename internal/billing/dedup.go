package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator guarantees at most one cost report per request ID, across
// instances when backed by Redis.
type Deduplicator interface {
	// FirstReport returns true only for the first call with a given request ID.
	FirstReport(ctx context.Context, requestID string) bool
}

type InMemoryDeduplicator struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewInMemoryDeduplicator(ttl time.Duration) *InMemoryDeduplicator {
	return &InMemoryDeduplicator{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (d *InMemoryDeduplicator) FirstReport(ctx context.Context, requestID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastSweep) > d.ttl {
		for id, expires := range d.seen {
			if now.After(expires) {
				delete(d.seen, id)
			}
		}
		d.lastSweep = now
	}

	if expires, ok := d.seen[requestID]; ok && now.Before(expires) {
		return false
	}
	d.seen[requestID] = now.Add(d.ttl)
	return true
}

type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduplicator(redisURL string, ttl time.Duration) (*RedisDeduplicator, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisDeduplicator{client: client, ttl: ttl}, nil
}

func NewRedisDeduplicatorWithClient(client *redis.Client, ttl time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{client: client, ttl: ttl}
}

// FirstReport uses SETNX so only one instance wins. On Redis errors it fails
// open: a duplicate report is preferred over a lost one.
func (d *RedisDeduplicator) FirstReport(ctx context.Context, requestID string) bool {
	acquired, err := d.client.SetNX(ctx, "billing:reported:"+requestID, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return true
	}
	return acquired
}

func (d *RedisDeduplicator) Close() error {
	return d.client.Close()
}
