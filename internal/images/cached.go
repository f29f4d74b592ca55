package images

import (
	"context"
	"log/slog"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/cache"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/circuitbreaker"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/metrics"
)

// Searcher is a Fetcher that reports its failures.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// CachedFetcher puts a result cache and a circuit breaker in front of a Searcher.
type CachedFetcher struct {
	next    Searcher
	cache   cache.Cache
	breaker *circuitbreaker.Breaker
	ttl     time.Duration
	logger  *slog.Logger
}

func NewCachedFetcher(next Searcher, c cache.Cache, breaker *circuitbreaker.Breaker, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{
		next:    next,
		cache:   c,
		breaker: breaker,
		ttl:     ttl,
		logger:  logger,
	}
}

func (f *CachedFetcher) Fetch(ctx context.Context, query string) []string {
	term := SearchTerm(query)
	if term == "" {
		return []string{}
	}

	key := cache.GenerateCacheKey(term)
	if f.cache != nil {
		if urls, ok := f.cache.Get(ctx, key); ok {
			metrics.RecordImageCache(true)
			return urls
		}
		metrics.RecordImageCache(false)
	}

	if f.breaker != nil {
		if err := f.breaker.Allow(); err != nil {
			f.logger.Debug("image search skipped", "error", err)
			return []string{}
		}
	}

	urls, err := f.next.Search(ctx, term)
	if err != nil {
		if f.breaker != nil && ctx.Err() == nil {
			f.breaker.RecordFailure()
		}
		f.logger.Warn("image search failed", "error", err)
		return []string{}
	}
	if f.breaker != nil {
		f.breaker.RecordSuccess()
	}

	if len(urls) > 0 && f.cache != nil {
		if err := f.cache.Set(ctx, key, urls, f.ttl); err != nil {
			f.logger.Warn("image cache write failed", "error", err)
		}
	}
	return urls
}
