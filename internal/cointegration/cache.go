package cointegration

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/yourusername/pairs-trader/internal/models"
)

// CachedScreener memoizes evaluations keyed by pair, window and last timestamp.
// Results are immutable so entries never expire.
type CachedScreener struct {
	inner Evaluator
	cache *cache.Cache
}

// NewCachedScreener wraps an evaluator with an in-memory result cache
func NewCachedScreener(inner Evaluator) *CachedScreener {
	return &CachedScreener{
		inner: inner,
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

// Evaluate returns a cached result when the same trailing window was seen before
func (c *CachedScreener) Evaluate(pair models.Pair, a, b models.PriceSeries, window int) (Result, error) {
	if len(a) == 0 {
		return c.inner.Evaluate(pair, a, b, window)
	}
	key := cacheKey(pair, a, window)
	if cached, found := c.cache.Get(key); found {
		if res, ok := cached.(Result); ok {
			return res, nil
		}
	}

	res, err := c.inner.Evaluate(pair, a, b, window)
	if err != nil {
		return Result{}, err
	}
	c.cache.Set(key, res, cache.NoExpiration)
	return res, nil
}

// Len returns the number of cached results
func (c *CachedScreener) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(pair models.Pair, a models.PriceSeries, window int) string {
	return fmt.Sprintf("%s:%d:%d", pair.ID(), window, a[len(a)-1].Time.UnixNano())
}
