package scoring

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"OpportunityScanner/internal/ports"
)

const defaultCacheCapacity = 64

// CachedKeywords wraps a KeywordStore with a TTL cache so scans do not hit
// the store on every candidate. Entries refresh on expiry only; there is no
// external invalidation. State is lost on restart by design.
type CachedKeywords struct {
	source ports.KeywordStore
	cache  *expirable.LRU[string, []string]
}

var _ ports.KeywordStore = (*CachedKeywords)(nil)

// NewCachedKeywords builds the cache with the given TTL (zero means 1h).
func NewCachedKeywords(source ports.KeywordStore, ttl time.Duration) *CachedKeywords {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedKeywords{
		source: source,
		cache:  expirable.NewLRU[string, []string](defaultCacheCapacity, nil, ttl),
	}
}

// GetKeywords returns the cached set when fresh, otherwise refreshes from
// the backing store.
func (c *CachedKeywords) GetKeywords(ctx context.Context, detectingContext string) ([]string, error) {
	if cached, ok := c.cache.Get(detectingContext); ok {
		return cached, nil
	}

	keywords, err := c.source.GetKeywords(ctx, detectingContext)
	if err != nil {
		return nil, err
	}

	c.cache.Add(detectingContext, keywords)
	return keywords, nil
}
