package social

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gitsocial/gitsocial/timeline"
)

// LogSource is the read surface shared by Service and CachedService, so
// consumers can take either.
type LogSource interface {
	GetLogs(ctx context.Context, dir, scope string, filter *Filter) ([]timeline.Entry, error)
}

var (
	_ LogSource = (*Service)(nil)
	_ LogSource = (*CachedService)(nil)
)

// CachedService memoizes GetLogs results in an expiring LRU, keyed by the
// full call fingerprint. Reconstruction walks the whole relevant history on
// every call, so polling readers (the daemon's HTTP handlers) sit behind
// this instead of hitting git every time. Errors are never cached.
type CachedService struct {
	inner LogSource
	cache *expirable.LRU[string, []timeline.Entry]
}

// NewCachedService wraps inner with a result cache of the given capacity
// and TTL.
func NewCachedService(inner LogSource, capacity int, ttl time.Duration) *CachedService {
	return &CachedService{
		inner: inner,
		cache: expirable.NewLRU[string, []timeline.Entry](capacity, nil, ttl),
	}
}

func (c *CachedService) GetLogs(ctx context.Context, dir, scope string, filter *Filter) ([]timeline.Entry, error) {
	key := cacheKey(dir, scope, filter)
	if entries, ok := c.cache.Get(key); ok {
		logCacheHits.Inc()
		return entries, nil
	}
	logCacheMisses.Inc()

	entries, err := c.inner.GetLogs(ctx, dir, scope, filter)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, entries)
	return entries, nil
}

// cacheKey fingerprints one GetLogs call. Fields are joined with NUL so no
// concatenation of values collides with another call's key.
func cacheKey(dir, scope string, filter *Filter) string {
	var b strings.Builder
	b.WriteString(dir)
	b.WriteByte(0)
	b.WriteString(scope)
	b.WriteByte(0)
	if filter == nil {
		return b.String()
	}
	if filter.Since != nil {
		fmt.Fprintf(&b, "s%d", filter.Since.UnixNano())
	}
	if filter.Until != nil {
		fmt.Fprintf(&b, "u%d", filter.Until.UnixNano())
	}
	fmt.Fprintf(&b, "l%d", filter.Limit)
	b.WriteByte(0)
	for _, t := range filter.Types {
		b.WriteString(string(t))
		b.WriteByte(',')
	}
	b.WriteByte(0)
	b.WriteString(filter.CacheBase)
	return b.String()
}
