package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

type cacheKey struct {
	projectID int64
	rootType  impact.EntityType
	rootID    int64
}

// Cached memoises another repository's rows per root with an LRU bounded by
// size and ttl. Concurrent misses for the same root share one fetch. Errors
// are never cached.
type Cached struct {
	next   Repository
	lru    *expirable.LRU[cacheKey, []impact.DependencyRow]
	flight singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats is a point-in-time hit/miss count.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// NewCached wraps next. A zero ttl keeps entries until they are evicted.
func NewCached(next Repository, size int, ttl time.Duration) *Cached {
	return &Cached{
		next: next,
		lru:  expirable.NewLRU[cacheKey, []impact.DependencyRow](size, nil, ttl),
	}
}

// refresher is implemented by repositories whose backing data can change
// under the cache, such as a snapshot file.
type refresher interface {
	Refresh() error
}

func (c *Cached) GetDownstreamDependents(ctx context.Context, projectID int64, rootType impact.EntityType, rootID int64) ([]impact.DependencyRow, error) {
	if r, ok := c.next.(refresher); ok {
		if err := r.Refresh(); err != nil {
			return nil, err
		}
	}
	key := cacheKey{projectID: projectID, rootType: rootType, rootID: rootID}
	if rows, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return rows, nil
	}
	c.misses.Add(1)

	v, err, _ := c.flight.Do(fmt.Sprintf("%d/%s/%d", projectID, rootType.Token(), rootID), func() (any, error) {
		rows, err := c.next.GetDownstreamDependents(ctx, projectID, rootType, rootID)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, rows)
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]impact.DependencyRow), nil
}

// Invalidate drops every cached entry. A snapshot repository calls it on reload.
func (c *Cached) Invalidate() {
	c.lru.Purge()
}

// Stats returns the hit and miss counts since creation.
func (c *Cached) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.lru.Len()}
}

func (c *Cached) Close() error {
	c.lru.Purge()
	return c.next.Close()
}
