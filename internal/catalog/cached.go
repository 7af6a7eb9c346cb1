package catalog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/privacy-assess/internal/model"
)

const (
	cacheKey = "catalog"

	// loadTimeout bounds a shared load once it is detached from the
	// caller that started it.
	loadTimeout = 30 * time.Second
)

// CachedSource serves the catalog from a short-lived in-memory cache.
// Concurrent misses share one load. Failed or empty loads are not cached.
type CachedSource struct {
	inner Source
	cache *expirable.LRU[string, model.Catalog]
	group singleflight.Group
	gen   atomic.Uint64
}

// NewCachedSource wraps inner with a cache whose entries live for ttl.
// A non-positive ttl defaults to 30 seconds.
func NewCachedSource(inner Source, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedSource{
		inner: inner,
		cache: expirable.NewLRU[string, model.Catalog](1, nil, ttl),
	}
}

// Load returns the cached catalog or joins a shared load. The shared load
// does not inherit the cancellation of whichever caller started it; each
// caller stops waiting when its own ctx is done.
func (s *CachedSource) Load(ctx context.Context) (model.Catalog, error) {
	if c, ok := s.cache.Get(cacheKey); ok {
		return c, nil
	}

	ch := s.group.DoChan(cacheKey, func() (any, error) {
		gen := s.gen.Load()

		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		c, err := s.inner.Load(lctx)
		if err != nil {
			return nil, err
		}
		// An Invalidate during the load means c may predate an edit.
		if len(c) > 0 && s.gen.Load() == gen {
			s.cache.Add(cacheKey, c)
		}
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(model.Catalog), nil
	}
}

// Invalidate drops the cached catalog so the next Load reads through.
// A load already in flight finishes but its result is not cached.
func (s *CachedSource) Invalidate() {
	s.gen.Add(1)
	s.group.Forget(cacheKey)
	s.cache.Remove(cacheKey)
}
