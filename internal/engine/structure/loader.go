package structure

import (
	"context"

	"molgraph/internal/shared/observability"
	"molgraph/internal/shared/util"
)

// Loader parses a structure file.
type Loader interface {
	Load(ctx context.Context, path string) (*Structure, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) (*Structure, error)

func (f LoaderFunc) Load(ctx context.Context, path string) (*Structure, error) { return f(ctx, path) }

// CachedLoader keeps recently parsed structures for a single worker. It is not
// safe for concurrent use; each worker owns its own instance.
type CachedLoader struct {
	next    Loader
	cache   *lruCache[string, *Structure]
	limiter *util.Limiter
}

// NewCachedLoader wraps next with an LRU of the given capacity. A non-nil
// limiter throttles cache misses.
func NewCachedLoader(next Loader, capacity int, limiter *util.Limiter) *CachedLoader {
	return &CachedLoader{next: next, cache: newLRUCache[string, *Structure](capacity), limiter: limiter}
}

func (l *CachedLoader) Load(ctx context.Context, path string) (*Structure, error) {
	if s, ok := l.cache.Get(path); ok {
		observability.StructureCacheHitsTotal.Inc()
		return s, nil
	}
	if err := l.limiter.Wait(ctx, 1); err != nil {
		return nil, err
	}
	s, err := l.next.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	l.cache.Put(path, s)
	return s, nil
}

// Len reports how many structures are cached.
func (l *CachedLoader) Len() int { return l.cache.Len() }
