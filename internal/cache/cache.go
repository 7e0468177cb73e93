// Package cache provides an in-memory LRU of completed translations
// layered above the dispatcher. Identical requests bypass the pool
// entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/allaspectsdev/traduko/internal/dispatch"
)

// Translator is the dispatch surface the cache wraps. *dispatch.Coordinator
// satisfies it; tests substitute fakes.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string, opts dispatch.Options) (string, error)
}

// Observer receives hit/miss notifications and tracks how many
// translations are currently running against the pool. *metrics.Collector
// satisfies it.
type Observer interface {
	RecordCacheHit()
	RecordCacheMiss()
	IncrementActive()
	DecrementActive()
}

// Cache memoises successful translations in a bounded LRU. Failures are
// never cached.
type Cache struct {
	inner    Translator
	memory   *lru.Cache[string, string]
	observer Observer
	enabled  bool
}

// New creates a translation cache wrapping the given translator. observer
// may be nil.
func New(inner Translator, maxEntries int, enabled bool, observer Observer) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}

	memory, err := lru.New[string, string](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: creating LRU: %w", err)
	}

	return &Cache{
		inner:    inner,
		memory:   memory,
		observer: observer,
		enabled:  enabled,
	}, nil
}

// Translate returns a cached result when one exists, otherwise delegates to
// the wrapped translator and stores a successful result.
func (c *Cache) Translate(ctx context.Context, text, sourceLang, targetLang string, opts dispatch.Options) (string, error) {
	if !c.enabled {
		return c.dispatch(ctx, text, sourceLang, targetLang, opts)
	}

	key := Key(text, sourceLang, targetLang, opts.Hint)
	if cached, ok := c.memory.Get(key); ok {
		if c.observer != nil {
			c.observer.RecordCacheHit()
		}
		return cached, nil
	}
	if c.observer != nil {
		c.observer.RecordCacheMiss()
	}

	result, err := c.dispatch(ctx, text, sourceLang, targetLang, opts)
	if err != nil {
		return "", err
	}

	c.memory.Add(key, result)
	return result, nil
}

// dispatch forwards to the pool, tracking the in-flight count.
func (c *Cache) dispatch(ctx context.Context, text, sourceLang, targetLang string, opts dispatch.Options) (string, error) {
	if c.observer != nil {
		c.observer.IncrementActive()
		defer c.observer.DecrementActive()
	}
	return c.inner.Translate(ctx, text, sourceLang, targetLang, opts)
}

// Len returns the number of cached translations.
func (c *Cache) Len() int {
	return c.memory.Len()
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.memory.Purge()
}

// Key derives the cache key from everything that influences the output.
func Key(text, sourceLang, targetLang, hint string) string {
	h := sha256.New()
	h.Write([]byte(sourceLang))
	h.Write([]byte{0})
	h.Write([]byte(targetLang))
	h.Write([]byte{0})
	h.Write([]byte(hint))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
