package cache

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is an in-process TTL cache keyed by string.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Del(key string)
	Clear()
	Close()
}

type ristrettoCache[V any] struct {
	c *ristretto.Cache[string, V]
}

// NewTTLCache returns a ristretto-backed cache holding up to maxItems entries.
func NewTTLCache[V any](maxItems int64) (Cache[V], error) {
	if maxItems <= 0 {
		maxItems = 1024
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ristrettoCache[V]{c: c}, nil
}

func (r *ristrettoCache[V]) Get(key string) (V, bool) {
	return r.c.Get(key)
}

// Set waits for the write buffer to drain so the value is visible to the
// next Get. Ristretto may still reject the entry under admission pressure.
func (r *ristrettoCache[V]) Set(key string, value V, ttl time.Duration) {
	r.c.SetWithTTL(key, value, 1, ttl)
	r.c.Wait()
}

func (r *ristrettoCache[V]) Del(key string) {
	r.c.Del(key)
}

func (r *ristrettoCache[V]) Clear() {
	r.c.Clear()
}

func (r *ristrettoCache[V]) Close() {
	r.c.Close()
}
