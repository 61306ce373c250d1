// Package querycache memoizes backend reads per browser session.
//
// Entries are keyed by (namespace, key).  The namespace is derived from the
// session token with Namespace so raw tokens never become map keys.  Loads
// for the same entry are collapsed with singleflight, and every entry expires
// after its TTL.  Invalidate and Clear bump a generation counter so a load
// that was already in flight cannot repopulate an entry it raced with.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/recipebox/internal/cache"
	"github.com/yanizio/recipebox/internal/metrics"
)

// Well-known query keys.
const (
	KeyMe       = "me"
	KeyPlans    = "plans"
	KeyProducts = "products"
	KeyRecipes  = "recipes"
	KeyFavorite = "favorites"
	KeyHistory  = "history"
	KeyPosts    = "community-posts"
)

// Namespace maps a session token to its cache namespace.
func Namespace(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

type entry struct {
	val    any
	exp    time.Time
	keyGen uint64
	nsGen  uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	entries *cache.LRU[string, entry]
	keyGens *cache.LRU[string, uint64]
	nsGens  *cache.LRU[string, uint64]
	sfg     singleflight.Group
	ttl     time.Duration
	now     func() time.Time
}

// New returns a cache holding at most capacity entries.  ttl is the default
// lifetime used when Get is called with ttl <= 0.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		entries: cache.New[string, entry](capacity),
		keyGens: cache.New[string, uint64](capacity),
		nsGens:  cache.New[string, uint64](capacity),
		ttl:     ttl,
		now:     time.Now,
	}
}

func fullKey(ns, key string) string { return ns + "\x00" + key }

func (c *Cache) gens(ns, fk string) (uint64, uint64) {
	kg, _ := c.keyGens.Get(fk)
	ng, _ := c.nsGens.Get(ns)
	return kg, ng
}

// Get returns the cached value for (ns, key) or runs load once for all
// concurrent callers and caches its result.  Errors are never cached.
func Get[T any](ctx context.Context, c *Cache, ns, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if ttl <= 0 {
		ttl = c.ttl
	}
	fk := fullKey(ns, key)
	kg, ng := c.gens(ns, fk)

	if e, ok := c.entries.Get(fk); ok && e.keyGen == kg && e.nsGen == ng && c.now().Before(e.exp) {
		if v, ok := e.val.(T); ok {
			metrics.QueryCacheLookupsTotal.WithLabelValues("hit").Inc()
			return v, nil
		}
	}

	flightKey := fmt.Sprintf("%s\x00%d\x00%d", fk, kg, ng)
	v, err, shared := c.sfg.Do(flightKey, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if k2, n2 := c.gens(ns, fk); k2 == kg && n2 == ng {
			c.entries.Add(fk, entry{val: val, exp: c.now().Add(ttl), keyGen: kg, nsGen: ng})
		}
		return val, nil
	})
	if shared {
		metrics.QueryCacheLookupsTotal.WithLabelValues("shared").Inc()
	} else {
		metrics.QueryCacheLookupsTotal.WithLabelValues("miss").Inc()
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops one entry so the next Get reloads it.
func (c *Cache) Invalidate(ns, key string) {
	fk := fullKey(ns, key)
	g, _ := c.keyGens.Get(fk)
	c.keyGens.Add(fk, g+1)
	c.entries.Remove(fk)
}

// Clear drops every entry of a namespace.  The generation bump only fences
// loads already in flight; the entries themselves are removed.
func (c *Cache) Clear(ns string) {
	g, _ := c.nsGens.Get(ns)
	c.nsGens.Add(ns, g+1)
	prefix := ns + "\x00"
	c.entries.RemoveFunc(func(fk string) bool { return strings.HasPrefix(fk, prefix) })
}
