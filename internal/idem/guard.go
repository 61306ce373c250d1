// Package idem guards form submissions against double submits.
//
// Every rendered mutation form carries a hidden idempotency key.  Guard.Do
// runs the mutation once per key: concurrent duplicates share the in-flight
// result, and duplicates arriving later within the TTL get the recorded
// result back without executing the mutation again.
package idem

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/recipebox/internal/cache"
	"github.com/yanizio/recipebox/internal/metrics"
)

const (
	// FieldName is the hidden form field carrying the key.
	FieldName = "idempotency_key"

	// DefaultTTL covers a slow double click as well as a reload of the
	// POST response.
	DefaultTTL = 10 * time.Minute
)

// NewKey returns a fresh random key for a form render.
func NewKey() string { return uuid.NewString() }

// Valid reports whether key looks like one NewKey produced.
func Valid(key string) bool {
	_, err := uuid.Parse(key)
	return err == nil
}

type record struct {
	val any
	exp time.Time
}

type Guard struct {
	sfg  singleflight.Group
	done *cache.LRU[string, record]
	ttl  time.Duration
	now  func() time.Time
}

// New returns a guard remembering up to capacity successful results for ttl.
func New(capacity int, ttl time.Duration) *Guard {
	if capacity < 1 {
		capacity = 1
	}
	return &Guard{
		done: cache.New[string, record](capacity),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Do executes fn at most once per key.  replayed is true when the result
// came from another caller's execution.  Failed executions are not recorded,
// so a later retry with the same key runs fn again.  An empty key disables
// the guard.
func (g *Guard) Do(key string, fn func() (any, error)) (val any, replayed bool, err error) {
	if key == "" {
		val, err = fn()
		return val, false, err
	}
	if rec, ok := g.done.Get(key); ok && g.now().Before(rec.exp) {
		metrics.IdempotentReplaysTotal.Inc()
		return rec.val, true, nil
	}

	executed := false
	val, err, _ = g.sfg.Do(key, func() (any, error) {
		executed = true
		v, err := fn()
		if err == nil {
			g.done.Add(key, record{val: v, exp: g.now().Add(g.ttl)})
		}
		return v, err
	})
	if !executed {
		metrics.IdempotentReplaysTotal.Inc()
	}
	return val, !executed, err
}
