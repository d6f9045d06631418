package cache

import (
	"fmt"
	"os"
	"time"
)

type entry[T any] struct {
	Value     T
	ExpiresAt time.Time
}

// Expiring is a [Store] whose values go stale after a TTL.
type Expiring[T any] struct {
	store *Store[entry[T]]
	ttl   time.Duration
	now   func() time.Time
}

// NewExpiring creates an expiring cache of kind under baseDir.
func NewExpiring[T any](baseDir string, kind Kind, ttl time.Duration) (*Expiring[T], error) {
	store, err := New[entry[T]](baseDir, kind)
	if err != nil {
		return nil, fmt.Errorf("create expiring cache: %w", err)
	}
	return &Expiring[T]{store: store, ttl: ttl, now: time.Now}, nil
}

// Get returns the value under key. Expired values are removed and reported
// as [os.ErrNotExist].
func (c *Expiring[T]) Get(key string) (T, error) {
	var zero T
	e, err := c.store.Get(key)
	if err != nil {
		return zero, err
	}
	if !c.now().Before(e.ExpiresAt) {
		if err := c.store.Delete(key); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("get: %s expired: %w", key, os.ErrNotExist)
	}
	return e.Value, nil
}

// Put stores v under key until the TTL elapses.
func (c *Expiring[T]) Put(key string, v T) error {
	return c.store.Put(key, entry[T]{Value: v, ExpiresAt: c.now().Add(c.ttl)})
}

// Delete removes key.
func (c *Expiring[T]) Delete(key string) error {
	return c.store.Delete(key)
}
