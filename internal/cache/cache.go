// Package cache holds keyed read-query results that mutations mark stale.
package cache

import (
	"context"
	"sync"
	"time"
)

// Key identifies a cached query, one per collection read.
type Key string

type entry struct {
	value     any
	loaded    bool
	stale     bool
	gen       uint64
	fetchedAt time.Time
	marks     int
}

// Client owns every cached query result.
type Client struct {
	mu      sync.Mutex
	entries map[Key]*entry
	now     func() time.Time
}

func New() *Client {
	return &Client{entries: map[Key]*entry{}, now: time.Now}
}

func (c *Client) entry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// Invalidate marks key stale so the next Get refetches.
func (c *Client) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.stale = true
	e.gen++
	e.marks++
}

// Invalidations counts how often key was marked stale.
func (c *Client) Invalidations(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.marks
	}
	return 0
}

// Stale reports whether key holds a value that must be refetched.
func (c *Client) Stale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.stale
}

// FetchedAt is when key was last loaded successfully; zero if never.
func (c *Client) FetchedAt(key Key) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.fetchedAt
	}
	return time.Time{}
}

// Query is a typed read bound to a key.
type Query[T any] struct {
	client *Client
	key    Key
	fetch  func(ctx context.Context) (T, error)
}

func NewQuery[T any](c *Client, key Key, fetch func(ctx context.Context) (T, error)) *Query[T] {
	return &Query[T]{client: c, key: key, fetch: fetch}
}

func (q *Query[T]) Key() Key { return q.key }

// Get returns the cached value, fetching when nothing is loaded or the value
// is stale. A failed fetch keeps the previous value and stale flag.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	c := q.client
	c.mu.Lock()
	e := c.entry(q.key)
	if e.loaded && !e.stale {
		v := e.value.(T)
		c.mu.Unlock()
		return v, nil
	}
	gen := e.gen
	c.mu.Unlock()

	v, err := q.fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e = c.entry(q.key)
	e.value = v
	e.loaded = true
	e.fetchedAt = c.now()
	// an Invalidate during the fetch keeps the entry stale
	if e.gen == gen {
		e.stale = false
	}
	return v, nil
}

// Peek returns the cached value without fetching.
func (q *Query[T]) Peek() (value T, loaded, stale bool) {
	c := q.client
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[q.key]
	if !ok || !e.loaded {
		return value, false, ok && e.stale
	}
	return e.value.(T), true, e.stale
}

// Invalidate marks the query's key stale.
func (q *Query[T]) Invalidate() { q.client.Invalidate(q.key) }
