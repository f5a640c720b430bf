// Package cache is a small LRU with per-entry TTL, used to keep advisor
// answers around so repeated handbook taps don't re-bill the AI endpoint.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

// LRU evicts by recency when full and by TTL on read.
type LRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	index   map[string]*list.Element
	order   *list.List
}

func NewLRU[T any](maxSize int, ttl time.Duration) *LRU[T] {
	return &LRU[T]{
		maxSize: maxSize,
		ttl:     ttl,
		index:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.index[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[T])
	if time.Now().After(e.expiresAt) {
		c.remove(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return e.value, true
}

func (c *LRU[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	if elem, ok := c.index[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}
	c.index[key] = c.order.PushFront(e)
	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.index[key]; ok {
		c.remove(elem)
	}
}

// Purge drops everything, used when the session changes.
func (c *LRU[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]*list.Element)
	c.order.Init()
}

func (c *LRU[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[T]) remove(elem *list.Element) {
	e := elem.Value.(*entry[T])
	delete(c.index, e.key)
	c.order.Remove(elem)
}
