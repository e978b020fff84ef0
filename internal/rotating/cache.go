// Package rotating provides a fixed-capacity FIFO cache which evicts the
// oldest item on overflow, and can rotate items from head to tail.
package rotating

import "sync"

// Cache is a fixed-capacity ring buffer.
//
// It is safe for one writer concurrent with one reader. All access is
// serialized on a single mutex.
type Cache[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
	size  int
}

// New returns an empty cache holding at most capacity items. It panics if
// capacity is less than 1.
func New[T any](capacity int) *Cache[T] {
	if capacity < 1 {
		panic("rotating: capacity must be at least 1")
	}

	return &Cache[T]{items: make([]T, capacity)}
}

// Push appends item at the tail, evicting the oldest item if the cache is
// full.
func (c *Cache[T]) Push(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.push(item)
}

func (c *Cache[T]) push(item T) {
	if c.size == len(c.items) {
		c.items[c.head] = item
		c.head = (c.head + 1) % len(c.items)
		return
	}

	c.items[(c.head+c.size)%len(c.items)] = item
	c.size++
}

// TakeAndMaybeRequeue removes and returns the oldest item. The item is
// re-appended at the tail only if the free capacity, measured after the
// removal, is greater than lowWaterMark. It returns false if the cache is
// empty.
func (c *Cache[T]) TakeAndMaybeRequeue(lowWaterMark int) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if c.size == 0 {
		return zero, false
	}

	item := c.items[c.head]
	c.items[c.head] = zero
	c.head = (c.head + 1) % len(c.items)
	c.size--

	if len(c.items)-c.size > lowWaterMark {
		c.push(item)
	}

	return item, true
}

// Len returns the number of items in the cache.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

// Cap returns the capacity of the cache.
func (c *Cache[T]) Cap() int {
	return len(c.items)
}

// Clear empties the cache.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.items)
	c.head = 0
	c.size = 0
}

// Snapshot returns a copy of the items, oldest first.
func (c *Cache[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]T, c.size)
	for i := range c.size {
		out[i] = c.items[(c.head+i)%len(c.items)]
	}
	return out
}
