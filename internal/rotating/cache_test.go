package rotating_test

import (
	"sync"
	"testing"

	"git.netflux.io/rob/backdrop/internal/rotating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheBound(t *testing.T) {
	for _, capacity := range []int{1, 2, 5, 30} {
		c := rotating.New[int](capacity)
		total := capacity + 7

		for i := range total {
			c.Push(i)
			require.LessOrEqual(t, c.Len(), capacity)
		}

		var want []int
		for i := total - capacity; i < total; i++ {
			want = append(want, i)
		}
		assert.Equal(t, want, c.Snapshot(), "capacity %d", capacity)
	}
}

func TestCacheTakeAndMaybeRequeue(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		c := rotating.New[string](3)
		got, ok := c.TakeAndMaybeRequeue(0)
		assert.False(t, ok)
		assert.Empty(t, got)
	})

	t.Run("requeues when free capacity exceeds low-water mark", func(t *testing.T) {
		c := rotating.New[string](5)
		c.Push("a")
		c.Push("b")

		got, ok := c.TakeAndMaybeRequeue(1)
		require.True(t, ok)
		assert.Equal(t, "a", got)
		assert.Equal(t, []string{"b", "a"}, c.Snapshot())
	})

	t.Run("retires when the cache is nearly full", func(t *testing.T) {
		c := rotating.New[string](3)
		c.Push("a")
		c.Push("b")
		c.Push("c")

		got, ok := c.TakeAndMaybeRequeue(1)
		require.True(t, ok)
		assert.Equal(t, "a", got)
		assert.Equal(t, []string{"b", "c"}, c.Snapshot())
	})
}

func TestCacheRequeueLowWaterBoundary(t *testing.T) {
	const (
		capacity     = 30
		lowWaterMark = 6
	)

	c := rotating.New[int](capacity)
	for i := range 25 {
		c.Push(i)
	}

	// 24 items remain after removal: free capacity is 6, which is not greater
	// than the low-water mark, so the item retires.
	got, ok := c.TakeAndMaybeRequeue(lowWaterMark)
	require.True(t, ok)
	assert.Equal(t, 0, got)
	assert.Equal(t, 24, c.Len())
	assert.NotContains(t, c.Snapshot(), 0)

	// 23 items remain after removal: free capacity is 7, so the item is
	// requeued at the tail.
	got, ok = c.TakeAndMaybeRequeue(lowWaterMark)
	require.True(t, ok)
	assert.Equal(t, 1, got)
	assert.Equal(t, 24, c.Len())
	snapshot := c.Snapshot()
	assert.Equal(t, 1, snapshot[len(snapshot)-1])
}

func TestCacheClear(t *testing.T) {
	c := rotating.New[int](4)
	for i := range 6 {
		c.Push(i)
	}

	taken, ok := c.TakeAndMaybeRequeue(0)
	require.True(t, ok)
	assert.Equal(t, 2, taken)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Snapshot())
	assert.Equal(t, 4, c.Cap())

	_, ok = c.TakeAndMaybeRequeue(0)
	assert.False(t, ok)

	c.Push(10)
	assert.Equal(t, []int{10}, c.Snapshot())
}

func TestCacheNewPanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { rotating.New[int](0) })
}

func TestCacheConcurrentWriterAndReader(t *testing.T) {
	c := rotating.New[int](16)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			c.Push(i)
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			c.TakeAndMaybeRequeue(4)
		}
	}()
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}
