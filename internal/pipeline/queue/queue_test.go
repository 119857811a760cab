package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int](0, 8)

	for i := 0; i < 8; i++ {
		require.True(t, q.TryPush(i))
	}
	for i := 0; i < 8; i++ {
		item, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, item)
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueueBackpressure(t *testing.T) {
	const capacity = 4
	q := New[int](0, capacity)

	// Exactly C pushes succeed, the C+1-th fails.
	for i := 0; i < capacity; i++ {
		assert.True(t, q.TryPush(i))
	}
	assert.False(t, q.TryPush(capacity))
	assert.Equal(t, capacity, q.Len())

	// WaitAndPush for the C+1-th item blocks until a pop frees a slot.
	pushed := make(chan bool)
	go func() {
		pushed <- q.WaitAndPush(capacity)
	}()

	select {
	case <-pushed:
		t.Fatal("WaitAndPush returned while queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	item, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 0, item)
	assert.True(t, <-pushed)
}

func TestQueueCloseUnblocksWaiters(t *testing.T) {
	q := New[int](0, 1)
	require.True(t, q.TryPush(0))

	const waiters = 4
	results := make(chan bool, 2*waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			results <- q.WaitAndPush(1)
		}()
		go func() {
			_, ok := q.WaitAndPop()
			results <- ok
		}()
	}

	// Let every goroutine reach its wait.
	time.Sleep(20 * time.Millisecond)
	q.Close()

	popSuccesses := 0
	for i := 0; i < 2*waiters; i++ {
		select {
		case ok := <-results:
			if ok {
				popSuccesses++
			}
		case <-time.After(time.Second):
			t.Fatal("waiter still blocked after Close")
		}
	}
	// The single buffered item is drained by exactly one popper; every
	// push and every other pop observes failure.
	assert.Equal(t, 1, popSuccesses)
}

func TestQueueCloseIdempotent(t *testing.T) {
	q := New[int](0, 2)
	q.Close()
	q.Close()
	assert.True(t, q.Closed())
	assert.False(t, q.TryPush(1))
	assert.False(t, q.WaitAndPush(1))
}

func TestQueueDrainAfterClose(t *testing.T) {
	q := New[int](0, 4)
	require.True(t, q.TryPush(1))
	require.True(t, q.TryPush(2))
	q.Close()

	// Pushes fail, but buffered items drain in order.
	assert.False(t, q.TryPush(3))
	item, ok := q.WaitAndPop()
	require.True(t, ok)
	assert.Equal(t, 1, item)
	item, ok = q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 2, item)

	_, ok = q.WaitAndPop()
	assert.False(t, ok)
}

func TestQueueWriterRefcount(t *testing.T) {
	q := New[int](0, 2)
	q.AddWriter()
	q.AddWriter()

	q.DetachWriter()
	assert.False(t, q.Closed(), "queue closed before last writer detached")

	q.DetachWriter()
	assert.True(t, q.Closed())
}

func TestQueueConcurrentProducersConsumers(t *testing.T) {
	const (
		producers      = 4
		itemsPerWorker = 250
	)
	q := New[int](0, 8)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < itemsPerWorker; i++ {
				require.True(t, q.WaitAndPush(base+i))
			}
		}(p * itemsPerWorker)
	}
	go func() {
		wg.Wait()
		q.Close()
	}()

	seen := make(map[int]bool)
	var mu sync.Mutex
	var cg sync.WaitGroup
	for c := 0; c < producers; c++ {
		cg.Add(1)
		go func() {
			defer cg.Done()
			for {
				item, ok := q.WaitAndPop()
				if !ok {
					return
				}
				mu.Lock()
				assert.False(t, seen[item], "item %d delivered twice", item)
				seen[item] = true
				mu.Unlock()
			}
		}()
	}
	cg.Wait()

	assert.Len(t, seen, producers*itemsPerWorker)
}
