package queue

import "sync"

// Queue is a bounded, closeable FIFO buffer of items.
//
// All operations are safe for concurrent use. The blocking variants
// suspend only the calling goroutine and are woken by pushes, pops and
// Close. Items pushed through the same queue instance are always popped
// in FIFO order.
type Queue[T any] struct {
	id int

	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf   []T
	head  int
	count int

	writers int
	closed  bool
}

// New creates a queue with the given id and capacity. Capacity values
// below 1 are raised to 1.
func New[T any](id, capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue[T]{
		id:  id,
		buf: make([]T, capacity),
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// ID returns the queue id assigned at assembly time.
func (q *Queue[T]) ID() int { return q.id }

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Closed reports whether the queue has been closed.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// TryPush enqueues the item if the queue is open and has capacity.
// It never blocks.
func (q *Queue[T]) TryPush(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.count == len(q.buf) {
		return false
	}
	q.push(item)
	return true
}

// WaitAndPush blocks until capacity is available or the queue is closed.
// It reports false, without enqueuing, if the queue was closed first.
func (q *Queue[T]) WaitAndPush(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && q.count == len(q.buf) {
		q.notFull.Wait()
	}
	if q.closed {
		return false
	}
	q.push(item)
	return true
}

// TryPop dequeues the oldest item if one is buffered. It never blocks.
// Buffered items remain poppable after a close so downstream groups can
// drain.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.pop(), true
}

// WaitAndPop blocks until an item is available or the queue is closed and
// empty. It reports false only when no item will ever arrive.
func (q *Queue[T]) WaitAndPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.pop(), true
}

// Close marks the queue closed and wakes every blocked waiter. It is
// idempotent and safe from any goroutine.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.close()
}

// AddWriter registers one producing thread group. While writers are
// attached, the queue closes for readers only after every writer has
// detached via DetachWriter.
func (q *Queue[T]) AddWriter() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.writers++
}

// DetachWriter detaches one producing thread group. The final detach
// closes the queue, which lets end-of-stream propagate downstream once
// all replicas feeding this queue have finished.
func (q *Queue[T]) DetachWriter() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.writers > 0 {
		q.writers--
	}
	if q.writers == 0 {
		q.close()
	}
}

func (q *Queue[T]) push(item T) {
	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++
	q.notEmpty.Signal()
}

func (q *Queue[T]) pop() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.notFull.Signal()
	return item
}

func (q *Queue[T]) close() {
	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}
