package queue

// sliceQueue implements the Queue interface using a slice.
type sliceQueue[T any] struct {
	items []T
	head  int
}

// NewSliceQueue creates a new slice backed queue with room for prealloc items.
func NewSliceQueue[T any](prealloc int) Queue[T] {
	if prealloc < 0 {
		prealloc = 0
	}
	return &sliceQueue[T]{items: make([]T, 0, prealloc)}
}

// Enqueue adds an item to the tail of the queue.
func (q *sliceQueue[T]) Enqueue(item T) {
	// reclaim the consumed prefix once it dominates the backing array
	if q.head > 0 && q.head >= len(q.items)/2 {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.items = append(q.items, item)
}

// Dequeue removes and returns the item at the head of the queue.
// The queue drops its reference to the returned item.
func (q *sliceQueue[T]) Dequeue() (T, bool) {
	var zero T
	if q.head == len(q.items) {
		return zero, false
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}

	return item, true
}

// Peek returns the item at the head of the queue without removing it.
func (q *sliceQueue[T]) Peek() (T, bool) {
	if q.head == len(q.items) {
		var zero T
		return zero, false
	}
	return q.items[q.head], true
}

// Reset resets the queue to an empty state, releasing every item.
func (q *sliceQueue[T]) Reset() {
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
}

// IsEmpty returns true if the queue is empty, false otherwise.
func (q *sliceQueue[T]) IsEmpty() bool {
	return q.head == len(q.items)
}

// Length returns the number of items in the queue.
func (q *sliceQueue[T]) Length() int {
	return len(q.items) - q.head
}
