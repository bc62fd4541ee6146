// Package queue provides the FIFO used to hold completed messages.
package queue

// Queue is a first-in first-out container.
//
// Implementations are not safe for concurrent use.
type Queue[T any] interface {
	// Enqueue adds an item to the tail of the queue.
	Enqueue(item T)
	// Dequeue removes and returns the item at the head of the queue.
	// ok is false when the queue is empty.
	Dequeue() (item T, ok bool)
	// Peek returns the item at the head of the queue without removing it.
	Peek() (item T, ok bool)
	// Reset drops every item.
	Reset()
	// IsEmpty returns true if the queue is empty, false otherwise.
	IsEmpty() bool
	// Length returns the number of items in the queue.
	Length() int
}
