package serial

import "fmt"

const (
	// DefaultInitialCapacity is the accumulator capacity before any growth.
	DefaultInitialCapacity = 10
	// DefaultGrowthIncrement is how many bytes of capacity each growth adds.
	DefaultGrowthIncrement = 10
)

// Allocator returns a zero-length slice with capacity of at least size.
// A non-nil error means the allocation could not be satisfied.
type Allocator func(size int) ([]byte, error)

func defaultAllocator(size int) ([]byte, error) {
	return make([]byte, 0, size), nil
}

// Accumulator collects the bytes of the message currently being received.
//
// Capacity grows in fixed increments and never shrinks. A failed growth
// leaves the buffered bytes untouched.
type Accumulator struct {
	buf       []byte
	increment int
	alloc     Allocator
}

// NewAccumulator creates an accumulator with the given initial capacity and
// growth increment. Non-positive values select the defaults and a nil alloc
// uses make.
func NewAccumulator(initialCap, increment int, alloc Allocator) (*Accumulator, error) {
	if initialCap <= 0 {
		initialCap = DefaultInitialCapacity
	}
	if increment <= 0 {
		increment = DefaultGrowthIncrement
	}
	if alloc == nil {
		alloc = defaultAllocator
	}

	buf, err := alloc(initialCap)
	if err != nil {
		return nil, fmt.Errorf("%w: initial capacity %d: %w", ErrAllocation, initialCap, err)
	}

	return &Accumulator{buf: buf[:0], increment: increment, alloc: alloc}, nil
}

// Append stores b at the end of the buffer, growing it first when full.
func (a *Accumulator) Append(b byte) error {
	if len(a.buf) == cap(a.buf) {
		if err := a.grow(); err != nil {
			return err
		}
	}
	a.buf = append(a.buf, b)

	return nil
}

func (a *Accumulator) grow() error {
	size := cap(a.buf) + a.increment
	buf, err := a.alloc(size)
	if err != nil {
		return fmt.Errorf("%w: grow to %d: %w", ErrAllocation, size, err)
	}
	if cap(buf) < size {
		return fmt.Errorf("%w: grow to %d: got capacity %d", ErrAllocation, size, cap(buf))
	}
	a.buf = append(buf[:0], a.buf...)

	return nil
}

// Finalize returns an independent copy of the buffered bytes and empties the
// buffer. The caller owns the returned slice. An empty buffer yields an empty,
// non-nil slice.
//
// If the copy cannot be allocated the buffer is not reset.
func (a *Accumulator) Finalize() ([]byte, error) {
	msg, err := a.alloc(len(a.buf))
	if err != nil {
		return nil, fmt.Errorf("%w: finalize %d bytes: %w", ErrAllocation, len(a.buf), err)
	}
	if cap(msg) < len(a.buf) {
		return nil, fmt.Errorf("%w: finalize %d bytes: got capacity %d", ErrAllocation, len(a.buf), cap(msg))
	}
	if msg == nil {
		msg = []byte{}
	}
	msg = append(msg[:0], a.buf...)
	a.buf = a.buf[:0]

	return msg, nil
}

// Reset discards the buffered bytes and keeps the capacity.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Cap returns the allocated capacity.
func (a *Accumulator) Cap() int {
	return cap(a.buf)
}

// Bytes returns a view of the buffered bytes. It is only valid until the next
// call that modifies the accumulator.
func (a *Accumulator) Bytes() []byte {
	return a.buf
}
