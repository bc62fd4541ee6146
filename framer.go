package serial

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/luhtfiimanal/go-serial-framer/internal/queue"
	"github.com/luhtfiimanal/go-serial-framer/logger"
)

// FramedQueue splits the byte stream of a Transport into messages on a
// delimiter byte and queues the completed messages for retrieval.
//
// A FramedQueue is driven by a single goroutine: Service, GetMessage, Send and
// the other methods must not be called concurrently. Only Metrics may be read
// from elsewhere.
type FramedQueue struct {
	transport Transport
	owned     io.Closer // closed by Close when the framer opened the transport itself

	delimiter    byte
	hasDelimiter bool

	acc   *Accumulator
	queue queue.Queue[[]byte]

	// held is a byte already read from the transport that could not be
	// processed because of an allocation failure.
	held    byte
	holding bool

	pollInterval time.Duration
	now          func() time.Time
	lastPoll     time.Time

	metrics *Metrics
	logger  logger.Logger

	closed    bool
	closeOnce sync.Once
}

// New creates a FramedQueue over t and calls t.Begin(rate).
//
// Without WithDelimiter no framing happens until SetDelimiter is called;
// bytes accumulate until ClearAccumulator.
func New(t Transport, rate int, opts ...Option) (*FramedQueue, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidConfig)
	}

	cfg := defaultFramerConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	acc, err := NewAccumulator(cfg.initialCap, cfg.increment, cfg.alloc)
	if err != nil {
		return nil, err
	}

	if err := t.Begin(rate); err != nil {
		return nil, fmt.Errorf("begin transport at %d: %w", rate, err)
	}

	q := &FramedQueue{
		transport:    t,
		delimiter:    cfg.delimiter,
		hasDelimiter: cfg.hasDelimiter,
		acc:          acc,
		queue:        queue.NewSliceQueue[[]byte](cfg.queueSize),
		pollInterval: cfg.pollInterval,
		now:          cfg.now,
		metrics:      &Metrics{},
		logger:       cfg.logger,
	}
	q.lastPoll = q.now()

	return q, nil
}

// SetDelimiter enables framing on b, replacing any previous delimiter.
func (q *FramedQueue) SetDelimiter(b byte) {
	q.delimiter = b
	q.hasDelimiter = true
}

// ClearDelimiter disables framing. Bytes received afterwards only accumulate.
func (q *FramedQueue) ClearDelimiter() {
	q.delimiter = 0
	q.hasDelimiter = false
}

// Delimiter returns the delimiter byte and whether framing is enabled.
func (q *FramedQueue) Delimiter() (byte, bool) {
	return q.delimiter, q.hasDelimiter
}

// Service drains every byte the transport currently has available.
//
// Calls closer together than the poll interval return immediately without
// touching the transport. Service never waits for bytes to arrive.
//
// An allocation failure aborts the drain and is returned wrapping
// ErrAllocation; the byte being processed is kept and retried first on the
// next drain, and unread bytes stay in the transport. Transport errors abort
// the drain and are returned wrapped.
func (q *FramedQueue) Service() error {
	if q.closed {
		return ErrClosed
	}

	now := q.now()
	if now.Sub(q.lastPoll) < q.pollInterval {
		q.metrics.incThrottledPollCount()
		return nil
	}

	return q.poll(now)
}

// poll drains the transport and records now as the time of the last poll.
func (q *FramedQueue) poll(now time.Time) error {
	q.lastPoll = now
	q.metrics.incPollCount()

	if q.holding {
		if err := q.process(q.held); err != nil {
			return err
		}
		q.holding = false
	}

	for {
		n, err := q.transport.Available()
		if err != nil {
			q.logger.Error("transport available failed", "error", err)
			return fmt.Errorf("transport available: %w", err)
		}
		if n <= 0 {
			return nil
		}

		b, err := q.transport.ReadByte()
		if err != nil {
			q.logger.Error("transport read failed", "error", err)
			return fmt.Errorf("transport read: %w", err)
		}
		q.metrics.incBytesRecvCount()

		if err := q.process(b); err != nil {
			q.held = b
			q.holding = true
			return err
		}
	}
}

func (q *FramedQueue) process(b byte) error {
	if q.hasDelimiter && b == q.delimiter {
		msg, err := q.acc.Finalize()
		if err != nil {
			q.metrics.incGrowFailCount()
			q.logger.Warn("finalize message failed", "pending", q.acc.Len(), "error", err)
			return err
		}
		q.queue.Enqueue(msg)
		q.metrics.incMsgFramedCount()
		q.logger.Debug("message framed", "len", len(msg), "queued", q.queue.Length())

		return nil
	}

	if err := q.acc.Append(b); err != nil {
		q.metrics.incGrowFailCount()
		q.logger.Warn("append byte failed", "pending", q.acc.Len(), "capacity", q.acc.Cap(), "error", err)
		return err
	}

	return nil
}

// GetMessage removes and returns the oldest completed message. ok is false
// when no message is queued.
//
// The caller owns the returned slice; the FramedQueue keeps no reference to it.
func (q *FramedQueue) GetMessage() (msg []byte, ok bool) {
	msg, ok = q.queue.Dequeue()
	if ok {
		q.metrics.incMsgRetrievedCount()
	}
	return msg, ok
}

// QueueSize returns the number of completed messages waiting to be retrieved.
func (q *FramedQueue) QueueSize() int {
	return q.queue.Length()
}

// Pending returns the number of bytes received since the last delimiter,
// including a byte held back by a failed allocation.
func (q *FramedQueue) Pending() int {
	n := q.acc.Len()
	if q.holding && !(q.hasDelimiter && q.held == q.delimiter) {
		n++
	}
	return n
}

// ClearAccumulator drops the partially received message. Queued messages are
// not affected.
func (q *FramedQueue) ClearAccumulator() {
	q.acc.Reset()
	q.holding = false
}

// Send writes p to the transport one byte at a time. No framing is applied.
// It stops at the first transport error.
func (q *FramedQueue) Send(p []byte) error {
	if q.closed {
		return ErrClosed
	}

	for i, b := range p {
		if err := q.transport.WriteByte(b); err != nil {
			q.logger.Error("transport write failed", "written", i, "total", len(p), "error", err)
			return fmt.Errorf("transport write after %d of %d bytes: %w", i, len(p), err)
		}
		q.metrics.incBytesSendCount()
	}

	return nil
}

// Metrics returns the counters of q.
func (q *FramedQueue) Metrics() *Metrics {
	return q.metrics
}

// Loop drains q and hands every completed message to onMessage until ctx is
// done. It runs in the calling goroutine and waits one full poll interval
// after each drain, so it never trips the Service throttle. It returns nil
// when ctx is done, or the first drain error.
func (q *FramedQueue) Loop(ctx context.Context, onMessage func(msg []byte)) error {
	timer := time.NewTimer(q.pollInterval)
	defer timer.Stop()

	for {
		if q.closed {
			return ErrClosed
		}
		if err := q.poll(q.now()); err != nil {
			return err
		}
		for {
			msg, ok := q.GetMessage()
			if !ok {
				break
			}
			onMessage(msg)
		}

		timer.Reset(q.pollInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Close releases the accumulator and every message still queued. If the
// FramedQueue was created by Open, the port is closed as well.
// Safe to call multiple times; subsequent calls are no-ops.
func (q *FramedQueue) Close() error {
	var err error
	q.closeOnce.Do(func() {
		q.closed = true
		if n := q.queue.Length(); n > 0 {
			q.metrics.addMsgDroppedCount(n)
			q.logger.Debug("dropping queued messages", "count", n)
		}
		q.queue.Reset()
		q.acc.Reset()
		q.holding = false
		if q.owned != nil {
			err = q.owned.Close()
		}
	})
	return err
}
