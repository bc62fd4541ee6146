package serial

import (
	"sync/atomic"
)

// Metrics contains atomic counters for a FramedQueue.
// They may be read from any goroutine while the framer is being serviced.
type Metrics struct {
	// BytesRecvCount indicates the number of bytes read from the transport.
	BytesRecvCount atomic.Uint64
	// BytesSendCount indicates the number of bytes written to the transport.
	BytesSendCount atomic.Uint64

	// MsgFramedCount indicates the number of messages completed by a delimiter.
	MsgFramedCount atomic.Uint64
	// MsgRetrievedCount indicates the number of messages handed to callers.
	MsgRetrievedCount atomic.Uint64
	// MsgDroppedCount indicates the number of queued messages released by Close.
	MsgDroppedCount atomic.Uint64

	// GrowFailCount indicates the number of failed buffer allocations.
	GrowFailCount atomic.Uint64

	// PollCount indicates the number of Service calls that drained the transport.
	PollCount atomic.Uint64
	// ThrottledPollCount indicates the number of Service calls skipped by the poll interval.
	ThrottledPollCount atomic.Uint64
}

func (m *Metrics) incBytesRecvCount() {
	m.BytesRecvCount.Add(1)
}

func (m *Metrics) incBytesSendCount() {
	m.BytesSendCount.Add(1)
}

func (m *Metrics) incMsgFramedCount() {
	m.MsgFramedCount.Add(1)
}

func (m *Metrics) incMsgRetrievedCount() {
	m.MsgRetrievedCount.Add(1)
}

func (m *Metrics) addMsgDroppedCount(n int) {
	m.MsgDroppedCount.Add(uint64(n))
}

func (m *Metrics) incGrowFailCount() {
	m.GrowFailCount.Add(1)
}

func (m *Metrics) incPollCount() {
	m.PollCount.Add(1)
}

func (m *Metrics) incThrottledPollCount() {
	m.ThrottledPollCount.Add(1)
}
