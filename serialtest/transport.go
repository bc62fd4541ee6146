// Package serialtest provides an in-memory serial.Transport for tests and
// host-side simulations.
package serialtest

import (
	"errors"
	"sync"
)

// ErrNoData is returned by ReadByte when it is called with nothing buffered.
var ErrNoData = errors.New("serialtest: read with no data available")

// Transport is an in-memory serial.Transport. Bytes given to Feed become
// readable; bytes written by the framer are collected and returned by Written.
//
// It is safe for concurrent use, so a test may Feed from one goroutine while
// another services the framer.
type Transport struct {
	mu sync.Mutex

	rx      []byte
	written []byte

	beginRate  int
	beginCalls int

	availableCalls int
	readCalls      int

	beginErr     error
	availableErr error
	readErr      error
	writeErr     error
	writeLimit   int
}

// New returns an empty Transport.
func New() *Transport {
	return &Transport{writeLimit: -1}
}

// Feed appends p to the bytes waiting to be read.
func (t *Transport) Feed(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rx = append(t.rx, p...)
}

// FeedString is Feed for a string.
func (t *Transport) FeedString(s string) {
	t.Feed([]byte(s))
}

// Unread returns the number of fed bytes not read yet.
func (t *Transport) Unread() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rx)
}

// Written returns a copy of every byte written so far.
func (t *Transport) Written() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.written...)
}

// BeginRate returns the rate passed to the last Begin call and the number of calls.
func (t *Transport) BeginRate() (rate, calls int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.beginRate, t.beginCalls
}

// AvailableCalls returns how many times Available was called.
func (t *Transport) AvailableCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.availableCalls
}

// ReadCalls returns how many times ReadByte was called.
func (t *Transport) ReadCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readCalls
}

// FailBegin makes Begin return err.
func (t *Transport) FailBegin(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.beginErr = err
}

// FailAvailable makes Available return err. A nil err clears the failure.
func (t *Transport) FailAvailable(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.availableErr = err
}

// FailRead makes ReadByte return err. A nil err clears the failure.
func (t *Transport) FailRead(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readErr = err
}

// FailWriteAfter makes WriteByte return err once n more bytes were written.
func (t *Transport) FailWriteAfter(n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeLimit = len(t.written) + n
	t.writeErr = err
}

func (t *Transport) Begin(rate int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.beginCalls++
	if t.beginErr != nil {
		return t.beginErr
	}
	t.beginRate = rate
	return nil
}

func (t *Transport) Available() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.availableCalls++
	if t.availableErr != nil {
		return 0, t.availableErr
	}
	return len(t.rx), nil
}

func (t *Transport) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readCalls++
	if t.readErr != nil {
		return 0, t.readErr
	}
	if len(t.rx) == 0 {
		return 0, ErrNoData
	}
	b := t.rx[0]
	t.rx = t.rx[1:]
	return b, nil
}

func (t *Transport) WriteByte(b byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeLimit >= 0 && len(t.written) >= t.writeLimit {
		return t.writeErr
	}
	t.written = append(t.written, b)
	return nil
}
