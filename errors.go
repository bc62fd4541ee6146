package serial

import "errors"

var (
	// ErrAllocation is returned when the accumulator cannot grow its buffer.
	// The accumulator is left exactly as it was before the failed call.
	ErrAllocation = errors.New("serial: buffer allocation failed")

	// ErrClosed is returned by operations on a closed Port or FramedQueue.
	ErrClosed = errors.New("serial: closed")

	// ErrUnsupportedBaud is returned by Port.Begin for rates termios cannot express.
	ErrUnsupportedBaud = errors.New("serial: unsupported baud rate")

	// ErrInvalidDelimiter is returned when a configured delimiter is not exactly one byte.
	ErrInvalidDelimiter = errors.New("serial: delimiter must be exactly one byte")

	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("serial: invalid config")
)
