package serial

import (
	"fmt"
	"time"

	"github.com/luhtfiimanal/go-serial-framer/logger"
)

// DefaultPollInterval is the minimum time between two transport drains.
const DefaultPollInterval = time.Millisecond

type framerConfig struct {
	delimiter    byte
	hasDelimiter bool

	initialCap int
	increment  int
	alloc      Allocator

	pollInterval time.Duration
	now          func() time.Time

	queueSize int

	logger logger.Logger
}

func defaultFramerConfig() *framerConfig {
	return &framerConfig{
		initialCap:   DefaultInitialCapacity,
		increment:    DefaultGrowthIncrement,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
		logger:       logger.GetLogger(),
	}
}

// Option is a functional option for configuring a FramedQueue.
type Option interface {
	apply(*framerConfig) error
}

type optFunc func(*framerConfig) error

func (f optFunc) apply(cfg *framerConfig) error { return f(cfg) }

// WithDelimiter enables framing on b from construction on.
func WithDelimiter(b byte) Option {
	return optFunc(func(cfg *framerConfig) error {
		cfg.delimiter = b
		cfg.hasDelimiter = true
		return nil
	})
}

// WithInitialCapacity sets the accumulator capacity before any growth.
func WithInitialCapacity(n int) Option {
	return optFunc(func(cfg *framerConfig) error {
		if n <= 0 {
			return fmt.Errorf("%w: initial capacity %d must be positive", ErrInvalidConfig, n)
		}
		cfg.initialCap = n
		return nil
	})
}

// WithGrowthIncrement sets how much capacity each accumulator growth adds.
func WithGrowthIncrement(n int) Option {
	return optFunc(func(cfg *framerConfig) error {
		if n <= 0 {
			return fmt.Errorf("%w: growth increment %d must be positive", ErrInvalidConfig, n)
		}
		cfg.increment = n
		return nil
	})
}

// WithAllocator replaces the allocator used for accumulator growth and for
// message copies.
func WithAllocator(a Allocator) Option {
	return optFunc(func(cfg *framerConfig) error {
		cfg.alloc = a
		return nil
	})
}

// WithPollInterval sets the minimum time between two transport drains.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *framerConfig) error {
		if d <= 0 {
			return fmt.Errorf("%w: poll interval %v must be positive", ErrInvalidConfig, d)
		}
		cfg.pollInterval = d
		return nil
	})
}

// WithClock replaces time.Now for the poll throttle.
func WithClock(now func() time.Time) Option {
	return optFunc(func(cfg *framerConfig) error {
		if now == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidConfig)
		}
		cfg.now = now
		return nil
	})
}

// WithQueueSize preallocates room for n completed messages. The queue still
// grows past n.
func WithQueueSize(n int) Option {
	return optFunc(func(cfg *framerConfig) error {
		if n < 0 {
			return fmt.Errorf("%w: queue size %d must not be negative", ErrInvalidConfig, n)
		}
		cfg.queueSize = n
		return nil
	})
}

// WithLogger sets the logger. A nil l keeps the package default.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *framerConfig) error {
		if l != nil {
			cfg.logger = l
		}
		return nil
	})
}
