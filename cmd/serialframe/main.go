// serialframe reads delimiter-framed messages from one or more serial ports
// and prints each completed message on stdout.
//
// Ports come from a TOML file (--config) or from a single --device flag.
// With --send the given bytes are written to every port once after it is
// opened.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/pflag"

	serial "github.com/luhtfiimanal/go-serial-framer"
	"github.com/luhtfiimanal/go-serial-framer/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ports, err := resolvePorts(opts)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := xsync.NewMapOf[string, *serial.Metrics]()
	out := &lineWriter{w: stdout}

	var wg sync.WaitGroup
	errs := make(chan error, len(ports))
	for _, cfg := range ports {
		wg.Add(1)
		go func(cfg serial.Config) {
			defer wg.Done()
			if err := servePort(ctx, cfg, opts.send, registry, out); err != nil {
				errs <- fmt.Errorf("%s: %w", cfg.Device, err)
				stop()
			}
		}(cfg)
	}
	wg.Wait()
	close(errs)

	registry.Range(func(device string, m *serial.Metrics) bool {
		logger.Info("port stats",
			"device", device,
			"bytes_recv", m.BytesRecvCount.Load(),
			"bytes_sent", m.BytesSendCount.Load(),
			"messages", m.MsgFramedCount.Load(),
			"dropped", m.MsgDroppedCount.Load(),
			"grow_failures", m.GrowFailCount.Load(),
		)
		return true
	})

	var joined error
	for err := range errs {
		joined = errors.Join(joined, err)
	}
	return joined
}

// servePort owns one FramedQueue for the lifetime of ctx.
func servePort(ctx context.Context, cfg serial.Config, send []byte, registry *xsync.MapOf[string, *serial.Metrics], out *lineWriter) error {
	log := logger.With("device", cfg.Device)

	q, err := serial.Open(cfg, serial.WithLogger(log))
	if err != nil {
		return err
	}
	defer q.Close()
	registry.Store(cfg.Device, q.Metrics())

	log.Info("port opened", "baud", cfg.BaudRate, "framing", cfg.HasDelimiter, "delimiter", strconv.QuoteRune(rune(cfg.Delimiter)))

	if len(send) > 0 {
		if err := q.Send(send); err != nil {
			return err
		}
	}

	return q.Loop(ctx, func(msg []byte) {
		out.printf("%s: %q\n", cfg.Device, msg)
	})
}

// lineWriter serializes output from the per-port goroutines.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}
