package serial

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/luhtfiimanal/go-serial-framer/logger"
)

// Port is a Linux serial device in raw 8N1 mode. It implements Transport.
//
// Close may be called from any goroutine; the other methods belong to the
// goroutine driving the FramedQueue.
type Port struct {
	fd        int
	file      *os.File
	device    string
	done      chan struct{}
	closeOnce sync.Once
	logger    logger.Logger
}

var _ Transport = (*Port)(nil)

// OpenPort opens device and configures it for raw, unbuffered operation.
// The baud rate is applied later by Begin.
func OpenPort(device string) (*Port, error) {
	fd, err := syscall.Open(device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	// Reads are only issued after TIOCINQ reported data, so VMIN=1 never blocks
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Turn back into blocking mode now that config is done
	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	p := &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), device),
		device: device,
		done:   make(chan struct{}),
		logger: logger.With("device", device),
	}
	p.logger.Debug("port opened")

	return p, nil
}

// Device returns the path the port was opened with.
func (p *Port) Device() string {
	return p.device
}

// Begin sets the line speed.
func (p *Port) Begin(rate int) error {
	if p.isClosed() {
		return ErrClosed
	}

	baud, ok := baudToUnix(rate)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaud, rate)
	}

	termios, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud
	termios.Ispeed = baud
	termios.Ospeed = baud
	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	p.logger.Debug("baud rate set", "baud", rate)

	return nil
}

// Available returns the number of bytes waiting in the input queue.
func (p *Port) Available() (int, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}

	n, err := unix.IoctlGetInt(p.fd, unix.TIOCINQ)
	if err != nil {
		return 0, fmt.Errorf("input queue size: %w", err)
	}
	return n, nil
}

// ReadByte reads one byte from the port.
func (p *Port) ReadByte() (byte, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}

	var b [1]byte
	if _, err := p.file.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteByte writes one byte to the port.
func (p *Port) WriteByte(c byte) error {
	if p.isClosed() {
		return ErrClosed
	}

	_, err := p.file.Write([]byte{c})
	return err
}

// Close closes the serial port.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.file.Close()
		p.logger.Debug("port closed")
	})
	return err
}

func (p *Port) isClosed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Open opens cfg.Device and returns a FramedQueue over it configured from cfg.
// opts are applied after the options derived from cfg. Closing the returned
// FramedQueue closes the port.
func Open(cfg Config, opts ...Option) (*FramedQueue, error) {
	cfgOpts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	port, err := OpenPort(cfg.Device)
	if err != nil {
		return nil, err
	}

	q, err := New(port, cfg.BaudRate, append(cfgOpts, opts...)...)
	if err != nil {
		port.Close()
		return nil, err
	}
	q.owned = port

	return q, nil
}

func baudToUnix(baud int) (uint32, bool) {
	switch baud {
	case 1200:
		return unix.B1200, true
	case 2400:
		return unix.B2400, true
	case 4800:
		return unix.B4800, true
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	case 460800:
		return unix.B460800, true
	case 921600:
		return unix.B921600, true
	default:
		return 0, false
	}
}
