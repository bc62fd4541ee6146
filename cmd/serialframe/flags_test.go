package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serial "github.com/luhtfiimanal/go-serial-framer"
)

func TestResolvePorts_ExampleConfig(t *testing.T) {
	opts, err := parseFlags([]string{"--config", "ex.config.toml"})
	require.NoError(t, err)

	ports, err := resolvePorts(opts)
	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.Equal(t, "info", opts.logLevel)

	assert.Equal(t, "/dev/ttyUSB0", ports[0].Device)
	assert.Equal(t, 115200, ports[0].BaudRate)
	assert.Equal(t, byte('\n'), ports[0].Delimiter)

	assert.Equal(t, "/dev/ttyACM0", ports[1].Device)
	assert.Equal(t, 9600, ports[1].BaudRate)
	assert.Equal(t, byte(3), ports[1].Delimiter)
	assert.Equal(t, 64, ports[1].InitialCapacity)
	assert.Equal(t, 32, ports[1].GrowthIncrement)
	assert.Equal(t, 2*time.Millisecond, ports[1].PollInterval)
}

func TestResolvePorts_FlagsOverrideConfig(t *testing.T) {
	opts, err := parseFlags([]string{"-c", "ex.config.toml", "--baud", "57600", "--delimiter", ";", "--log-level", "debug"})
	require.NoError(t, err)

	ports, err := resolvePorts(opts)
	require.NoError(t, err)
	assert.Equal(t, "debug", opts.logLevel)
	for _, p := range ports {
		assert.Equal(t, 57600, p.BaudRate)
		assert.Equal(t, byte(';'), p.Delimiter)
		assert.True(t, p.HasDelimiter)
	}
	assert.Equal(t, 2*time.Millisecond, ports[1].PollInterval, "unset flags keep file values")
}

func TestResolvePorts_SingleDevice(t *testing.T) {
	opts, err := parseFlags([]string{"--device", "/dev/ttyS0", "--delimiter-byte", "13", "--poll", "3ms", "--send", `hello\r\n`})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\r\n"), opts.send)

	ports, err := resolvePorts(opts)
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "/dev/ttyS0", ports[0].Device)
	assert.Equal(t, serial.DefaultBaudRate, ports[0].BaudRate)
	assert.Equal(t, byte('\r'), ports[0].Delimiter)
	assert.Equal(t, 3*time.Millisecond, ports[0].PollInterval)
}

func TestResolvePorts_NoFraming(t *testing.T) {
	opts, err := parseFlags([]string{"--device", "/dev/ttyS0", "--delimiter", ""})
	require.NoError(t, err)

	ports, err := resolvePorts(opts)
	require.NoError(t, err)
	assert.False(t, ports[0].HasDelimiter)
}

func TestResolvePorts_Errors(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)
	_, err = resolvePorts(opts)
	require.Error(t, err)

	opts, err = parseFlags([]string{"--device", "/dev/ttyS0", "--delimiter-byte", "300"})
	require.NoError(t, err)
	_, err = resolvePorts(opts)
	require.ErrorIs(t, err, serial.ErrInvalidDelimiter)

	opts, err = parseFlags([]string{"--device", "/dev/ttyS0", "--baud", "1234"})
	require.NoError(t, err)
	_, err = resolvePorts(opts)
	require.ErrorIs(t, err, serial.ErrUnsupportedBaud)

	_, err = parseFlags([]string{"--send", `\q`})
	require.Error(t, err)

	_, err = parseFlags([]string{"extra"})
	require.Error(t, err)
}

func TestServePort_PrintsMessages(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var buf bytes.Buffer
	out := &lineWriter{w: &buf}
	registry := xsync.NewMapOf[string, *serial.Metrics]()

	done := make(chan error, 1)
	go func() {
		done <- servePort(ctx, serial.DefaultConfig(slave.Name()), []byte("hi\n"), registry, out)
	}()

	// the greeting proves the port is open before data is injected
	greeting := make([]byte, 3)
	_, err = io.ReadFull(master, greeting)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(greeting))

	_, err = master.Write([]byte("pong\n"))
	require.NoError(t, err)

	want := slave.Name() + ": \"pong\"\n"
	require.Eventually(t, func() bool {
		out.mu.Lock()
		defer out.mu.Unlock()
		return buf.String() == want
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for servePort to return")
	}

	m, ok := registry.Load(slave.Name())
	require.True(t, ok)
	assert.EqualValues(t, 1, m.MsgFramedCount.Load())
	assert.EqualValues(t, 3, m.BytesSendCount.Load())
}
