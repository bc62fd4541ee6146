package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_JSONOutput(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWriter(&buf, InfoLevel, false)

	l.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.With("device", "/dev/ttyUSB0").Info("port opened", "baud", 115200)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "port opened", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "/dev/ttyUSB0", rec["device"])
	assert.EqualValues(t, 115200, rec["baud"])
	assert.Contains(t, rec, "ts")
}

func TestSlogLogger_SetLevelSharedWithChildren(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWriter(&buf, InfoLevel, false)
	child := l.With("k", "v")

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, child.Level())

	child.Debug("visible")
	assert.Contains(t, buf.String(), "visible")

	l.SetLevel(ErrorLevel)
	assert.Equal(t, ErrorLevel, l.Level())
	buf.Reset()
	child.Warn("dropped")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestSetLogger(t *testing.T) {
	orig := GetLogger()
	t.Cleanup(func() { SetLogger(orig) })

	m := NewMockLogger()
	m.On("Info", "hello", []any{"a", 1}).Once()
	SetLogger(m)
	SetLogger(nil)

	Info("hello", "a", 1)
	m.AssertExpectations(t)
}
