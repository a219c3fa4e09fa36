package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Logger_DiscardByDefault(t *testing.T) {
	prev := L
	defer func() { L = prev }()

	require.NoError(t, Init(Options{Enabled: false}))
	require.False(t, Enabled(slog.LevelError))
}

func Test_Logger_TextOutput(t *testing.T) {
	prev := L
	defer func() { L = prev }()

	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Output: &buf, Level: slog.LevelDebug}))
	require.True(t, Enabled(slog.LevelDebug))

	Debug("page committed", "bucket", 3)
	require.Contains(t, buf.String(), "page committed")
	require.Contains(t, buf.String(), "bucket=3")
}

func Test_Logger_LevelFilter(t *testing.T) {
	prev := L
	defer func() { L = prev }()

	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Output: &buf, Level: slog.LevelWarn}))
	Info("hidden")
	Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func Test_Logger_JSONFile(t *testing.T) {
	prev := L
	defer func() { L = prev }()

	path := filepath.Join(t.TempDir(), "memkit.log")
	require.NoError(t, Init(Options{Enabled: true, LogFile: path, JSON: true}))
	Error("registry refcount underflow", "refs", -1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"registry refcount underflow"`)
}

func Test_Logger_ParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
