package testutil

import (
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger returns a logger that writes through t.Log, so output is
// attached to the test that produced it and shown only on failure or -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
