package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewTextLogger(&buf, "debug"), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		emit func(Logger)
		want []string
	}{
		{"debug", func(l Logger) { l.Debug(ctx, "retrying poll", "attempt", 2) }, []string{"level=DEBUG", `msg="retrying poll"`, "attempt=2"}},
		{"info", func(l Logger) { l.Info(ctx, "signed in", "user", "u1") }, []string{"level=INFO", `msg="signed in"`, "user=u1"}},
		{"warn", func(l Logger) { l.Warn(ctx, "request failed", "status", 401) }, []string{"level=WARN", `msg="request failed"`, "status=401"}},
		{"error", func(l Logger) { l.Error(ctx, "persist session", "error", "disk full") }, []string{"level=ERROR", `msg="persist session"`, `error="disk full"`}},
		{"with", func(l Logger) { l.With("component", "api").Warn(ctx, "slow") }, []string{"level=WARN", "component=api", "msg=slow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newTestLogger(t)
			tt.emit(log)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestNewTextLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogger(&buf, "warn")

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestDiscard_DoesNotPanic(t *testing.T) {
	log := Discard()
	log.Error(context.TODO(), "dropped", "k", "v")
	log.With("a", 1).Info(context.TODO(), "dropped")
}
