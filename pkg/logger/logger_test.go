package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCronLoggerForwardsToSlog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := NewCron(base)

	l.Info("schedule", "entry", 1, "next", "soon")
	l.Error(errors.New("boom"), "panic", "odd")

	out := buf.String()
	for _, want := range []string{"component=cron", "entry=1", "next=soon", "error=boom", "extra=odd"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
