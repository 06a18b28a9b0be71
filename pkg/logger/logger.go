package logger

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Cron exposes a slog.Logger through the cron.Logger interface.
type Cron struct {
	log *slog.Logger
}

var _ cron.Logger = Cron{}

// NewCron wraps logger with a component attribute.
func NewCron(log *slog.Logger) Cron {
	return Cron{log: log.With("component", "cron")}
}

// Info logs routine scheduler events at debug level; cron is chatty.
func (c Cron) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, normalize(keysAndValues)...)
}

// Error logs scheduler failures.
func (c Cron) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]any{"error", err}, normalize(keysAndValues)...)
	c.log.Error(msg, args...)
}

// cron passes keys as interface{}; slog wants string keys.
func normalize(kv []interface{}) []any {
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			out = append(out, "extra", key)
			break
		}
		out = append(out, key, kv[i+1])
	}
	return out
}
