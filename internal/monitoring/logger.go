package monitoring

import (
	"context"
	"log/slog"
	"os"
	"time"
)

var startTime = time.Now()

// Logger provides enhanced structured logging with context
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new enhanced logger
func NewLogger() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Add timestamp in RFC3339 format
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// EventLogger logs a buffered development event
func (l *Logger) EventLogger(kind, repo, sender, source string) {
	l.Info("Event Buffered",
		"kind", kind,
		"repo", repo,
		"sender", sender,
		"source", source,
	)
}

// ParseMissLogger logs an embed that matched no grammar. A miss is a
// legitimate outcome, so this stays at debug level.
func (l *Logger) ParseMissLogger(title string) {
	l.Debug("Embed Parse Miss", "title", title)
}

// DigestLogger logs a completed digest cycle
func (l *Logger) DigestLogger(eventCount int, manual bool, duration time.Duration) {
	l.Info("Digest Sent",
		"events", eventCount,
		"manual", manual,
		"duration_ms", duration.Milliseconds(),
	)
}

// WarningLogger logs a pre-digest warning
func (l *Logger) WarningLogger(checkpoint, slot string) {
	l.Info("Digest Warning Sent",
		"checkpoint", checkpoint,
		"slot", slot,
	)
}

// BackfillLogger logs a backfill pass over channel history
func (l *Logger) BackfillLogger(recovered int, cutoff time.Time) {
	l.Info("Backfill Completed",
		"recovered", recovered,
		"cutoff", cutoff.Format(time.RFC3339),
	)
}

// ExternalAPILogger logs external API calls
func (l *Logger) ExternalAPILogger(apiName, method, endpoint string, statusCode int, duration time.Duration, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "External API Call",
		"api_name", apiName,
		"method", method,
		"endpoint", endpoint,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"success", success,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// PerformanceLogger logs performance-related observations
func (l *Logger) PerformanceLogger(metric string, value float64, unit string) {
	l.Warn("Performance Warning",
		"metric", metric,
		"value", value,
		"unit", unit,
	)
}
