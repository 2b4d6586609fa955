// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the client.
var GlobalLogger *Logger

func init() {
	GlobalLogger = NewLogger(os.Stderr, "warn", "text")
}

// NewLogger builds a Logger writing to w at the given level ("debug", "info",
// "warn", "error") in "json" or "text" format.
func NewLogger(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Configure replaces GlobalLogger.
func Configure(w io.Writer, level, format string) {
	GlobalLogger = NewLogger(w, level, format)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key holding the request correlation id.
const CorrelationID LogContextKey = "correlation_id"

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

var (
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-_.=]+`)
	jwtPattern    = regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]*`)
)

// Redact strips bearer credentials and JWTs from s before it reaches a log sink.
func Redact(s string) string {
	s = bearerPattern.ReplaceAllString(s, "Bearer [REDACTED_TOKEN]")
	return jwtPattern.ReplaceAllString(s, "[REDACTED_TOKEN]")
}

// APILogger provides structured logging for outbound API calls.
type APILogger struct {
	logger func() *Logger
}

// NewAPILogger creates an APILogger bound to GlobalLogger.
func NewAPILogger() *APILogger {
	return &APILogger{logger: func() *Logger { return GlobalLogger }}
}

// LogRequest logs a completed API call.
func (l *APILogger) LogRequest(ctx context.Context, operation, method, path string, status int, durationMS int64) {
	l.logger().DebugContext(ctx, "api request",
		slog.String("operation", operation),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Int64("duration_ms", durationMS),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogError logs a failed API call.
func (l *APILogger) LogError(ctx context.Context, operation string, err error) {
	l.logger().WarnContext(ctx, "api error",
		slog.String("operation", operation),
		slog.String("error", Redact(err.Error())),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// ControllerLogger provides structured logging for view controllers.
type ControllerLogger struct {
	name string
}

// NewControllerLogger creates a ControllerLogger for the named controller.
func NewControllerLogger(name string) *ControllerLogger {
	return &ControllerLogger{name: name}
}

// LogTransition logs a controller state change.
func (l *ControllerLogger) LogTransition(ctx context.Context, from, to string) {
	GlobalLogger.DebugContext(ctx, "state transition",
		slog.String("controller", l.name),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogFailure logs a failure that the controller absorbed instead of propagating.
func (l *ControllerLogger) LogFailure(ctx context.Context, action string, err error) {
	GlobalLogger.WarnContext(ctx, "controller action failed",
		slog.String("controller", l.name),
		slog.String("action", action),
		slog.String("error", Redact(err.Error())),
	)
}
