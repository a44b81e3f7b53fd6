// Package logger is a thin slog wrapper that standardizes the JSON
// shape of service logs and threads request and job IDs through
// context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type contextKey string

const (
	// RequestIDKey carries the request ID through context.
	RequestIDKey contextKey = "request_id"
	// JobIDKey carries the job ID through context.
	JobIDKey contextKey = "job_id"
)

// Logger wraps slog.Logger with slidecast-specific helpers.
type Logger struct {
	*slog.Logger
}

// Config controls handler construction.
type Config struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string
	// Format selects json or text output.
	Format string
	// Output defaults to os.Stdout.
	Output io.Writer
	// AddSource includes file:line on every record.
	AddSource bool
	// ServiceName is stamped on every record as "service".
	ServiceName string
}

// DefaultConfig reads the LOG_* environment knobs.
func DefaultConfig() Config {
	return Config{
		Level:       envOr("LOG_LEVEL", "info"),
		Format:      envOr("LOG_FORMAT", "json"),
		Output:      os.Stdout,
		AddSource:   envOr("LOG_SOURCE", "false") == "true",
		ServiceName: envOr("SERVICE_NAME", "slidecast"),
	}
}

// New builds a Logger from cfg. Timestamps are normalized to UTC
// RFC3339Nano so log lines collate across machines.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	if cfg.ServiceName != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.ServiceName)})
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewDefault is New(DefaultConfig()).
func NewDefault() *Logger {
	return New(DefaultConfig())
}

func (l *Logger) withAttr(key, value string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String(key, value))}
}

// WithRequestID attaches a request ID attribute.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.withAttr("request_id", requestID)
}

// WithJobID attaches a job ID attribute.
func (l *Logger) WithJobID(jobID string) *Logger {
	return l.withAttr("job_id", jobID)
}

// WithComponent attaches a component name attribute.
func (l *Logger) WithComponent(component string) *Logger {
	return l.withAttr("component", component)
}

// With attaches arbitrary attributes, keeping the wrapper type.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithError attaches the error text; a nil error is a no-op.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.withAttr("error", err.Error())
}

// FromContext enriches the logger with whichever IDs the context
// carries.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	out := l
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		out = out.WithRequestID(id)
	}
	if id, ok := ctx.Value(JobIDKey).(string); ok && id != "" {
		out = out.WithJobID(id)
	}
	return out
}

// LogFatal logs at error level and exits the process.
func (l *Logger) LogFatal(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.Error(msg, args...)
	os.Exit(1)
}

// ContextWithRequestID stores a request ID for FromContext to pick up.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithJobID stores a job ID for FromContext to pick up.
func ContextWithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
