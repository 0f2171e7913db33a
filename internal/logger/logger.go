// Package logger configures the process-wide zerolog logger and derives
// per-agent and per-request loggers from it.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Init configures the global logger. level falls back to LOG_LEVEL, then
// info. LOG_FORMAT=json switches from console output to JSON lines and
// LOG_FILE additionally appends to a file.
func Init(level string) {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := writer(os.Getenv("LOG_FORMAT"), os.Stdout)
	if path := os.Getenv("LOG_FILE"); path != "" {
		if f, ferr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); ferr == nil {
			out = io.MultiWriter(out, f)
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
	log.Debug().Str("level", lvl.String()).Msg("Logger initialized")
}

func writer(format string, w io.Writer) io.Writer {
	if format == "json" {
		return w
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: milliTimeFormat,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
}

// Get returns the global logger instance.
func Get() zerolog.Logger {
	return log.Logger
}

// ForAgent returns a logger tagged with an agent's team and uniform number.
func ForAgent(team string, unum int) zerolog.Logger {
	return log.Logger.With().Str("team", team).Int("unum", unum).Logger()
}

// ForCycle adds the cycle number to an agent logger.
func ForCycle(l zerolog.Logger, cycle int) zerolog.Logger {
	return l.With().Int("cycle", cycle).Logger()
}

// NewRequestID returns a short random id for correlating one call's lines.
func NewRequestID() string {
	return uuid.NewString()[:8]
}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from context, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ForRequest returns the global logger with the request ID from ctx, if any.
func ForRequest(ctx context.Context) zerolog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return log.Logger.With().Str("requestId", id).Logger()
	}
	return log.Logger
}

// maxPayloadLog caps how much of a frame LogPayload prints.
const maxPayloadLog = 1000

// LogPayload logs a WebSocket frame at debug level under key, truncating
// long frames.
func LogPayload(l zerolog.Logger, key string, body []byte) {
	if len(body) == 0 {
		return
	}
	ev := l.Debug()
	if len(body) > maxPayloadLog {
		body = body[:maxPayloadLog]
		ev = ev.Bool("truncated", true)
	}
	ev.Str(key, string(body)).Msg("Frame")
}
