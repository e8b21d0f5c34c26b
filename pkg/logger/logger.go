// Package logger configures the process-wide slog logger and carries
// per-request fields (request id, collection) in the context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

type fields struct {
	requestID  string
	collection string
}

// Setup logs to stdout. Services call it once at startup.
func Setup(level, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter installs the default slog logger writing to w. The CLI points
// it at stderr so query output on stdout stays machine-readable.
func SetupWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	f := fromCtx(ctx)
	f.requestID = requestID
	return context.WithValue(ctx, contextKey{}, f)
}

// WithCollection tags later log lines of the request with collection.
func WithCollection(ctx context.Context, collection string) context.Context {
	f := fromCtx(ctx)
	f.collection = collection
	return context.WithValue(ctx, contextKey{}, f)
}

func RequestID(ctx context.Context) string {
	return fromCtx(ctx).requestID
}

// FromContext returns the default logger with the request's fields.
func FromContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	f := fromCtx(ctx)
	if f.requestID != "" {
		l = l.With("request_id", f.requestID)
	}
	if f.collection != "" {
		l = l.With("collection", f.collection)
	}
	return l
}

func fromCtx(ctx context.Context) fields {
	f, _ := ctx.Value(contextKey{}).(fields)
	return f
}

// parseLevel accepts slog level names in any case ("warn", "DEBUG",
// "info+2"). Anything else is info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
