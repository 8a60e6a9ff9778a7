package plugins

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// LoggerOption configures NetworkLogger.
type LoggerOption func(*networkLogger)

// LogHeaders includes request and response headers. Authorization and
// cookie headers are redacted.
func LogHeaders() LoggerOption {
	return func(l *networkLogger) {
		l.headers = true
	}
}

// LogBodies includes request and response bodies up to limit bytes.
func LogBodies(limit int) LoggerOption {
	return func(l *networkLogger) {
		l.bodyLimit = limit
	}
}

// LogLevel sets the level of the request and response lines. Failures are
// always logged at warn.
func LogLevel(level slog.Level) LoggerOption {
	return func(l *networkLogger) {
		l.level = level
	}
}

type networkLogger struct {
	logger    *slog.Logger
	level     slog.Level
	headers   bool
	bodyLimit int
	clock     stopwatch
}

// NetworkLogger logs a line before every attempt and one with its outcome.
func NetworkLogger(logger *slog.Logger, opts ...LoggerOption) ports.Plugin {
	l := &networkLogger{logger: logger, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(l)
	}
	return ports.Plugin{
		Name:       "network_logger",
		WillSend:   l.willSend,
		DidReceive: l.didReceive,
	}
}

func (l *networkLogger) willSend(ctx context.Context, req *http.Request, target domain.Target) {
	l.clock.start(ctx)

	attrs := []slog.Attr{
		slog.String("target", domain.TargetName(target)),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
	}
	if id := req.Header.Get(RequestIDHeader); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if l.headers {
		attrs = append(attrs, slog.Any("headers", redact(req.Header)))
	}
	if l.bodyLimit > 0 && req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			data, _ := io.ReadAll(io.LimitReader(body, int64(l.bodyLimit)))
			body.Close()
			attrs = append(attrs, slog.String("body", string(data)))
		}
	}

	l.logger.LogAttrs(ctx, l.level, "sending request", attrs...)
}

func (l *networkLogger) didReceive(ctx context.Context, result domain.Result, target domain.Target) {
	attrs := []slog.Attr{
		slog.String("target", domain.TargetName(target)),
		slog.Duration("duration", l.clock.stop(ctx)),
	}
	if id := requestIDOf(result); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}

	resp := result.Response
	if resp == nil && result.Err != nil {
		resp = result.Err.Response
	}
	if resp != nil {
		attrs = append(attrs,
			slog.Int("status", resp.StatusCode),
			slog.Int("size", len(resp.Data)))
		if l.headers {
			attrs = append(attrs, slog.Any("headers", redact(resp.Header())))
		}
		if l.bodyLimit > 0 {
			attrs = append(attrs, slog.String("body", truncate(resp.Data, l.bodyLimit)))
		}
	}

	if result.Err != nil {
		attrs = append(attrs,
			slog.String("error_kind", string(result.Err.Kind)),
			slog.String("error", result.Err.Error()))
		l.logger.LogAttrs(ctx, slog.LevelWarn, "request failed", attrs...)
		return
	}
	l.logger.LogAttrs(ctx, l.level, "received response", attrs...)
}

var sensitiveHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie", "Set-Cookie"}

func redact(h http.Header) http.Header {
	out := h.Clone()
	for _, name := range sensitiveHeaders {
		if out.Get(name) != "" {
			out.Set(name, "[REDACTED]")
		}
	}
	return out
}

func truncate(data []byte, limit int) string {
	if len(data) <= limit {
		return string(data)
	}
	return strings.ToValidUTF8(string(data[:limit]), "") + "..."
}
