package plugins

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// RequestIDHeader carries the request ID.
const RequestIDHeader = "X-Request-ID"

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID returns a context whose calls are sent with id instead of a
// generated one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from context.
// Returns an empty string if no request ID is set.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// RequestID stamps every call with an X-Request-ID header. An ID set on the
// context with WithRequestID wins; a header already on the request is kept;
// otherwise a UUID is generated. Retries share the call's ID.
func RequestID() ports.Plugin {
	return ports.Plugin{
		Name: "request_id",
		PrepareRequest: func(ctx context.Context, req *http.Request, _ domain.Target) *http.Request {
			if id := GetRequestID(ctx); id != "" {
				req.Header.Set(RequestIDHeader, id)
				return req
			}
			if req.Header.Get(RequestIDHeader) == "" {
				req.Header.Set(RequestIDHeader, uuid.New().String())
			}
			return req
		},
	}
}

// requestIDOf returns the request ID sent with the request behind result.
func requestIDOf(result domain.Result) string {
	if req := requestOf(result); req != nil {
		return req.Header.Get(RequestIDHeader)
	}
	return ""
}

// requestOf returns the request attached to a result's response, if any.
func requestOf(result domain.Result) *http.Request {
	resp := result.Response
	if resp == nil && result.Err != nil {
		resp = result.Err.Response
	}
	if resp == nil {
		return nil
	}
	return resp.Request
}
