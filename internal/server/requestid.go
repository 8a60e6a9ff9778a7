package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tjfontaine/courier/internal/plugins"
)

// RequestIDMiddleware assigns each request an ID, reusing an incoming
// X-Request-ID header when present. The ID is set as the X-Request-ID
// response header and stored in the context, where the request ID plugin
// picks it up so outgoing calls carry the same ID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(plugins.RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}
		ctx := plugins.WithRequestID(r.Context(), requestID)
		w.Header().Set(plugins.RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
