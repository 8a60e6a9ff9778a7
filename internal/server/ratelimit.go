package server

import (
	"net/http"
	"strings"
)

// forwardedHeaders are copied from an upstream response onto ours so
// clients can honour the upstream's rate limits.
var forwardedHeaders = []string{"Retry-After", "Content-Type"}

// forwardRateLimits copies Retry-After, Content-Type and every
// X-RateLimit-* header from src to dst.
func forwardRateLimits(dst, src http.Header) {
	for _, key := range forwardedHeaders {
		if v := src.Get(key); v != "" {
			dst.Set(key, v)
		}
	}
	for key, values := range src {
		if strings.HasPrefix(strings.ToLower(key), "x-ratelimit-") {
			dst[key] = append([]string(nil), values...)
		}
	}
}
