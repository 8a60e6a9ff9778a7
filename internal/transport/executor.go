// Package transport provides the network executor used by the call pipeline.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultMaxBodySize bounds how much of a response body is read.
const DefaultMaxBodySize int64 = 32 * 1024 * 1024

// ErrBodyTooLarge is returned, together with the response, when a body
// exceeds the configured limit.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPExecutor sends requests with an *http.Client and reads the full body.
type HTTPExecutor struct {
	client      *http.Client
	maxBodySize int64
}

// Option configures an HTTPExecutor.
type Option func(*HTTPExecutor)

// WithHTTPClient sends requests with a copy of client, so later options never
// modify the caller's value. A nil client keeps the default.
func WithHTTPClient(client *http.Client) Option {
	return func(e *HTTPExecutor) {
		if client == nil {
			return
		}
		c := *client
		e.client = &c
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(e *HTTPExecutor) {
		e.client.Timeout = timeout
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(n int64) Option {
	return func(e *HTTPExecutor) {
		e.maxBodySize = n
	}
}

// WithPrivateAddressGuard refuses connections to loopback, private and
// link-local addresses.
func WithPrivateAddressGuard() Option {
	return func(e *HTTPExecutor) {
		e.client.Transport = otelhttp.NewTransport(GuardedTransport())
	}
}

// NewHTTPExecutor creates an executor with a traced transport and a 30 second
// timeout.
func NewHTTPExecutor(opts ...Option) *HTTPExecutor {
	e := &HTTPExecutor{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute implements ports.Executor. A response whose body cannot be read
// completely is returned together with the read error.
func (e *HTTPExecutor) Execute(ctx context.Context, req *http.Request) ([]byte, *http.Response, error) {
	resp, err := e.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body := io.Reader(resp.Body)
	if e.maxBodySize > 0 {
		body = io.LimitReader(resp.Body, e.maxBodySize+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return data, resp, fmt.Errorf("failed to read response body: %w", err)
	}
	if e.maxBodySize > 0 && int64(len(data)) > e.maxBodySize {
		return data[:e.maxBodySize], resp, fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLarge, e.maxBodySize)
	}
	return data, resp, nil
}
