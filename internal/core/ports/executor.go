package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/tjfontaine/courier/internal/core/domain"
)

// Executor performs network I/O for a prepared request. It returns the
// payload, the status-bearing response and the transport error; any of them
// may be absent. Execute is called exactly once per attempt.
type Executor interface {
	Execute(ctx context.Context, req *http.Request) (data []byte, resp *http.Response, err error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req *http.Request) ([]byte, *http.Response, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, req *http.Request) ([]byte, *http.Response, error) {
	return f(ctx, req)
}

// StubResponse is what a stub provider answers for an endpoint. It is one of
// StubSuccess, StubFailure or ContinueCourse.
type StubResponse interface {
	isStubResponse()
}

// StubSuccess synthesizes a response.
type StubSuccess struct {
	StatusCode int
	Data       []byte
	Header     http.Header
}

// StubFailure synthesizes a transport error. When StatusCode is non-zero the
// error carries a synthesized response as well.
type StubFailure struct {
	Err        error
	StatusCode int
	Data       []byte
}

// ContinueCourse falls through to the real executor.
type ContinueCourse struct{}

func (StubSuccess) isStubResponse()    {}
func (StubFailure) isStubResponse()    {}
func (ContinueCourse) isStubResponse() {}

// StubStrategy replaces network I/O with synthesized outcomes. A nil
// *StubStrategy means never stub.
type StubStrategy struct {
	// Delay is waited before Provide is called. Zero runs Provide inline.
	Delay time.Duration

	// Provide answers for the resolved endpoint.
	Provide func(endpoint *domain.Endpoint) StubResponse
}
