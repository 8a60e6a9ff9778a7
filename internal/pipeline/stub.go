package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// ErrStubFailure is used when a StubFailure carries no error of its own.
var ErrStubFailure = errors.New("stubbed failure")

// SampleResponse answers with the target's sample data at 200, or falls
// through to the network for targets without sample data.
func SampleResponse(endpoint *domain.Endpoint) ports.StubResponse {
	provider, ok := endpoint.Target.(domain.SampleDataProvider)
	if !ok {
		return ports.ContinueCourse{}
	}
	return ports.StubSuccess{StatusCode: http.StatusOK, Data: provider.SampleData()}
}

// ImmediateStub stubs every call inline with SampleResponse.
func ImmediateStub() *ports.StubStrategy {
	return &ports.StubStrategy{Provide: SampleResponse}
}

// DelayedStub stubs every call with SampleResponse after delay.
func DelayedStub(delay time.Duration) *ports.StubStrategy {
	return &ports.StubStrategy{Delay: delay, Provide: SampleResponse}
}

// runStub consults the stub strategy. ok is false when the call should go to
// the real executor.
func runStub(ctx context.Context, stub *ports.StubStrategy, endpoint *domain.Endpoint, req *http.Request) (result domain.Result, ok bool) {
	if stub.Delay > 0 {
		timer := time.NewTimer(stub.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return domain.Failure(domain.ErrTransport(ctx.Err(), nil)), true
		}
	}

	provide := stub.Provide
	if provide == nil {
		provide = SampleResponse
	}

	switch answer := provide(endpoint).(type) {
	case ports.StubSuccess:
		status := answer.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		resp := synthesizeResponse(req, status, answer.Header, answer.Data)
		return MapOutcome(req, answer.Data, resp, nil), true
	case ports.StubFailure:
		err := answer.Err
		if err == nil {
			err = ErrStubFailure
		}
		var resp *http.Response
		if answer.StatusCode != 0 {
			resp = synthesizeResponse(req, answer.StatusCode, nil, answer.Data)
		}
		return MapOutcome(req, answer.Data, resp, err), true
	default:
		return domain.Result{}, false
	}
}
