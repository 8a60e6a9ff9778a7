// Package domain provides the value types shared by every stage of a call:
// targets, endpoints, tasks, responses, results and the service error taxonomy.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind represents the category of a ServiceError.
type ErrorKind string

const (
	// KindResolutionFailed indicates the target could not be turned into an endpoint.
	KindResolutionFailed ErrorKind = "resolution_failed"

	// KindMappingFailed indicates the endpoint could not be turned into a request.
	KindMappingFailed ErrorKind = "mapping_failed"

	// KindTransportFailed indicates the executor reported an error, or nothing at all.
	KindTransportFailed ErrorKind = "transport_failed"

	// KindParsingFailed indicates the payload could not be decoded.
	KindParsingFailed ErrorKind = "parsing_failed"

	// KindResponseRejected indicates a well-formed payload describing an application error.
	KindResponseRejected ErrorKind = "response_rejected"
)

// ErrUnknownOutcome is the cause used when the executor returned neither a
// response nor an error.
var ErrUnknownOutcome = errors.New("executor returned neither response nor error")

// ServiceError is the single error type delivered to callers.
type ServiceError struct {
	// Kind is the category of error
	Kind ErrorKind `json:"kind"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`

	// Response is the response the error was derived from (nil when none was received)
	Response *Response `json:"-"`

	// Problem is the decoded application-level error for KindResponseRejected
	Problem any `json:"problem,omitempty"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	var msg string
	switch {
	case e.Cause != nil:
		msg = e.Cause.Error()
	case e.Problem != nil:
		msg = fmt.Sprintf("%v", e.Problem)
	default:
		msg = "no further detail"
	}
	if e.Response != nil {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Response.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the status of the attached response, or 0 when there is none.
func (e *ServiceError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// HTTPStatusCode suggests a status code for surfacing this error over HTTP.
func (e *ServiceError) HTTPStatusCode() int {
	if e.Response != nil && e.Response.StatusCode >= 400 {
		return e.Response.StatusCode
	}
	switch e.Kind {
	case KindResolutionFailed, KindMappingFailed:
		return http.StatusBadRequest
	case KindTransportFailed:
		return http.StatusBadGateway
	case KindParsingFailed, KindResponseRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// NewServiceError creates a new service error.
func NewServiceError(kind ErrorKind, cause error) *ServiceError {
	return &ServiceError{
		Kind:  kind,
		Cause: cause,
	}
}

// WithResponse attaches the response the error relates to.
func (e *ServiceError) WithResponse(resp *Response) *ServiceError {
	e.Response = resp
	return e
}

// WithProblem attaches a decoded application error.
func (e *ServiceError) WithProblem(problem any) *ServiceError {
	e.Problem = problem
	return e
}

// Convenience constructors

// ErrResolution creates a resolution error.
func ErrResolution(cause error) *ServiceError {
	return NewServiceError(KindResolutionFailed, cause)
}

// ErrMapping creates a request mapping error.
func ErrMapping(cause error) *ServiceError {
	return NewServiceError(KindMappingFailed, cause)
}

// ErrTransport creates a transport error. resp may be nil.
func ErrTransport(cause error, resp *Response) *ServiceError {
	return NewServiceError(KindTransportFailed, cause).WithResponse(resp)
}

// ErrParsing creates a parsing error for the given response.
func ErrParsing(cause error, resp *Response) *ServiceError {
	return NewServiceError(KindParsingFailed, cause).WithResponse(resp)
}

// ErrRejected creates a response rejected error.
func ErrRejected(resp *Response, problem any) *ServiceError {
	return NewServiceError(KindResponseRejected, nil).
		WithResponse(resp).
		WithProblem(problem)
}

// AsServiceError extracts a ServiceError from err's chain.
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	svcErr, ok := AsServiceError(err)
	return ok && svcErr.Kind == kind
}

// RejectionError is returned by parsers that recognise a well-formed payload
// describing an application-level failure.
type RejectionError struct {
	Problem any
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("response rejected: %v", e.Problem)
}

// Reject creates a RejectionError.
func Reject(problem any) *RejectionError {
	return &RejectionError{Problem: problem}
}
