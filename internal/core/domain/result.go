package domain

// Result is the outcome of one attempt: exactly one of Response or Err is set.
// Plugins observe and replace Results; the completion strategy inspects them.
type Result struct {
	Response *Response
	Err      *ServiceError
}

// Success creates a successful result.
func Success(resp *Response) Result {
	return Result{Response: resp}
}

// Failure creates a failed result.
func Failure(err *ServiceError) Result {
	return Result{Err: err}
}

// IsSuccess reports whether the result carries a response.
func (r Result) IsSuccess() bool {
	return r.Err == nil && r.Response != nil
}

// StatusCode returns the status of the response involved, if any.
func (r Result) StatusCode() int {
	if r.Response != nil {
		return r.Response.StatusCode
	}
	if r.Err != nil {
		return r.Err.StatusCode()
	}
	return 0
}

// Unpack returns the result as a conventional (response, error) pair. A
// result with neither side set yields a transport failure.
func (r Result) Unpack() (*Response, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Response == nil {
		return nil, ErrTransport(ErrUnknownOutcome, nil)
	}
	return r.Response, nil
}
