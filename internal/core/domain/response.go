package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
)

// Response is the envelope for a successfully received payload.
type Response struct {
	StatusCode int
	Data       []byte

	// Request is the request that produced this response (may be nil for
	// synthesized responses).
	Request *http.Request

	// HTTPResponse is the transport response. Its Body has already been
	// consumed; use Data.
	HTTPResponse *http.Response
}

// NewResponse creates a response envelope from a transport response.
func NewResponse(req *http.Request, resp *http.Response, data []byte) *Response {
	if data == nil {
		data = []byte{}
	}
	r := &Response{
		Data:         data,
		Request:      req,
		HTTPResponse: resp,
	}
	if resp != nil {
		r.StatusCode = resp.StatusCode
	}
	return r
}

// Header returns the response headers, never nil.
func (r *Response) Header() http.Header {
	if r.HTTPResponse == nil || r.HTTPResponse.Header == nil {
		return http.Header{}
	}
	return r.HTTPResponse.Header
}

// Filter returns r when its status code is one of codes, otherwise a
// KindResponseRejected error carrying r.
func (r *Response) Filter(codes ...int) (*Response, error) {
	if slices.Contains(codes, r.StatusCode) {
		return r, nil
	}
	return nil, ErrRejected(r, fmt.Sprintf("unacceptable status code %d", r.StatusCode))
}

// FilterRange returns r when its status code is within [lo, hi].
func (r *Response) FilterRange(lo, hi int) (*Response, error) {
	if r.StatusCode >= lo && r.StatusCode <= hi {
		return r, nil
	}
	return nil, ErrRejected(r, fmt.Sprintf("unacceptable status code %d", r.StatusCode))
}

// FilterSuccessfulStatusCodes accepts 2xx responses.
func (r *Response) FilterSuccessfulStatusCodes() (*Response, error) {
	return r.FilterRange(200, 299)
}

// FilterSuccessfulStatusAndRedirectCodes accepts 2xx and 3xx responses.
func (r *Response) FilterSuccessfulStatusAndRedirectCodes() (*Response, error) {
	return r.FilterRange(200, 399)
}

// MapString returns the payload as a string.
func (r *Response) MapString() string {
	return string(r.Data)
}

// MapJSON decodes the payload into v. Decode failures are KindParsingFailed.
func (r *Response) MapJSON(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return ErrParsing(fmt.Errorf("failed to unmarshal response: %w", err), r)
	}
	return nil
}
