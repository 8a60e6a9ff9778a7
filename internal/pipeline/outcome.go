package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/tjfontaine/courier/internal/core/domain"
)

// MapOutcome classifies an executor's raw triple. Response presence is
// checked before error presence so an error that arrived with a response is
// never reported as responseless.
func MapOutcome(req *http.Request, data []byte, resp *http.Response, err error) domain.Result {
	switch {
	case resp != nil && err == nil:
		return domain.Success(domain.NewResponse(req, resp, data))
	case resp != nil && err != nil:
		return domain.Failure(domain.ErrTransport(err, domain.NewResponse(req, resp, data)))
	case err != nil:
		return domain.Failure(domain.ErrTransport(err, nil))
	default:
		return domain.Failure(domain.ErrTransport(domain.ErrUnknownOutcome, nil))
	}
}

// validateStatus rejects successful results whose status is not accepted by
// a Validatable target.
func validateStatus(result domain.Result, target domain.Target) domain.Result {
	if !result.IsSuccess() {
		return result
	}
	v, ok := target.(domain.Validatable)
	if !ok {
		return result
	}
	codes := v.ValidStatusCodes()
	if len(codes) == 0 || slices.Contains(codes, result.Response.StatusCode) {
		return result
	}
	return domain.Failure(domain.ErrRejected(result.Response,
		fmt.Sprintf("unacceptable status code %d", result.Response.StatusCode)))
}

// synthesizeResponse builds a transport response that never touched the network.
func synthesizeResponse(req *http.Request, statusCode int, header http.Header, data []byte) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	header = header.Clone()
	if header.Get("Content-Length") == "" {
		header.Set("Content-Length", strconv.Itoa(len(data)))
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		StatusCode:    statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
		Request:       req,
	}
}
