package decode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// Validator is implemented by decoded values that can check their own
// invariants. A failed validation is reported as a rejection.
type Validator interface {
	Validate() error
}

// ErrEmptyPayload is returned by JSON parsers for an empty body.
var ErrEmptyPayload = errors.New("empty payload")

// ProblemFunc inspects a raw payload and reports an application-level error
// payload, if present.
type ProblemFunc func(data []byte) (problem any, ok bool)

// JSONParser decodes JSON payloads into T.
type JSONParser[T any] struct {
	// Problem, when set, runs before decoding into T.
	Problem ProblemFunc
	// AllowEmpty returns the zero T for an empty payload instead of failing.
	AllowEmpty bool
}

// JSON returns a JSONParser for T.
func JSON[T any]() *JSONParser[T] {
	return &JSONParser[T]{}
}

// WithProblem returns a copy of p that detects problem payloads with fn.
func (p *JSONParser[T]) WithProblem(fn ProblemFunc) *JSONParser[T] {
	out := *p
	out.Problem = fn
	return &out
}

// Parse implements ports.Parser.
func (p *JSONParser[T]) Parse(data []byte) (T, error) {
	var result T

	if len(data) == 0 {
		if p.AllowEmpty {
			return result, nil
		}
		return result, ErrEmptyPayload
	}

	if p.Problem != nil {
		if problem, ok := p.Problem(data); ok {
			return result, domain.Reject(problem)
		}
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to parse response: %w", err)
	}

	if v, ok := any(&result).(Validator); ok {
		if err := v.Validate(); err != nil {
			return result, domain.Reject(err.Error())
		}
	} else if v, ok := any(result).(Validator); ok {
		if err := v.Validate(); err != nil {
			return result, domain.Reject(err.Error())
		}
	}

	return result, nil
}

// FieldProblem returns a ProblemFunc that treats any JSON object with a
// non-null top-level field as a problem payload. The field's raw value is the
// problem.
func FieldProblem(field string) ProblemFunc {
	return func(data []byte) (any, bool) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, false
		}
		raw, ok := obj[field]
		if !ok || string(raw) == "null" {
			return nil, false
		}
		var problem any
		if err := json.Unmarshal(raw, &problem); err != nil {
			return string(raw), true
		}
		return problem, true
	}
}

// String returns the payload as a string.
var String ports.Parser[string] = ports.ParserFunc[string](func(data []byte) (string, error) {
	return string(data), nil
})

// Bytes returns a copy of the payload.
var Bytes ports.Parser[[]byte] = ports.ParserFunc[[]byte](func(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
})
