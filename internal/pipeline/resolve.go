package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/tjfontaine/courier/internal/core/domain"
)

// ResolveFunc turns a target into an endpoint. It must be pure.
type ResolveFunc func(target domain.Target) (*domain.Endpoint, error)

// BuildFunc turns an endpoint into a request. It must be deterministic.
type BuildFunc func(ctx context.Context, endpoint *domain.Endpoint) (*http.Request, error)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"
)

// DefaultResolve joins the target's base URL and path and copies its method,
// task and headers.
func DefaultResolve(target domain.Target) (*domain.Endpoint, error) {
	if target == nil {
		return nil, errors.New("target is nil")
	}

	base, err := url.Parse(target.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", target.BaseURL(), err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q is not absolute", target.BaseURL())
	}

	u := base
	if path := target.Path(); path != "" {
		u = base.JoinPath(path)
	}

	method := strings.ToUpper(strings.TrimSpace(target.Method()))
	if method == "" {
		method = http.MethodGet
	}

	task := target.Task()
	if task == nil {
		task = domain.RequestPlain{}
	}

	headers := target.Headers().Clone()
	if headers == nil {
		headers = make(http.Header)
	}

	return &domain.Endpoint{
		URL:     u,
		Method:  method,
		Task:    task,
		Headers: headers,
		Target:  target,
	}, nil
}

// graphQLPayload is the wire body of a GraphQL operation.
type graphQLPayload struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// DefaultBuild encodes the endpoint's task into a request. Bodies are
// replayable so retries can resend them.
func DefaultBuild(ctx context.Context, endpoint *domain.Endpoint) (*http.Request, error) {
	u := *endpoint.URL

	var (
		body        []byte
		contentType string
	)

	switch task := endpoint.Task.(type) {
	case nil, domain.RequestPlain:
		// No body
	case domain.RequestData:
		body = task.Body
		if body == nil {
			body = []byte{}
		}
		contentType = task.ContentType
	case domain.RequestJSON:
		encoded, err := json.Marshal(task.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON body: %w", err)
		}
		body = encoded
		contentType = contentTypeJSON
	case domain.RequestParameters:
		if parametersInQuery(task.Encoding, endpoint.Method) {
			u.RawQuery = mergeQuery(u.Query(), task.Params).Encode()
		} else {
			body = []byte(task.Params.Encode())
			contentType = contentTypeForm
		}
	case domain.RequestComposite:
		encoded, err := json.Marshal(task.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON body: %w", err)
		}
		body = encoded
		contentType = contentTypeJSON
		u.RawQuery = mergeQuery(u.Query(), task.Query).Encode()
	case domain.RequestGraphQL:
		if _, err := parser.ParseQuery(&ast.Source{Name: "request", Input: task.Query}); err != nil {
			return nil, fmt.Errorf("invalid GraphQL query: %w", err)
		}
		encoded, err := json.Marshal(graphQLPayload{
			Query:         task.Query,
			Variables:     task.Variables,
			OperationName: task.OperationName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode GraphQL body: %w", err)
		}
		body = encoded
		contentType = contentTypeJSON
	default:
		return nil, fmt.Errorf("unsupported task %T", endpoint.Task)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, endpoint.Method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range endpoint.Headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func parametersInQuery(encoding domain.ParameterEncoding, method string) bool {
	switch encoding {
	case domain.EncodingQuery:
		return true
	case domain.EncodingForm:
		return false
	default:
		switch method {
		case http.MethodGet, http.MethodHead, http.MethodDelete:
			return true
		}
		return false
	}
}

func mergeQuery(existing, extra url.Values) url.Values {
	for key, values := range extra {
		for _, v := range values {
			existing.Add(key, v)
		}
	}
	return existing
}
