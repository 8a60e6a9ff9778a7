package runtime

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tjfontaine/courier/internal/config"
	"github.com/tjfontaine/courier/internal/core/domain"
)

// EndpointTarget is a domain.Target described by configuration. It also
// provides sample data, placeholder data, status validation and an
// authorization type when the configuration asks for them.
type EndpointTarget struct {
	name          string
	baseURL       string
	method        string
	path          string
	headers       http.Header
	task          domain.Task
	sample        []byte
	placeholder   []byte
	hasPH         bool
	authType      domain.AuthorizationType
	validStatuses []int
}

var (
	_ domain.Target                  = (*EndpointTarget)(nil)
	_ domain.SampleDataProvider      = (*EndpointTarget)(nil)
	_ domain.Placeholder             = (*EndpointTarget)(nil)
	_ domain.Validatable             = (*EndpointTarget)(nil)
	_ domain.AccessTokenAuthorizable = (*EndpointTarget)(nil)
)

// NewEndpointTarget builds a target from ep. serviceBaseURL and defaultAuth
// apply when the endpoint does not set its own.
func NewEndpointTarget(ep config.EndpointConfig, serviceBaseURL, defaultAuth string) *EndpointTarget {
	t := &EndpointTarget{
		name:          ep.Name,
		baseURL:       ep.BaseURL,
		method:        strings.ToUpper(ep.Method),
		path:          ep.Path,
		task:          taskFor(ep),
		validStatuses: append([]int(nil), ep.ValidStatuses...),
	}
	if t.baseURL == "" {
		t.baseURL = serviceBaseURL
	}
	if t.method == "" {
		t.method = http.MethodGet
	}

	if len(ep.Headers) > 0 {
		t.headers = make(http.Header, len(ep.Headers))
		for key, value := range ep.Headers {
			t.headers.Set(key, value)
		}
	}

	if ep.Sample != "" {
		t.sample = []byte(ep.Sample)
	}
	if ep.Placeholder != "" {
		t.placeholder = []byte(ep.Placeholder)
		t.hasPH = true
	}

	auth := ep.Auth
	if auth == "" {
		auth = defaultAuth
	}
	t.authType = domain.ParseAuthorizationType(auth)

	return t
}

func taskFor(ep config.EndpointConfig) domain.Task {
	if ep.GraphQL != nil {
		return domain.RequestGraphQL{
			Query:         ep.GraphQL.Query,
			Variables:     ep.GraphQL.Variables,
			OperationName: ep.GraphQL.OperationName,
		}
	}

	query := toValues(ep.Query)
	switch {
	case ep.Body != nil && query != nil:
		return domain.RequestComposite{Body: ep.Body, Query: query}
	case ep.Body != nil:
		return domain.RequestJSON{Value: ep.Body}
	case query != nil:
		return domain.RequestParameters{Params: query, Encoding: domain.EncodingQuery}
	default:
		return domain.RequestPlain{}
	}
}

func toValues(m map[string]string) url.Values {
	if len(m) == 0 {
		return nil
	}
	values := make(url.Values, len(m))
	for key, value := range m {
		values.Set(key, value)
	}
	return values
}

func (t *EndpointTarget) Name() string         { return t.name }
func (t *EndpointTarget) BaseURL() string      { return t.baseURL }
func (t *EndpointTarget) Path() string         { return t.path }
func (t *EndpointTarget) Method() string       { return t.method }
func (t *EndpointTarget) Task() domain.Task    { return t.task }
func (t *EndpointTarget) Headers() http.Header { return t.headers }
func (t *EndpointTarget) SampleData() []byte   { return t.sample }

func (t *EndpointTarget) PlaceholderData() ([]byte, bool) {
	return t.placeholder, t.hasPH
}

// ValidStatusCodes returns nil when every status is accepted.
func (t *EndpointTarget) ValidStatusCodes() []int {
	return t.validStatuses
}

func (t *EndpointTarget) AuthorizationType() domain.AuthorizationType {
	return t.authType
}

// WithBody returns a copy of t that sends body as JSON, keeping any
// configured query parameters.
func (t *EndpointTarget) WithBody(body any) *EndpointTarget {
	out := *t
	switch task := t.task.(type) {
	case domain.RequestComposite:
		out.task = domain.RequestComposite{Body: body, Query: task.Query}
	case domain.RequestParameters:
		out.task = domain.RequestComposite{Body: body, Query: task.Params}
	case domain.RequestGraphQL:
		// GraphQL bodies are built from the operation; body supplies variables.
		if vars, ok := body.(map[string]any); ok {
			task.Variables = vars
		}
		out.task = task
	default:
		out.task = domain.RequestJSON{Value: body}
	}
	return &out
}

// WithQuery returns a copy of t with query merged over the configured
// parameters.
func (t *EndpointTarget) WithQuery(query url.Values) *EndpointTarget {
	if len(query) == 0 {
		return t
	}
	out := *t
	switch task := t.task.(type) {
	case domain.RequestPlain:
		out.task = domain.RequestParameters{Params: query, Encoding: domain.EncodingQuery}
	case domain.RequestParameters:
		out.task = domain.RequestParameters{Params: merge(task.Params, query), Encoding: task.Encoding}
	case domain.RequestJSON:
		out.task = domain.RequestComposite{Body: task.Value, Query: query}
	case domain.RequestComposite:
		out.task = domain.RequestComposite{Body: task.Body, Query: merge(task.Query, query)}
	}
	return &out
}

func merge(base, extra url.Values) url.Values {
	out := make(url.Values, len(base)+len(extra))
	for key, values := range base {
		out[key] = append([]string(nil), values...)
	}
	for key, values := range extra {
		out[key] = append([]string(nil), values...)
	}
	return out
}
