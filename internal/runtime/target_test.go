package runtime

import (
	"net/http"
	"net/url"
	"reflect"
	"testing"

	"github.com/tjfontaine/courier/internal/config"
	"github.com/tjfontaine/courier/internal/core/domain"
)

func TestNewEndpointTarget_Task(t *testing.T) {
	tests := []struct {
		name string
		ep   config.EndpointConfig
		want domain.Task
	}{
		{
			name: "plain",
			ep:   config.EndpointConfig{Name: "a"},
			want: domain.RequestPlain{},
		},
		{
			name: "query only",
			ep:   config.EndpointConfig{Name: "a", Query: map[string]string{"page": "2"}},
			want: domain.RequestParameters{Params: url.Values{"page": {"2"}}, Encoding: domain.EncodingQuery},
		},
		{
			name: "body only",
			ep:   config.EndpointConfig{Name: "a", Body: map[string]any{"name": "ada"}},
			want: domain.RequestJSON{Value: map[string]any{"name": "ada"}},
		},
		{
			name: "body and query",
			ep: config.EndpointConfig{
				Name:  "a",
				Body:  map[string]any{"name": "ada"},
				Query: map[string]string{"dry_run": "true"},
			},
			want: domain.RequestComposite{
				Body:  map[string]any{"name": "ada"},
				Query: url.Values{"dry_run": {"true"}},
			},
		},
		{
			name: "graphql",
			ep: config.EndpointConfig{
				Name:    "a",
				GraphQL: &config.GraphQLConfig{Query: "{ viewer { id } }", OperationName: "Viewer"},
			},
			want: domain.RequestGraphQL{Query: "{ viewer { id } }", OperationName: "Viewer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEndpointTarget(tt.ep, "https://api.example.com", "none").Task()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Task() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNewEndpointTarget_Defaults(t *testing.T) {
	target := NewEndpointTarget(config.EndpointConfig{
		Name:    "list_users",
		Path:    "/users",
		Headers: map[string]string{"x-api-key": "k"},
	}, "https://api.example.com", "bearer")

	if target.Name() != "list_users" {
		t.Errorf("Name() = %q", target.Name())
	}
	if target.Method() != http.MethodGet {
		t.Errorf("Method() = %q, want GET", target.Method())
	}
	if target.BaseURL() != "https://api.example.com" {
		t.Errorf("BaseURL() = %q, want service base url", target.BaseURL())
	}
	if target.Headers().Get("X-Api-Key") != "k" {
		t.Errorf("Headers() = %v", target.Headers())
	}
	if target.AuthorizationType() != domain.AuthBearer {
		t.Errorf("AuthorizationType() = %v, want bearer", target.AuthorizationType())
	}
	if _, ok := target.PlaceholderData(); ok {
		t.Error("PlaceholderData() should report no placeholder")
	}
	if target.SampleData() != nil {
		t.Errorf("SampleData() = %q, want nil", target.SampleData())
	}
	if target.ValidStatusCodes() != nil {
		t.Errorf("ValidStatusCodes() = %v, want nil", target.ValidStatusCodes())
	}
}

func TestNewEndpointTarget_Overrides(t *testing.T) {
	target := NewEndpointTarget(config.EndpointConfig{
		Name:          "health",
		BaseURL:       "https://status.example.com",
		Method:        "post",
		Auth:          "none",
		Sample:        `{"ok":true}`,
		Placeholder:   `{"ok":"cached"}`,
		ValidStatuses: []int{200, 204},
	}, "https://api.example.com", "bearer")

	if target.BaseURL() != "https://status.example.com" {
		t.Errorf("BaseURL() = %q", target.BaseURL())
	}
	if target.Method() != http.MethodPost {
		t.Errorf("Method() = %q, want POST", target.Method())
	}
	if !target.AuthorizationType().IsNone() {
		t.Errorf("AuthorizationType() = %v, want none", target.AuthorizationType())
	}
	if string(target.SampleData()) != `{"ok":true}` {
		t.Errorf("SampleData() = %q", target.SampleData())
	}
	data, ok := target.PlaceholderData()
	if !ok || string(data) != `{"ok":"cached"}` {
		t.Errorf("PlaceholderData() = %q, %v", data, ok)
	}
	if !reflect.DeepEqual(target.ValidStatusCodes(), []int{200, 204}) {
		t.Errorf("ValidStatusCodes() = %v", target.ValidStatusCodes())
	}
}

func TestEndpointTarget_WithBody(t *testing.T) {
	base := NewEndpointTarget(config.EndpointConfig{
		Name:  "search",
		Query: map[string]string{"page": "1"},
	}, "https://api.example.com", "")

	got := base.WithBody(map[string]any{"q": "go"})

	want := domain.RequestComposite{
		Body:  map[string]any{"q": "go"},
		Query: url.Values{"page": {"1"}},
	}
	if !reflect.DeepEqual(got.Task(), want) {
		t.Errorf("WithBody().Task() = %#v, want %#v", got.Task(), want)
	}
	if _, ok := base.Task().(domain.RequestParameters); !ok {
		t.Errorf("WithBody mutated the original task: %#v", base.Task())
	}
}

func TestEndpointTarget_WithQuery(t *testing.T) {
	base := NewEndpointTarget(config.EndpointConfig{
		Name:  "search",
		Query: map[string]string{"page": "1", "size": "10"},
	}, "https://api.example.com", "")

	got := base.WithQuery(url.Values{"page": {"2"}})

	params, ok := got.Task().(domain.RequestParameters)
	if !ok {
		t.Fatalf("WithQuery().Task() = %#v", got.Task())
	}
	if params.Params.Get("page") != "2" || params.Params.Get("size") != "10" {
		t.Errorf("params = %v, want page=2 size=10", params.Params)
	}
	if base.Task().(domain.RequestParameters).Params.Get("page") != "1" {
		t.Error("WithQuery mutated the original parameters")
	}
	if base.WithQuery(nil) != base {
		t.Error("WithQuery(nil) should return the receiver")
	}
}
