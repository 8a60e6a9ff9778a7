package courier_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tjfontaine/courier/pkg/courier"
)

type getUser struct {
	baseURL string
	id      string
}

func (g getUser) BaseURL() string                             { return g.baseURL }
func (g getUser) Path() string                                { return "users/" + g.id }
func (g getUser) Method() string                              { return http.MethodGet }
func (g getUser) Task() courier.Task                          { return courier.RequestPlain{} }
func (g getUser) Headers() http.Header                        { return nil }
func (g getUser) AuthorizationType() courier.AuthorizationType { return courier.AuthBearer }

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestPublicAPI(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"ada"}`))
	}))
	defer srv.Close()

	p := courier.New(courier.NewHTTPExecutor(courier.WithTimeout(time.Second)),
		courier.WithPlugins(
			courier.RequestID(),
			courier.AccessToken(courier.StaticToken("tok")),
		),
		courier.WithCompletion(courier.NewStatusRetry(
			courier.RetryBackoff(time.Millisecond, time.Millisecond),
		)),
	)

	got, resp, err := courier.DoTyped(context.Background(), p, getUser{baseURL: srv.URL, id: "7"}, courier.JSON[user]())
	if err != nil {
		t.Fatalf("DoTyped() error = %v", err)
	}
	if got != (user{ID: 7, Name: "ada"}) {
		t.Errorf("DoTyped() = %+v", got)
	}
	if resp.StatusCode != http.StatusOK || hits.Load() != 2 {
		t.Errorf("status = %d after %d hits, want 200 after one retry", resp.StatusCode, hits.Load())
	}
}

func TestPublicAPI_ErrorKinds(t *testing.T) {
	p := courier.New(courier.ExecutorFunc(func(ctx context.Context, req *http.Request) ([]byte, *http.Response, error) {
		return []byte(`{"error":"denied"}`), &http.Response{StatusCode: http.StatusOK, Request: req}, nil
	}))

	parser := courier.JSON[user]().WithProblem(courier.FieldProblem("error"))
	_, _, err := courier.DoTyped(context.Background(), p, getUser{baseURL: "https://api.example.com", id: "1"}, parser)
	if !courier.IsKind(err, courier.KindResponseRejected) {
		t.Fatalf("err = %v, want response rejected", err)
	}

	svcErr, ok := courier.AsServiceError(err)
	if !ok || svcErr.StatusCode() != http.StatusOK {
		t.Errorf("service error = %+v", svcErr)
	}
}
