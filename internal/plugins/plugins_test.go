package plugins

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
	"github.com/tjfontaine/courier/internal/pipeline"
	"github.com/tjfontaine/courier/internal/storage/memory"
)

type target struct {
	method string
}

func (t target) BaseURL() string      { return "https://api.example.com" }
func (t target) Path() string         { return "users" }
func (t target) Method() string       { return t.method }
func (t target) Task() domain.Task    { return domain.RequestPlain{} }
func (t target) Headers() http.Header { return nil }
func (t target) Name() string         { return "list_users" }

type authTarget struct {
	target
	authType domain.AuthorizationType
}

func (t authTarget) AuthorizationType() domain.AuthorizationType { return t.authType }

// fixedExecutor answers every request with status and body.
type fixedExecutor struct {
	status int
	body   string
	err    error
	last   *http.Request
}

func (e *fixedExecutor) Execute(_ context.Context, req *http.Request) ([]byte, *http.Response, error) {
	e.last = req
	if e.err != nil {
		return nil, nil, e.err
	}
	return []byte(e.body), &http.Response{StatusCode: e.status, Header: http.Header{"Content-Type": {"text/plain"}}, Request: req}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/users", nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestAccessToken(t *testing.T) {
	plugin := AccessToken(StaticToken("secret"))

	tests := []struct {
		name   string
		target domain.Target
		want   string
	}{
		{name: "bearer", target: authTarget{authType: domain.AuthBearer}, want: "Bearer secret"},
		{name: "basic", target: authTarget{authType: domain.AuthBasic}, want: "Basic secret"},
		{name: "custom", target: authTarget{authType: domain.AuthCustom("Token")}, want: "Token secret"},
		{name: "none", target: authTarget{authType: domain.AuthNone}, want: ""},
		{name: "not authorizable", target: target{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := plugin.PrepareRequest(context.Background(), newRequest(t), tt.target)
			if got := req.Header.Get("Authorization"); got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccessToken_EmptyTokenLeavesRequest(t *testing.T) {
	plugin := AccessToken(StaticToken(""))
	req := plugin.PrepareRequest(context.Background(), newRequest(t), authTarget{authType: domain.AuthBearer})
	if req.Header.Get("Authorization") != "" {
		t.Error("expected no Authorization header")
	}
}

func TestCredentials(t *testing.T) {
	plugin := Credentials(func(t domain.Target) (string, string, bool) {
		return "ada", "lovelace", t.Method() == http.MethodPost
	})

	req := plugin.PrepareRequest(context.Background(), newRequest(t), target{method: http.MethodPost})
	user, pass, ok := req.BasicAuth()
	if !ok || user != "ada" || pass != "lovelace" {
		t.Errorf("BasicAuth() = %q, %q, %v", user, pass, ok)
	}

	req = plugin.PrepareRequest(context.Background(), newRequest(t), target{method: http.MethodGet})
	if _, _, ok := req.BasicAuth(); ok {
		t.Error("expected no credentials")
	}
}

func TestRequestID(t *testing.T) {
	plugin := RequestID()

	t.Run("generates", func(t *testing.T) {
		req := plugin.PrepareRequest(context.Background(), newRequest(t), target{})
		if len(req.Header.Get(RequestIDHeader)) != 36 {
			t.Errorf("expected UUID, got %q", req.Header.Get(RequestIDHeader))
		}
	})

	t.Run("keeps existing header", func(t *testing.T) {
		r := newRequest(t)
		r.Header.Set(RequestIDHeader, "caller-id")
		req := plugin.PrepareRequest(context.Background(), r, target{})
		if got := req.Header.Get(RequestIDHeader); got != "caller-id" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("context wins", func(t *testing.T) {
		r := newRequest(t)
		r.Header.Set(RequestIDHeader, "caller-id")
		ctx := WithRequestID(context.Background(), "ctx-id")
		req := plugin.PrepareRequest(ctx, r, target{})
		if got := req.Header.Get(RequestIDHeader); got != "ctx-id" {
			t.Errorf("got %q", got)
		}
	})
}

func TestRequestID_StableAcrossRetries(t *testing.T) {
	var ids []string
	capture := ports.Plugin{
		Name: "capture",
		WillSend: func(_ context.Context, req *http.Request, _ domain.Target) {
			ids = append(ids, req.Header.Get(RequestIDHeader))
		},
	}
	retryOnce := ports.CompletionFunc(func(_ context.Context, a ports.Attempt) ports.Decision {
		if a.Number == 1 {
			return ports.Retry
		}
		return ports.Proceed
	})

	p := pipeline.New(&fixedExecutor{status: 200},
		pipeline.WithPlugins(RequestID(), capture),
		pipeline.WithCompletion(retryOnce))
	if _, err := p.Do(context.Background(), target{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 2 || ids[0] == "" || ids[0] != ids[1] {
		t.Errorf("expected the same ID on both attempts, got %v", ids)
	}
}

func TestNetworkActivity(t *testing.T) {
	var changes []string
	plugin := NetworkActivity(func(change ActivityChange, target domain.Target) {
		changes = append(changes, change.String()+":"+domain.TargetName(target))
	})

	p := pipeline.New(&fixedExecutor{status: 200}, pipeline.WithPlugins(plugin))
	if _, err := p.Do(context.Background(), target{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "began:list_users,ended:list_users"
	if got := strings.Join(changes, ","); got != want {
		t.Errorf("changes = %s, want %s", got, want)
	}
}

func TestNetworkLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := pipeline.New(&fixedExecutor{status: 200, body: "hello"},
		pipeline.WithPlugins(
			RequestID(),
			AccessToken(StaticToken("secret")),
			NetworkLogger(logger, LogHeaders(), LogBodies(3)),
		))
	if _, err := p.Do(context.Background(), authTarget{authType: domain.AuthBearer}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"sending request", "received response", "status=200", "body=hel...", "request_id=", "[REDACTED]"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Errorf("log output leaked the token:\n%s", out)
	}
}

func TestNetworkLogger_Failure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := pipeline.New(&fixedExecutor{err: errors.New("connection refused")},
		pipeline.WithPlugins(NetworkLogger(logger)))
	p.Do(context.Background(), target{})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "error_kind=transport_failed") {
		t.Errorf("expected warn line with error kind:\n%s", out)
	}
}

func TestMetricsCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewMetricsCollector(registry)

	retryOnce := ports.CompletionFunc(func(_ context.Context, a ports.Attempt) ports.Decision {
		if a.Number == 1 {
			return ports.Retry
		}
		return ports.Proceed
	})

	p := pipeline.New(&fixedExecutor{status: 503},
		pipeline.WithPlugins(collector.Plugin()),
		pipeline.WithCompletion(collector.Completion(retryOnce)))
	if _, err := p.Do(context.Background(), target{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(collector.requestsTotal.WithLabelValues("GET", "503", "list_users")); got != 2 {
		t.Errorf("requests_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.retriesTotal.WithLabelValues("list_users")); got != 1 {
		t.Errorf("retries_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.requestsInFlight.WithLabelValues("GET", "list_users")); got != 0 {
		t.Errorf("requests_in_flight = %v, want 0", got)
	}
	if got := testutil.CollectAndCount(collector.requestDuration); got != 1 {
		t.Errorf("expected one duration series, got %d", got)
	}
}

func TestMetricsCollector_Errors(t *testing.T) {
	collector := NewMetricsCollector(prometheus.NewRegistry())

	p := pipeline.New(&fixedExecutor{err: errors.New("reset")}, pipeline.WithPlugins(collector.Plugin()))
	p.Do(context.Background(), target{})

	if got := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("transport_failed", "GET", "list_users")); got != 1 {
		t.Errorf("errors_total = %v, want 1", got)
	}
}

func TestRecorder(t *testing.T) {
	store := memory.New(0)
	retryOnce := ports.CompletionFunc(func(_ context.Context, a ports.Attempt) ports.Decision {
		if a.Number == 1 {
			return ports.Retry
		}
		return ports.Proceed
	})

	p := pipeline.New(&fixedExecutor{status: 502, body: "bad gateway"},
		pipeline.WithPlugins(RequestID(), Recorder(store, discardLogger())),
		pipeline.WithCompletion(retryOnce))
	if _, err := p.Do(context.Background(), target{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := store.ListExchanges(context.Background(), ports.ExchangeListOptions{})
	if err != nil {
		t.Fatalf("ListExchanges() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected one record per attempt, got %d", len(records))
	}
	rec := records[0]
	if rec.Target != "list_users" || rec.StatusCode != 502 || rec.BodySize != len("bad gateway") {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.URL != "https://api.example.com/users" || rec.Method != http.MethodGet {
		t.Errorf("unexpected request summary: %s %s", rec.Method, rec.URL)
	}
	if rec.RequestID == "" || rec.RequestID != records[1].RequestID {
		t.Error("expected attempts to share the request ID")
	}
}

func TestNewExchangeRecord_Failure(t *testing.T) {
	result := domain.Failure(domain.ErrTransport(errors.New("dns"), nil))
	rec := NewExchangeRecord(result, target{method: http.MethodPost})

	if rec.Outcome != OutcomeFailure || rec.ErrorKind != string(domain.KindTransportFailed) {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Method != http.MethodPost || rec.URL != "https://api.example.com/users" {
		t.Errorf("expected target fallback, got %s %s", rec.Method, rec.URL)
	}
}

// failingStore rejects every write.
type failingStore struct {
	*memory.Store
}

func (failingStore) SaveExchange(context.Context, *ports.ExchangeRecord) error {
	return errors.New("disk full")
}

func TestRecorder_StoreErrorDoesNotFailCall(t *testing.T) {
	p := pipeline.New(&fixedExecutor{status: 200, body: "ok"},
		pipeline.WithPlugins(Recorder(failingStore{memory.New(0)}, discardLogger())))

	resp, err := p.Do(context.Background(), target{})
	if err != nil || resp.MapString() != "ok" {
		t.Errorf("Do() = %v, %v", resp, err)
	}
}
