package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tjfontaine/courier/internal/runtime"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "courier.yaml")
	content := `
service:
  base_url: ` + baseURL + `
log:
  level: error
retry:
  enabled: false
recorder:
  driver: sqlite
  path: ` + filepath.Join(dir, "exchanges.db") + `
endpoints:
  - name: list_users
    method: GET
    path: /users
  - name: create_user
    method: POST
    path: /users
    body:
      name: ada
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users":
			w.Write([]byte(`[{"id":1}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/users":
			var buf bytes.Buffer
			buf.ReadFrom(r.Body)
			w.WriteHeader(http.StatusCreated)
			w.Write(buf.Bytes())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCallCommand(t *testing.T) {
	upstream := newUpstream(t)
	config := writeConfig(t, upstream.URL)

	out, err := run(t, "--config", config, "call", "list_users")
	if err != nil {
		t.Fatalf("call error = %v", err)
	}
	if out != `[{"id":1}]` {
		t.Errorf("output = %q", out)
	}
}

func TestCallCommand_BodyOverride(t *testing.T) {
	upstream := newUpstream(t)
	config := writeConfig(t, upstream.URL)

	out, err := run(t, "--config", config, "call", "create_user", "--body", `{"name":"grace"}`)
	if err != nil {
		t.Fatalf("call error = %v", err)
	}
	if !strings.Contains(out, `"grace"`) {
		t.Errorf("output = %q, want the overridden body echoed", out)
	}
}

func TestCallCommand_Errors(t *testing.T) {
	upstream := newUpstream(t)
	config := writeConfig(t, upstream.URL)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{name: "unknown endpoint", args: []string{"call", "missing"}, is: runtime.ErrUnknownEndpoint},
		{name: "invalid body", args: []string{"call", "create_user", "--body", "{"}},
		{name: "missing endpoint argument", args: []string{"call"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--config", config}, tt.args...)...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestEndpointsCommand(t *testing.T) {
	config := writeConfig(t, "https://api.example.com")

	out, err := run(t, "--config", config, "endpoints")
	if err != nil {
		t.Fatalf("endpoints error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("output lines = %d, want header and two endpoints:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "create_user") || !strings.Contains(lines[2], "https://api.example.com/users") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestExchangesCommand(t *testing.T) {
	upstream := newUpstream(t)
	config := writeConfig(t, upstream.URL)

	if _, err := run(t, "--config", config, "call", "list_users"); err != nil {
		t.Fatalf("call error = %v", err)
	}

	out, err := run(t, "--config", config, "exchanges", "--target", "list_users")
	if err != nil {
		t.Fatalf("exchanges error = %v", err)
	}
	if !strings.Contains(out, `"target":"list_users"`) || strings.Count(out, "\n") != 1 {
		t.Errorf("output = %q, want one list_users record", out)
	}

	if _, err := run(t, "--config", config, "exchanges", "--limit", "0"); err == nil {
		t.Error("expected error for a zero limit")
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "endpoints")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Errorf("err = %v, want load config error", err)
	}
}
