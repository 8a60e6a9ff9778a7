package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/courier/internal/testutil"
)

func TestHTTPExecutor_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("expected header to be forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	exec := NewHTTPExecutor()
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("X-Test", "yes")

	data, resp, err := exec.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", resp.StatusCode)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected body: %q", data)
	}
}

func TestHTTPExecutor_ErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	data, resp, err := NewHTTPExecutor().Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError || strings.TrimSpace(string(data)) != "nope" {
		t.Errorf("unexpected response: %d %q", resp.StatusCode, data)
	}
}

func TestHTTPExecutor_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	data, resp, err := NewHTTPExecutor(WithMaxBodySize(16)).Execute(context.Background(), req)

	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	if resp == nil {
		t.Fatal("expected response alongside the error")
	}
	if len(data) != 16 {
		t.Errorf("expected truncated body of 16 bytes, got %d", len(data))
	}
}

func TestHTTPExecutor_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	data, resp, err := NewHTTPExecutor().Execute(context.Background(), req)
	if err == nil {
		t.Fatal("expected connection error")
	}
	if data != nil || resp != nil {
		t.Error("expected neither data nor response")
	}
}

func TestHTTPExecutor_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, _, err := NewHTTPExecutor().Execute(ctx, req)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestHTTPExecutor_PrivateAddressGuard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("guarded request reached the server")
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, _, err := NewHTTPExecutor(WithPrivateAddressGuard()).Execute(context.Background(), req)
	if !errors.Is(err, ErrPrivateAddress) {
		t.Errorf("expected ErrPrivateAddress, got %v", err)
	}
}

func TestHTTPExecutor_Replay(t *testing.T) {
	r := testutil.NewRecorder(t, "users")
	exec := NewHTTPExecutor(WithHTTPClient(testutil.HTTPClient(r)))

	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1/users/42", nil)
	req.Header.Set("Accept", "application/json")

	data, resp, err := exec.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if string(data) != `{"id":42,"name":"ada"}` {
		t.Errorf("unexpected body: %q", data)
	}
}

func TestHTTPExecutor_OptionsDoNotModifyCallerClient(t *testing.T) {
	custom := &http.Client{Timeout: time.Minute}

	exec := NewHTTPExecutor(WithHTTPClient(custom), WithTimeout(time.Second), WithPrivateAddressGuard())
	if custom.Timeout != time.Minute || custom.Transport != nil {
		t.Errorf("caller client modified: timeout %v, transport %v", custom.Timeout, custom.Transport)
	}
	if exec.client == custom || exec.client.Timeout != time.Second {
		t.Errorf("executor client = %+v, want a copy with a 1s timeout", exec.client)
	}

	fallback := NewHTTPExecutor(WithHTTPClient(nil), WithTimeout(time.Second))
	if fallback.client == nil || fallback.client.Timeout != time.Second {
		t.Errorf("nil client should keep the default, got %+v", fallback.client)
	}
}

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.0.10", true},
		{"169.254.169.254", true},
		{"::1", true},
		{"0.0.0.0", true},
		{"93.184.216.34", false},
		{"2606:4700:4700::1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isPrivate(net.ParseIP(tt.ip)); got != tt.want {
				t.Errorf("isPrivate(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}
