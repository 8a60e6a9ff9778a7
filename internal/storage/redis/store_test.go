package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/tjfontaine/courier/internal/core/ports"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := New(context.Background(), Config{URL: "redis://" + mr.Addr(), TTL: ttl})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	store, mr := newTestStore(t, 0)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &ports.ExchangeRecord{
		ID: "ex-1", RequestID: "req-1", Target: "users", Method: "GET",
		URL: "https://api.example.com/users", StatusCode: 503, Outcome: "failure",
		ErrorKind: "transport_failed", BodySize: 4, CreatedAt: created,
	}
	if err := store.SaveExchange(ctx, rec); err != nil {
		t.Fatalf("SaveExchange() error = %v", err)
	}

	got, err := store.GetExchange(ctx, "ex-1")
	if err != nil {
		t.Fatalf("GetExchange() error = %v", err)
	}
	if got.RequestID != "req-1" || got.StatusCode != 503 || !got.CreatedAt.Equal(created) {
		t.Errorf("unexpected record: %+v", got)
	}

	if !mr.Exists("courier:exchange:ex-1") {
		t.Error("expected record under the default key prefix")
	}

	if err := store.SaveExchange(ctx, rec); err == nil {
		t.Error("expected duplicate save to fail")
	}
}

func TestRedisStore_NotFound(t *testing.T) {
	store, _ := newTestStore(t, 0)

	_, err := store.GetExchange(context.Background(), "missing")
	if !errors.Is(err, ports.ErrExchangeNotFound) {
		t.Errorf("expected ErrExchangeNotFound, got %v", err)
	}
}

func TestRedisStore_List(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		id, target, outcome string
	}{
		{"ex-1", "users", "success"},
		{"ex-2", "orders", "failure"},
		{"ex-3", "users", "failure"},
	}
	for i, s := range seed {
		err := store.SaveExchange(ctx, &ports.ExchangeRecord{
			ID: s.id, Target: s.target, Method: "GET", URL: "https://x/" + s.target,
			Outcome: s.outcome, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveExchange() error = %v", err)
		}
	}

	tests := []struct {
		name string
		opts ports.ExchangeListOptions
		want []string
	}{
		{name: "all newest first", want: []string{"ex-3", "ex-2", "ex-1"}},
		{name: "by target", opts: ports.ExchangeListOptions{Target: "users"}, want: []string{"ex-3", "ex-1"}},
		{name: "by outcome", opts: ports.ExchangeListOptions{Outcome: "failure"}, want: []string{"ex-3", "ex-2"}},
		{name: "limit", opts: ports.ExchangeListOptions{Limit: 1}, want: []string{"ex-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListExchanges(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListExchanges() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("record %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestRedisStore_ListSpansBatches(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	total := scanBatch + 20
	for i := 0; i < total; i++ {
		target := "other"
		if i%2 == 0 {
			target = "users"
		}
		err := store.SaveExchange(ctx, &ports.ExchangeRecord{
			ID: fmt.Sprintf("ex-%03d", i), Target: target, Method: "GET", URL: "https://x",
			Outcome: "success", CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("SaveExchange() error = %v", err)
		}
	}

	got, err := store.ListExchanges(ctx, ports.ExchangeListOptions{Target: "users", Limit: total})
	if err != nil {
		t.Fatalf("ListExchanges() error = %v", err)
	}
	if len(got) != total/2 {
		t.Errorf("got %d records, want %d", len(got), total/2)
	}
}

func TestRedisStore_ExpiredRecordsArePruned(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	if err := store.SaveExchange(ctx, &ports.ExchangeRecord{ID: "old", Target: "t", Method: "GET", URL: "https://x", Outcome: "success"}); err != nil {
		t.Fatalf("SaveExchange() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := store.SaveExchange(ctx, &ports.ExchangeRecord{ID: "new", Target: "t", Method: "GET", URL: "https://x", Outcome: "success"}); err != nil {
		t.Fatalf("SaveExchange() error = %v", err)
	}

	got, err := store.ListExchanges(ctx, ports.ExchangeListOptions{})
	if err != nil {
		t.Fatalf("ListExchanges() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("ListExchanges() = %+v, want only the live record", got)
	}

	members, err := mr.ZMembers("courier:exchanges")
	if err != nil {
		t.Fatalf("ZMembers() error = %v", err)
	}
	if len(members) != 1 || members[0] != "new" {
		t.Errorf("index members = %v, want [new]", members)
	}
}
