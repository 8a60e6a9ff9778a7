package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/tjfontaine/courier/internal/storage/memory"
	"github.com/tjfontaine/courier/internal/storage/redis"
	"github.com/tjfontaine/courier/internal/storage/sqlite"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		store, err := Open(ctx, Config{Driver: DriverNone})
		if err != nil || store != nil {
			t.Errorf("Open(none) = %v, %v", store, err)
		}
	})

	t.Run("memory", func(t *testing.T) {
		store, err := Open(ctx, Config{Driver: DriverMemory, Capacity: 10})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, ok := store.(*memory.Store); !ok {
			t.Errorf("expected memory store, got %T", store)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := Open(ctx, Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "exchanges.db")})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer store.Close()
		if _, ok := store.(*sqlite.Store); !ok {
			t.Errorf("expected sqlite store, got %T", store)
		}
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := Open(ctx, Config{Driver: DriverRedis, URL: "redis://" + mr.Addr(), KeyPrefix: "test:"})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer store.Close()
		if _, ok := store.(*redis.Store); !ok {
			t.Errorf("expected redis store, got %T", store)
		}
	})

	missing := []struct {
		name string
		cfg  Config
	}{
		{name: "sqlite without path", cfg: Config{Driver: DriverSQLite}},
		{name: "postgres without dsn", cfg: Config{Driver: DriverPostgres}},
		{name: "redis without url", cfg: Config{Driver: DriverRedis}},
		{name: "unknown", cfg: Config{Driver: "mongo"}},
	}
	for _, tt := range missing {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(ctx, tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
