// Package storage opens exchange stores by driver name.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/tjfontaine/courier/internal/core/ports"
	"github.com/tjfontaine/courier/internal/storage/memory"
	"github.com/tjfontaine/courier/internal/storage/postgres"
	"github.com/tjfontaine/courier/internal/storage/redis"
	"github.com/tjfontaine/courier/internal/storage/sqlite"
)

// Re-export storage types from core/ports.
type (
	ExchangeStore       = ports.ExchangeStore
	ExchangeRecord      = ports.ExchangeRecord
	ExchangeListOptions = ports.ExchangeListOptions
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverNone     = "none"
)

// Config selects and configures a store.
type Config struct {
	Driver string
	// Path is the SQLite database path or DSN.
	Path string
	// Capacity bounds the memory store. Zero keeps every record.
	Capacity int

	// DSN and SQLDriver configure the postgres store.
	DSN       string
	SQLDriver string

	// URL, Password, KeyPrefix and TTL configure the redis store.
	URL       string
	Password  string
	KeyPrefix string
	TTL       time.Duration
}

// Open returns the configured store, or nil for DriverNone and an empty
// driver.
func Open(ctx context.Context, cfg Config) (ExchangeStore, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return memory.New(cfg.Capacity), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite recorder requires a path")
		}
		return sqlite.New(cfg.Path)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres recorder requires a dsn")
		}
		return postgres.New(ctx, postgres.Config{DSN: cfg.DSN, Driver: cfg.SQLDriver})
	case DriverRedis:
		if cfg.URL == "" {
			return nil, fmt.Errorf("redis recorder requires a url")
		}
		return redis.New(ctx, redis.Config{
			URL:       cfg.URL,
			Password:  cfg.Password,
			KeyPrefix: cfg.KeyPrefix,
			TTL:       cfg.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown recorder driver: %s", cfg.Driver)
	}
}
