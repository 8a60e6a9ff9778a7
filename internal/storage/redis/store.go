// Package redis stores exchange records in Redis. Each record is a JSON
// string key; a sorted set scored by creation time indexes them newest
// first.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tjfontaine/courier/internal/core/ports"
)

const (
	defaultListLimit = 100
	defaultPrefix    = "courier:"
	scanBatch        = 100
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string
	Password string
	// KeyPrefix namespaces every key. Defaults to "courier:".
	KeyPrefix string
	// TTL expires records. Zero keeps them forever.
	TTL time.Duration
}

// Store is a Redis implementation of ExchangeStore.
type Store struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ ports.ExchangeStore = (*Store)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix, ttl: cfg.TTL}, nil
}

func (s *Store) recordKey(id string) string {
	return s.prefix + "exchange:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + "exchanges"
}

func (s *Store) SaveExchange(ctx context.Context, rec *ports.ExchangeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode exchange: %w", err)
	}

	created, err := s.rdb.SetNX(ctx, s.recordKey(rec.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	if !created {
		return fmt.Errorf("exchange %s already exists", rec.ID)
	}

	score := float64(rec.CreatedAt.UnixMicro())
	if err := s.rdb.ZAdd(ctx, s.indexKey(), redis.Z{Score: score, Member: rec.ID}).Err(); err != nil {
		return fmt.Errorf("failed to index exchange: %w", err)
	}
	return nil
}

func (s *Store) GetExchange(ctx context.Context, id string) (*ports.ExchangeRecord, error) {
	data, err := s.rdb.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ports.ErrExchangeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}

	var rec ports.ExchangeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode exchange %s: %w", id, err)
	}
	return &rec, nil
}

// ListExchanges walks the index newest first, filtering as it goes. Index
// entries whose record has expired are pruned.
func (s *Store) ListExchanges(ctx context.Context, opts ports.ExchangeListOptions) ([]*ports.ExchangeRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var records []*ports.ExchangeRecord
	for start := int64(0); len(records) < limit; start += scanBatch {
		ids, err := s.rdb.ZRevRange(ctx, s.indexKey(), start, start+scanBatch-1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list exchanges: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = s.recordKey(id)
		}
		values, err := s.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load exchanges: %w", err)
		}

		var expired []any
		for i, value := range values {
			raw, ok := value.(string)
			if !ok {
				expired = append(expired, ids[i])
				continue
			}
			var rec ports.ExchangeRecord
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				return nil, fmt.Errorf("failed to decode exchange %s: %w", ids[i], err)
			}
			if opts.Target != "" && rec.Target != opts.Target {
				continue
			}
			if opts.Outcome != "" && rec.Outcome != opts.Outcome {
				continue
			}
			records = append(records, &rec)
			if len(records) == limit {
				break
			}
		}

		if len(expired) > 0 {
			if err := s.rdb.ZRem(ctx, s.indexKey(), expired...).Err(); err != nil {
				return nil, fmt.Errorf("failed to prune exchange index: %w", err)
			}
			// Pruning shifts later ranks down.
			start -= int64(len(expired))
		}
		if len(ids) < scanBatch {
			break
		}
	}
	return records, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
