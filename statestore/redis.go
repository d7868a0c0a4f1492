package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parleylabs/gauntlet/engine"
)

const defaultRedisTTL = 24 * time.Hour

// RedisStore persists results in Redis. Results are stored as JSON under
// <prefix>:result:<id>, with a per-run list of result ids for enumeration.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the expiry applied to stored results. Default 24h.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithPrefix sets the key namespace. Default "gauntlet".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore connects to the Redis instance at addr.
func NewRedisStore(addr string, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    defaultRedisTTL,
		prefix: "gauntlet",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) resultKey(id string) string {
	return fmt.Sprintf("%s:result:%s", s.prefix, id)
}

func (s *RedisStore) runKey(runID string) string {
	return fmt.Sprintf("%s:run:%s", s.prefix, runID)
}

// SaveResult stores the result JSON and indexes it under its run. Updates
// keep one entry per result id in the run listing.
func (s *RedisStore) SaveResult(ctx context.Context, result *engine.RunResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", result.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.resultKey(result.ID), data, s.ttl)
	pipe.LRem(ctx, s.runKey(result.RunID), 0, result.ID)
	pipe.RPush(ctx, s.runKey(result.RunID), result.ID)
	pipe.Expire(ctx, s.runKey(result.RunID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving result %s: %w", result.ID, err)
	}
	return nil
}

// GetResult loads one result by id.
func (s *RedisStore) GetResult(ctx context.Context, id string) (*engine.RunResult, error) {
	data, err := s.client.Get(ctx, s.resultKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading result %s: %w", id, err)
	}

	var result engine.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding result %s: %w", id, err)
	}
	return &result, nil
}

// ListResults loads every result indexed under the run. Results whose keys
// have expired are skipped.
func (s *RedisStore) ListResults(ctx context.Context, runID string) ([]*engine.RunResult, error) {
	ids, err := s.client.LRange(ctx, s.runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing run %s: %w", runID, err)
	}

	out := make([]*engine.RunResult, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetResult(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
