package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fairhire/internal/config"
	"fairhire/internal/fairness"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps reports as JSON strings under a key prefix
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the server before returning
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisStore(client, cfg.KeyPrefix, ttl), nil
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(auditID string) string {
	return r.prefix + auditID
}

// Save writes the report with the configured expiry
func (r *RedisStore) Save(ctx context.Context, report *fairness.AuditReport) error {
	if err := validateReport(report); err != nil {
		return err
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode audit report: %w", err)
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.key(report.AuditID), data, ttl).Err()
}

// Get reads and decodes the report
func (r *RedisStore) Get(ctx context.Context, auditID string) (*fairness.AuditReport, error) {
	data, err := r.client.Get(ctx, r.key(auditID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.misses.Add(1)
			return nil, ErrNotFound
		}
		return nil, err
	}
	var report fairness.AuditReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode audit report %s: %w", auditID, err)
	}
	r.hits.Add(1)
	return &report, nil
}

func (r *RedisStore) Stats(ctx context.Context) Stats {
	hits, misses := r.hits.Load(), r.misses.Load()
	s := Stats{Backend: "redis", Hits: hits, Misses: misses, HitRate: hitRate(hits, misses)}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return s
	}
	s.Healthy = true

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 500).Result()
		if err != nil {
			break
		}
		s.Entries += len(keys)
		if cursor = next; cursor == 0 {
			break
		}
	}
	return s
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
