// Package store keeps completed audit reports so they can be fetched by id.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fairhire/internal/config"
	"fairhire/internal/fairness"
)

// ErrNotFound is returned when no report exists for an audit id or it has expired.
var ErrNotFound = errors.New("audit report not found")

// Store persists audit reports keyed by AuditID
type Store interface {
	Save(ctx context.Context, report *fairness.AuditReport) error
	Get(ctx context.Context, auditID string) (*fairness.AuditReport, error)
	Stats(ctx context.Context) Stats
	Close() error
}

// Stats describes a store for the stats endpoint
type Stats struct {
	Backend string  `json:"backend"`
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Evicted uint64  `json:"evicted"`
	HitRate float64 `json:"hit_rate"`
	Healthy bool    `json:"healthy"`
}

// New opens the backend selected by cfg
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		m, err := NewMemoryStore(cfg.MemoryCapacity, cfg.TTL)
		if err != nil {
			return nil, err
		}
		m.StartCleanup(cleanupInterval(cfg.TTL))
		return m, nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// cleanupInterval sweeps ten times per ttl, between once a minute and once an hour
func cleanupInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/10, time.Minute), time.Hour)
}

func validateReport(report *fairness.AuditReport) error {
	if report == nil {
		return errors.New("nil audit report")
	}
	if report.AuditID == "" {
		return errors.New("audit report has no id")
	}
	return nil
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// expiry returns the zero time for a non-positive ttl
func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
