package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fairhire/internal/fairness"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore is a size-bounded LRU of reports with per-entry expiry
type MemoryStore struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, memoryEntry]
	ttl     time.Duration
	now     func() time.Time
	hits    uint64
	misses  uint64
	evicted uint64

	done      chan struct{}
	closeOnce sync.Once
}

type memoryEntry struct {
	report    *fairness.AuditReport
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore keeps at most capacity reports, each for ttl (0 keeps them until evicted)
func NewMemoryStore(capacity int, ttl time.Duration) (*MemoryStore, error) {
	cache, err := lru.New[string, memoryEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}
	return &MemoryStore{cache: cache, ttl: ttl, now: time.Now, done: make(chan struct{})}, nil
}

// Save stores the report, evicting the least recently used one when full
func (m *MemoryStore) Save(_ context.Context, report *fairness.AuditReport) error {
	if err := validateReport(report); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cache.Add(report.AuditID, memoryEntry{report: report, expiresAt: expiry(m.now(), m.ttl)}) {
		m.evicted++
	}
	return nil
}

// Get returns a copy of the report or ErrNotFound. The copy is shallow: its
// maps and slices are shared with the stored report and must not be modified.
func (m *MemoryStore) Get(_ context.Context, auditID string) (*fairness.AuditReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.cache.Get(auditID)
	if ok && !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.cache.Remove(auditID)
		ok = false
	}
	if !ok {
		m.misses++
		return nil, ErrNotFound
	}
	m.hits++
	report := *entry.report
	return &report, nil
}

// CleanupExpired drops expired entries and returns how many were removed
func (m *MemoryStore) CleanupExpired() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, key := range m.cache.Keys() {
		if entry, ok := m.cache.Peek(key); ok && now.After(entry.expiresAt) {
			m.cache.Remove(key)
			removed++
		}
	}
	return removed
}

// StartCleanup runs CleanupExpired every interval until Close
func (m *MemoryStore) StartCleanup(interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.CleanupExpired()
			case <-m.done:
				return
			}
		}
	}()
}

func (m *MemoryStore) Stats(context.Context) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Backend: "memory",
		Entries: m.cache.Len(),
		Hits:    m.hits,
		Misses:  m.misses,
		Evicted: m.evicted,
		HitRate: hitRate(m.hits, m.misses),
		Healthy: true,
	}
}

// Close stops the cleanup goroutine and drops every entry
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
	return nil
}
