package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"verity/pkg/platform/sentinel"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// InMemory is a process-local Store. Expired entries are invisible to Get and
// are physically removed by Purge, which the sweeper runs on a cron schedule.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	sweeper *cron.Cron
	logger  *slog.Logger
}

// MemoryOption configures an InMemory store.
type MemoryOption func(*InMemory)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *InMemory) {
		m.now = now
	}
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(m *InMemory) {
		m.logger = logger
	}
}

// NewInMemory creates an empty store.
func NewInMemory(opts ...MemoryOption) *InMemory {
	m := &InMemory{
		entries: make(map[string]entry),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *InMemory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, sentinel.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *InMemory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: stored, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *InMemory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (m *InMemory) Purge() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len reports stored entries, expired ones included until purged.
func (m *InMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StartSweeper schedules Purge with a cron spec such as "@every 1m".
func (m *InMemory) StartSweeper(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := m.Purge(); n > 0 {
			m.logger.Debug("cache sweep purged expired entries", "purged", n)
		}
	}); err != nil {
		return err
	}
	c.Start()
	m.mu.Lock()
	m.sweeper = c
	m.mu.Unlock()
	return nil
}

// Stop halts the sweeper and waits for a running purge to finish.
func (m *InMemory) Stop() {
	m.mu.RLock()
	c := m.sweeper
	m.mu.RUnlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
