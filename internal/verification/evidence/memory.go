// Package evidence stores the latest call result per evidence key for each
// application. Results for the same key replace each other.
package evidence

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"verity/internal/verification/models"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.ApplicationID]map[string]models.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.ApplicationID]map[string]models.Record)}
}

func (s *InMemoryStore) Put(_ context.Context, appID id.ApplicationID, step wfmodels.StepName, results []models.CallResult, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey, ok := s.records[appID]
	if !ok {
		byKey = make(map[string]models.Record)
		s.records[appID] = byKey
	}
	for _, r := range results {
		byKey[r.Key] = models.Record{ApplicationID: appID, Step: step, Result: r, UpdatedAt: now}
	}
	return nil
}

// List returns records ordered by key.
func (s *InMemoryStore) List(_ context.Context, appID id.ApplicationID) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Record, 0, len(s.records[appID]))
	for _, r := range s.records[appID] {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b models.Record) int { return strings.Compare(a.Result.Key, b.Result.Key) })
	return out, nil
}
