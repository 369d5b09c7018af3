// Package store persists risk assessments. Records are append-only: there is
// no update or delete path.
package store

import (
	"context"
	"slices"
	"sync"

	"verity/internal/risk/models"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	history map[id.ApplicationID][]models.Assessment
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{history: make(map[id.ApplicationID][]models.Assessment)}
}

// Append stores a; a repeated version for the same application is a conflict.
func (s *InMemoryStore) Append(_ context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.history[a.ApplicationID] {
		if existing.Version == a.Version {
			return sentinel.ErrConflict
		}
	}
	s.history[a.ApplicationID] = append(s.history[a.ApplicationID], clone(*a))
	return nil
}

// List returns the history oldest first.
func (s *InMemoryStore) List(_ context.Context, appID id.ApplicationID) ([]models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Assessment, 0, len(s.history[appID]))
	for _, a := range s.history[appID] {
		out = append(out, clone(a))
	}
	slices.SortFunc(out, func(a, b models.Assessment) int { return a.Version - b.Version })
	return out, nil
}

func (s *InMemoryStore) Latest(ctx context.Context, appID id.ApplicationID) (*models.Assessment, error) {
	list, _ := s.List(ctx, appID)
	if len(list) == 0 {
		return nil, sentinel.ErrNotFound
	}
	latest := list[len(list)-1]
	return &latest, nil
}

func clone(a models.Assessment) models.Assessment {
	factors := make(map[models.Factor]float64, len(a.Factors))
	for k, v := range a.Factors {
		factors[k] = v
	}
	a.Factors = factors
	a.FraudIndicators = slices.Clone(a.FraudIndicators)
	return a
}
