package store

import (
	"context"
	"sync"

	"verity/internal/workflow/models"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
)

// InMemoryStore keeps plans in a map. Plans are cloned on the way in and out.
type InMemoryStore struct {
	mu    sync.RWMutex
	plans map[id.ApplicationID]models.Plan
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{plans: make(map[id.ApplicationID]models.Plan)}
}

func (s *InMemoryStore) Save(_ context.Context, appID id.ApplicationID, plan models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[appID] = plan.Clone()
	return nil
}

func (s *InMemoryStore) Load(_ context.Context, appID id.ApplicationID) (models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return plan.Clone(), nil
}
