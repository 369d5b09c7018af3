package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"verity/internal/application/models"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	apps      map[id.ApplicationID]*models.Application
	documents map[id.DocumentID]*models.Document
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		apps:      make(map[id.ApplicationID]*models.Application),
		documents: make(map[id.DocumentID]*models.Document),
	}
}

// Create fails with ErrConflict when the applicant already has an open
// application.
func (s *InMemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.apps {
		if existing.ApplicantID == app.ApplicantID && existing.Status.IsOpen() {
			return sentinel.ErrConflict
		}
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

// Update replaces the application if its stored status is still from.
// Reopening checks the one-open-per-applicant rule again.
func (s *InMemoryStore) Update(_ context.Context, app *models.Application, from models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.apps[app.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != from {
		return sentinel.ErrInvalidState
	}
	if !from.IsOpen() && app.Status.IsOpen() {
		for _, other := range s.apps {
			if other.ID != app.ID && other.ApplicantID == app.ApplicantID && other.Status.IsOpen() {
				return sentinel.ErrConflict
			}
		}
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

// Cancel is an atomic conditional update from any open status.
func (s *InMemoryStore) Cancel(_ context.Context, appID id.ApplicationID, reason string, now time.Time) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !slices.Contains(openStatuses, app.Status) {
		return nil, sentinel.ErrInvalidState
	}
	app.ApplyCancellation(reason, now)
	return app.Clone(), nil
}

// MirrorRisk writes the current-risk fields in one step unless the
// application was cancelled. flag only ever sets the manual-review flag.
func (s *InMemoryStore) MirrorRisk(_ context.Context, appID id.ApplicationID, level string, score float64, flag bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if app.Status == models.StatusCancelled {
		return sentinel.ErrInvalidState
	}
	app.ApplyRisk(level, score, now)
	if flag {
		app.ApplyReviewFlag(now)
	}
	return nil
}

// Flag sets the manual-review flag unless the application was cancelled.
func (s *InMemoryStore) Flag(_ context.Context, appID id.ApplicationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if app.Status == models.StatusCancelled {
		return sentinel.ErrInvalidState
	}
	app.ApplyReviewFlag(now)
	return nil
}

// AddDocument stores doc and supersedes earlier active documents of the
// same type.
func (s *InMemoryStore) AddDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[doc.ApplicationID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, d := range s.documents {
		if d.ApplicationID == doc.ApplicationID && d.Type == doc.Type && d.IsActive() {
			d.ApplySupersede(doc.UploadedAt)
		}
	}
	s.documents[doc.ID] = doc.Clone()
	return nil
}

func (s *InMemoryStore) GetDocument(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *InMemoryStore) SaveDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.documents[doc.ID] = doc.Clone()
	return nil
}

// ListDocuments returns every document, superseded ones included, in upload
// order.
func (s *InMemoryStore) ListDocuments(_ context.Context, appID id.ApplicationID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, d := range s.documents {
		if d.ApplicationID == appID {
			out = append(out, d.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Document) int {
		if c := a.UploadedAt.Compare(b.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}
