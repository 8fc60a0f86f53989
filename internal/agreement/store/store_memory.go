package store

import (
	"context"
	"sync"

	"veristry/internal/agreement/models"
	"veristry/pkg/domain"
	"veristry/pkg/platform/sentinel"
)

// InMemory keeps the latest agreement per distributor.
type InMemory struct {
	mu         sync.RWMutex
	agreements map[domain.Principal]models.Agreement
}

// NewInMemory creates an empty agreement store.
func NewInMemory() *InMemory {
	return &InMemory{agreements: make(map[domain.Principal]models.Agreement)}
}

// Upsert stores the agreement, returning the replaced record (nil if the
// distributor had none).
func (s *InMemory) Upsert(_ context.Context, agreement models.Agreement) (*models.Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var prev *models.Agreement
	if existing, ok := s.agreements[agreement.Distributor]; ok {
		cp := existing
		prev = &cp
	}
	s.agreements[agreement.Distributor] = agreement
	return prev, nil
}

// Revert restores the pre-upsert state. Rollback use only.
func (s *InMemory) Revert(_ context.Context, distributor domain.Principal, prev *models.Agreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev != nil {
		s.agreements[distributor] = *prev
	} else {
		delete(s.agreements, distributor)
	}
	return nil
}

// FindByDistributor returns the distributor's current agreement.
func (s *InMemory) FindByDistributor(_ context.Context, distributor domain.Principal) (models.Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agreement, ok := s.agreements[distributor]
	if !ok {
		return models.Agreement{}, sentinel.ErrNotFound
	}
	return agreement, nil
}
