package store

import (
	"context"
	"sync"
	"time"

	"veristry/internal/identity/models"
	"veristry/pkg/domain"
	"veristry/pkg/platform/sentinel"
)

// InMemory holds identity records and the monotonic ID counter. The counter
// only ever increases: a burned identity's ID is gone for good, and the next
// registration gets a fresh one.
type InMemory struct {
	mu      sync.RWMutex
	nextID  domain.IdentityID
	byID    map[domain.IdentityID]models.Identity
	byOwner map[domain.Principal]domain.IdentityID
}

// NewInMemory creates an empty identity store. IDs start at 1.
func NewInMemory() *InMemory {
	return &InMemory{
		nextID:  1,
		byID:    make(map[domain.IdentityID]models.Identity),
		byOwner: make(map[domain.Principal]domain.IdentityID),
	}
}

// Create allocates the next ID and registers owner. Returns
// sentinel.ErrConflict if the owner already holds a live identity.
func (s *InMemory) Create(_ context.Context, owner domain.Principal, kycHash []byte, metadataURI string) (models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byOwner[owner]; ok {
		return models.Identity{}, sentinel.ErrConflict
	}
	identity := models.Identity{
		ID:          s.nextID,
		Owner:       owner,
		KYCHash:     append([]byte{}, kycHash...),
		MetadataURI: metadataURI,
		CreatedAt:   time.Now().UTC(),
	}
	s.nextID++
	s.byID[identity.ID] = identity
	s.byOwner[owner] = identity.ID
	return identity, nil
}

// FindByOwner returns the live identity owned by principal.
func (s *InMemory) FindByOwner(_ context.Context, owner domain.Principal) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOwner[owner]
	if !ok {
		return models.Identity{}, sentinel.ErrNotFound
	}
	return s.byID[id], nil
}

// FindByID returns the live identity with the given ID.
func (s *InMemory) FindByID(_ context.Context, id domain.IdentityID) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byID[id]
	if !ok {
		return models.Identity{}, sentinel.ErrNotFound
	}
	return identity, nil
}

// Remove clears the identity and its owner mapping. The ID counter is left
// untouched, so the ID can never come back.
func (s *InMemory) Remove(_ context.Context, id domain.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byOwner, identity.Owner)
	return nil
}

// Restore re-inserts a removed identity. Only the rollback path of a failed
// burn commit may call this.
func (s *InMemory) Restore(_ context.Context, identity models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[identity.ID] = identity
	s.byOwner[identity.Owner] = identity.ID
	return nil
}
