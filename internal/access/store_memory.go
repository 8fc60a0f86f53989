package access

import (
	"context"
	"sync"

	"veristry/pkg/domain"
)

// Store persists role assignments and pause flags.
type Store interface {
	GrantRole(ctx context.Context, principal domain.Principal, role Role) error
	RevokeRole(ctx context.Context, principal domain.Principal, role Role) error
	HasRole(ctx context.Context, principal domain.Principal, role Role) (bool, error)
	CountRole(ctx context.Context, role Role) (int, error)
	SetPaused(ctx context.Context, registry Registry, paused bool) error
	IsPaused(ctx context.Context, registry Registry) (bool, error)
}

// InMemory keeps role and pause state in process memory.
type InMemory struct {
	mu     sync.RWMutex
	roles  map[Role]map[domain.Principal]struct{}
	paused map[Registry]bool
}

// NewInMemory creates an empty access store.
func NewInMemory() *InMemory {
	return &InMemory{
		roles:  make(map[Role]map[domain.Principal]struct{}),
		paused: make(map[Registry]bool),
	}
}

func (s *InMemory) GrantRole(_ context.Context, principal domain.Principal, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roles[role] == nil {
		s.roles[role] = make(map[domain.Principal]struct{})
	}
	s.roles[role][principal] = struct{}{}
	return nil
}

func (s *InMemory) RevokeRole(_ context.Context, principal domain.Principal, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles[role], principal)
	return nil
}

func (s *InMemory) HasRole(_ context.Context, principal domain.Principal, role Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[role][principal]
	return ok, nil
}

func (s *InMemory) CountRole(_ context.Context, role Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.roles[role]), nil
}

func (s *InMemory) SetPaused(_ context.Context, registry Registry, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused[registry] = paused
	return nil
}

func (s *InMemory) IsPaused(_ context.Context, registry Registry) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused[registry], nil
}
