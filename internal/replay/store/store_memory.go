package store

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"veristry/pkg/platform/sentinel"
)

// InMemory keeps the consumed-digest set in process memory. The default for
// single-instance deployments and the reference implementation for tests.
type InMemory struct {
	mu       sync.RWMutex
	consumed map[common.Hash]struct{}
}

// NewInMemory creates an empty digest store.
func NewInMemory() *InMemory {
	return &InMemory{consumed: make(map[common.Hash]struct{})}
}

func (s *InMemory) Consume(_ context.Context, digest common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consumed[digest]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.consumed[digest] = struct{}{}
	return nil
}

func (s *InMemory) IsConsumed(_ context.Context, digest common.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.consumed[digest]
	return ok, nil
}

func (s *InMemory) Release(_ context.Context, digest common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.consumed, digest)
	return nil
}
