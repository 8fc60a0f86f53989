package store

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"veristry/internal/datapermission/models"
	"veristry/pkg/domain"
	"veristry/pkg/platform/sentinel"
)

type permissionKey struct {
	hash    domain.DataHash
	product domain.ProductID
}

// InMemory implements the registry's maps: a global append-only arena of
// data records with a per-owner position index, the hash-to-owner map the
// permission ownership check depends on, the (hash, product) permission map,
// and the per-owner append-only permission-hash history.
type InMemory struct {
	mu          sync.RWMutex
	arena       []models.DataRecord
	byOwner     map[domain.IdentityID][]uint64
	ownerByHash map[domain.DataHash]domain.IdentityID
	permissions map[permissionKey]models.Permission
	history     map[domain.IdentityID][]common.Hash
}

// NewInMemory creates an empty data-permission store.
func NewInMemory() *InMemory {
	return &InMemory{
		byOwner:     make(map[domain.IdentityID][]uint64),
		ownerByHash: make(map[domain.DataHash]domain.IdentityID),
		permissions: make(map[permissionKey]models.Permission),
		history:     make(map[domain.IdentityID][]common.Hash),
	}
}

// AppendRecord adds a data hash to the arena and indexes it under the owner
// identity. The hash-to-owner mapping is first-write-wins: a later submission
// of the same hash under a different identity appends to the arena but cannot
// steal ownership of the hash.
func (s *InMemory) AppendRecord(_ context.Context, hash domain.DataHash, owner domain.IdentityID) (models.DataRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := models.DataRecord{
		Hash:            hash,
		OwnerIdentityID: owner,
		SequenceIndex:   uint64(len(s.arena)),
		SubmittedAt:     time.Now().UTC(),
	}
	s.arena = append(s.arena, record)
	s.byOwner[owner] = append(s.byOwner[owner], record.SequenceIndex)
	if _, ok := s.ownerByHash[hash]; !ok {
		s.ownerByHash[hash] = owner
	}
	return record, nil
}

// RemoveLastRecord undoes the most recent AppendRecord. Rollback use only.
func (s *InMemory) RemoveLastRecord(_ context.Context, record models.DataRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.arena) == 0 || s.arena[len(s.arena)-1].SequenceIndex != record.SequenceIndex {
		return sentinel.ErrInvalidState
	}
	s.arena = s.arena[:len(s.arena)-1]
	positions := s.byOwner[record.OwnerIdentityID]
	s.byOwner[record.OwnerIdentityID] = positions[:len(positions)-1]
	if s.ownerByHash[record.Hash] == record.OwnerIdentityID && !s.hashStillOwnedLocked(record.Hash, record.OwnerIdentityID) {
		delete(s.ownerByHash, record.Hash)
	}
	return nil
}

func (s *InMemory) hashStillOwnedLocked(hash domain.DataHash, owner domain.IdentityID) bool {
	for _, record := range s.arena {
		if record.Hash == hash && record.OwnerIdentityID == owner {
			return true
		}
	}
	return false
}

// OwnerOfHash returns the identity that owns a recorded hash.
func (s *InMemory) OwnerOfHash(_ context.Context, hash domain.DataHash) (domain.IdentityID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.ownerByHash[hash]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return owner, nil
}

// GrantPermission upserts the (hash, product) permission and appends the
// receipt to the granting owner's history. Returns the previous permission
// for the rollback path, or nil if the key was fresh.
func (s *InMemory) GrantPermission(_ context.Context, owner domain.IdentityID, permission models.Permission) (*models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := permissionKey{hash: permission.DataHash, product: permission.ProductID}
	var prev *models.Permission
	if existing, ok := s.permissions[key]; ok {
		cp := existing
		prev = &cp
	}
	s.permissions[key] = permission
	s.history[owner] = append(s.history[owner], permission.PermissionHash)
	return prev, nil
}

// RevertGrant undoes a GrantPermission. Rollback use only.
func (s *InMemory) RevertGrant(_ context.Context, owner domain.IdentityID, permission models.Permission, prev *models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := permissionKey{hash: permission.DataHash, product: permission.ProductID}
	if prev != nil {
		s.permissions[key] = *prev
	} else {
		delete(s.permissions, key)
	}
	entries := s.history[owner]
	if len(entries) > 0 && entries[len(entries)-1] == permission.PermissionHash {
		s.history[owner] = entries[:len(entries)-1]
	}
	return nil
}

// FindPermission returns the permission for (hash, product).
func (s *InMemory) FindPermission(_ context.Context, hash domain.DataHash, product domain.ProductID) (models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	permission, ok := s.permissions[permissionKey{hash: hash, product: product}]
	if !ok {
		return models.Permission{}, sentinel.ErrNotFound
	}
	return permission, nil
}

// RecordCount returns the arena length.
func (s *InMemory) RecordCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.arena)), nil
}

// RecordByIndex returns the arena entry at a global position.
func (s *InMemory) RecordByIndex(_ context.Context, index uint64) (models.DataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index >= uint64(len(s.arena)) {
		return models.DataRecord{}, sentinel.ErrNotFound
	}
	return s.arena[index], nil
}

// RecordsByOwner returns copies of all records owned by an identity, in
// submission order.
func (s *InMemory) RecordsByOwner(_ context.Context, owner domain.IdentityID) ([]models.DataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	positions := s.byOwner[owner]
	records := make([]models.DataRecord, 0, len(positions))
	for _, pos := range positions {
		records = append(records, s.arena[pos])
	}
	return records, nil
}

// PermissionHistory returns the owner's receipt log, in grant order.
func (s *InMemory) PermissionHistory(_ context.Context, owner domain.IdentityID) ([]common.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]common.Hash{}, s.history[owner]...), nil
}
