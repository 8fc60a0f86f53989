// Package service implements the data-permission registry: sponsor-relayed
// data-hash submission and owner-consented, time-bounded access grants.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"veristry/internal/access"
	"veristry/internal/datapermission/models"
	"veristry/internal/events"
	"veristry/internal/platform/metrics"
	"veristry/internal/replay"
	"veristry/internal/signing"
	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
	"veristry/pkg/platform/sentinel"
)

// Store persists the data arena, ownership index, permissions, and receipt
// history.
type Store interface {
	AppendRecord(ctx context.Context, hash domain.DataHash, owner domain.IdentityID) (models.DataRecord, error)
	// RemoveLastRecord undoes an AppendRecord. Rollback use only.
	RemoveLastRecord(ctx context.Context, record models.DataRecord) error
	OwnerOfHash(ctx context.Context, hash domain.DataHash) (domain.IdentityID, error)
	GrantPermission(ctx context.Context, owner domain.IdentityID, permission models.Permission) (*models.Permission, error)
	// RevertGrant undoes a GrantPermission. Rollback use only.
	RevertGrant(ctx context.Context, owner domain.IdentityID, permission models.Permission, prev *models.Permission) error
	FindPermission(ctx context.Context, hash domain.DataHash, product domain.ProductID) (models.Permission, error)
	RecordCount(ctx context.Context) (uint64, error)
	RecordByIndex(ctx context.Context, index uint64) (models.DataRecord, error)
	RecordsByOwner(ctx context.Context, owner domain.IdentityID) ([]models.DataRecord, error)
	PermissionHistory(ctx context.Context, owner domain.IdentityID) ([]common.Hash, error)
}

// IdentityResolver is the read surface this registry consumes from the
// identity registry. Read-only: this registry never writes identity state.
type IdentityResolver interface {
	IsRegistered(ctx context.Context, principal domain.Principal) (bool, error)
	IdentityOf(ctx context.Context, principal domain.Principal) (domain.IdentityID, error)
}

// Service is the data-permission registry.
type Service struct {
	store      Store
	identities IdentityResolver
	gate       *access.Gate
	guard      *replay.Guard
	digests    *signing.Builder
	publisher  events.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics

	commitMu sync.Mutex

	// now is swappable in tests that pin grant time.
	now func() time.Time
}

// NewService wires the registry to its collaborators. The identity registry
// is injected explicitly; there is no ambient coupling between registries.
func NewService(store Store, identities IdentityResolver, gate *access.Gate, guard *replay.Guard, digests *signing.Builder, publisher events.Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:      store,
		identities: identities,
		gate:       gate,
		guard:      guard,
		digests:    digests,
		publisher:  publisher,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// SubmitData records a data hash under the target principal's identity,
// authorized by that principal's signature and relayed by a sponsor.
// Resubmission of an already-recorded hash value under a fresh nonce is
// allowed at this layer; only the signed digest is single-use.
func (s *Service) SubmitData(ctx context.Context, req models.SubmitRequest) (record models.DataRecord, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveOperation("datapermission", "submit_data", err)
		}
	}()

	if err = s.gate.RequireNotPaused(ctx, access.RegistryDataPermission); err != nil {
		return models.DataRecord{}, err
	}
	if err = s.gate.RequireRole(ctx, req.Caller, access.RoleSponsor); err != nil {
		return models.DataRecord{}, err
	}
	if err = req.Validate(); err != nil {
		return models.DataRecord{}, err
	}

	ownerID, resolveErr := s.identities.IdentityOf(ctx, req.Principal)
	if resolveErr != nil {
		return models.DataRecord{}, resolveErr
	}

	digest := s.digests.DataSubmission(req.Principal, req.DataHash, req.Nonce)
	signer, recErr := signing.Recover(digest, req.Signature)
	if recErr != nil {
		return models.DataRecord{}, dErrors.Wrap(recErr, dErrors.CodeSignatureMismatch, "signature recovery failed")
	}
	if signer != req.Principal {
		return models.DataRecord{}, dErrors.New(dErrors.CodeSignatureMismatch, "recovered signer does not match target principal")
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// First state mutation of the commit path.
	if err = s.guard.Consume(ctx, digest); err != nil {
		return models.DataRecord{}, err
	}

	record, appendErr := s.store.AppendRecord(ctx, req.DataHash, ownerID)
	if appendErr != nil {
		_ = s.guard.Release(ctx, digest)
		return models.DataRecord{}, dErrors.Wrap(appendErr, dErrors.CodeInternal, "failed to append data record")
	}

	event := events.New(events.TypeDataSubmitted, digest)
	event.DataSubmitted = &events.DataSubmitted{
		Owner:           req.Principal,
		OwnerIdentityID: ownerID,
		DataHash:        req.DataHash,
		SequenceIndex:   record.SequenceIndex,
		Nonce:           req.Nonce,
		Sponsor:         req.Caller,
	}
	if emitErr := s.publisher.Emit(ctx, event); emitErr != nil {
		_ = s.store.RemoveLastRecord(ctx, record)
		_ = s.guard.Release(ctx, digest)
		return models.DataRecord{}, dErrors.Wrap(emitErr, dErrors.CodeInternal, "failed to emit submission event")
	}

	s.logger.InfoContext(ctx, "data hash submitted",
		"owner_identity", ownerID,
		"data_hash", req.DataHash.String(),
		"sequence", record.SequenceIndex,
	)
	return record, nil
}

// GetPermission grants the calling requester time-bounded access to a data
// hash for one product, authorized by the data owner's signature. The owner
// must be the recorded owner of the hash: a valid signature from the wrong
// principal cannot manufacture a grant over data they do not own.
func (s *Service) GetPermission(ctx context.Context, req models.PermissionRequest) (permission models.Permission, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveOperation("datapermission", "get_permission", err)
		}
	}()

	if err = s.gate.RequireNotPaused(ctx, access.RegistryDataPermission); err != nil {
		return models.Permission{}, err
	}
	if err = req.Validate(); err != nil {
		return models.Permission{}, err
	}

	// The caller's own registration supplies the requester identity.
	requesterID, resolveErr := s.identities.IdentityOf(ctx, req.Caller)
	if resolveErr != nil {
		return models.Permission{}, resolveErr
	}
	ownerID, resolveErr := s.identities.IdentityOf(ctx, req.Owner)
	if resolveErr != nil {
		return models.Permission{}, resolveErr
	}

	recordedOwner, ownErr := s.store.OwnerOfHash(ctx, req.DataHash)
	if ownErr != nil {
		if errors.Is(ownErr, sentinel.ErrNotFound) {
			return models.Permission{}, dErrors.New(dErrors.CodeNotDataOwner, "data hash has no recorded owner")
		}
		return models.Permission{}, dErrors.Wrap(ownErr, dErrors.CodeInternal, "failed to resolve data owner")
	}
	if recordedOwner != ownerID {
		return models.Permission{}, dErrors.New(dErrors.CodeNotDataOwner, "principal is not the recorded owner of the data hash")
	}

	offsetSeconds := uint64(req.ExpirationOffset / time.Second)
	digest := s.digests.Permission(req.Owner, requesterID, req.DataHash, req.ProductID, req.Nonce, offsetSeconds)
	signer, recErr := signing.Recover(digest, req.Signature)
	if recErr != nil {
		return models.Permission{}, dErrors.Wrap(recErr, dErrors.CodeSignatureMismatch, "signature recovery failed")
	}
	if signer != req.Owner {
		return models.Permission{}, dErrors.New(dErrors.CodeSignatureMismatch, "recovered signer does not match data owner")
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// First state mutation of the commit path.
	if err = s.guard.Consume(ctx, digest); err != nil {
		return models.Permission{}, err
	}

	grantedAt := s.now().UTC()
	permission = models.Permission{
		DataHash:       req.DataHash,
		ProductID:      req.ProductID,
		State:          models.PermissionPermitted,
		RequesterID:    requesterID,
		PermissionHash: models.Receipt(requesterID, req.DataHash, req.ProductID),
		GrantedAt:      grantedAt,
		ExpiresAt:      grantedAt.Add(req.ExpirationOffset),
	}

	prev, grantErr := s.store.GrantPermission(ctx, ownerID, permission)
	if grantErr != nil {
		_ = s.guard.Release(ctx, digest)
		return models.Permission{}, dErrors.Wrap(grantErr, dErrors.CodeInternal, "failed to record permission")
	}

	event := events.New(events.TypePermissionGranted, digest)
	event.PermissionGranted = &events.PermissionGranted{
		Owner:              req.Owner,
		OwnerIdentityID:    ownerID,
		RequesterID:        requesterID,
		DataHash:           req.DataHash,
		ProductID:          req.ProductID,
		PermissionHash:     permission.PermissionHash.Hex(),
		ExpiresAt:          permission.ExpiresAt,
		Nonce:              req.Nonce,
		RequesterPrincipal: req.Caller,
	}
	if emitErr := s.publisher.Emit(ctx, event); emitErr != nil {
		_ = s.store.RevertGrant(ctx, ownerID, permission, prev)
		_ = s.guard.Release(ctx, digest)
		return models.Permission{}, dErrors.Wrap(emitErr, dErrors.CodeInternal, "failed to emit grant event")
	}

	s.logger.InfoContext(ctx, "permission granted",
		"owner_identity", ownerID,
		"requester_identity", requesterID,
		"data_hash", req.DataHash.String(),
		"product", req.ProductID,
		"expires_at", permission.ExpiresAt,
	)
	return permission, nil
}

// GetPermissionDeadline returns the expiry of the (hash, product) grant.
func (s *Service) GetPermissionDeadline(ctx context.Context, hash domain.DataHash, product domain.ProductID) (time.Time, error) {
	permission, err := s.findPermission(ctx, hash, product)
	if err != nil {
		return time.Time{}, err
	}
	return permission.ExpiresAt, nil
}

// PermissionOf returns the full grant record for (hash, product).
func (s *Service) PermissionOf(ctx context.Context, hash domain.DataHash, product domain.ProductID) (models.Permission, error) {
	return s.findPermission(ctx, hash, product)
}

func (s *Service) findPermission(ctx context.Context, hash domain.DataHash, product domain.ProductID) (models.Permission, error) {
	permission, err := s.store.FindPermission(ctx, hash, product)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Permission{}, dErrors.New(dErrors.CodeNotFound, "no permission recorded for data hash and product")
		}
		return models.Permission{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load permission")
	}
	return permission, nil
}

// RecordCount returns the length of the global data log.
func (s *Service) RecordCount(ctx context.Context) (uint64, error) {
	count, err := s.store.RecordCount(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count records")
	}
	return count, nil
}

// RecordByIndex returns the data record at a global log position.
func (s *Service) RecordByIndex(ctx context.Context, index uint64) (models.DataRecord, error) {
	record, err := s.store.RecordByIndex(ctx, index)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.DataRecord{}, dErrors.New(dErrors.CodeNotFound, "no data record at index")
		}
		return models.DataRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	return record, nil
}

// RecordsByOwner lists a principal's data records in submission order.
func (s *Service) RecordsByOwner(ctx context.Context, principal domain.Principal) ([]models.DataRecord, error) {
	ownerID, err := s.identities.IdentityOf(ctx, principal)
	if err != nil {
		return nil, err
	}
	records, err := s.store.RecordsByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return records, nil
}

// PermissionHistory lists a principal's permission receipts in grant order.
func (s *Service) PermissionHistory(ctx context.Context, principal domain.Principal) ([]common.Hash, error) {
	ownerID, err := s.identities.IdentityOf(ctx, principal)
	if err != nil {
		return nil, err
	}
	history, err := s.store.PermissionHistory(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list permission history")
	}
	return history, nil
}
