// Package service implements the identity registry: sponsor-relayed,
// signature-consented registration and direct-caller burn of soulbound
// identities.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"veristry/internal/access"
	"veristry/internal/events"
	"veristry/internal/identity/models"
	"veristry/internal/platform/metrics"
	"veristry/internal/replay"
	"veristry/internal/signing"
	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
	"veristry/pkg/platform/sentinel"
)

// Store persists identity records. Implementations allocate monotonically
// increasing IDs and never reuse one after Remove.
type Store interface {
	Create(ctx context.Context, owner domain.Principal, kycHash []byte, metadataURI string) (models.Identity, error)
	FindByOwner(ctx context.Context, owner domain.Principal) (models.Identity, error)
	FindByID(ctx context.Context, id domain.IdentityID) (models.Identity, error)
	Remove(ctx context.Context, id domain.IdentityID) error
	// Restore re-inserts a removed identity. Rollback use only.
	Restore(ctx context.Context, identity models.Identity) error
}

// Service is the identity registry. All mutating entry points verify the
// relayer's role, the principal's detached signature, and the replay guard
// before committing, and commit as a single unit: the consumed digest, the
// store mutation, and the emitted event land together or not at all.
type Service struct {
	store     Store
	gate      *access.Gate
	guard     *replay.Guard
	digests   *signing.Builder
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	// commitMu serializes commit paths so registered-state checks, digest
	// consumption, and store writes act as one indivisible unit.
	commitMu sync.Mutex
}

// NewService wires the registry to its collaborators.
func NewService(store Store, gate *access.Gate, guard *replay.Guard, digests *signing.Builder, publisher events.Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		gate:      gate,
		guard:     guard,
		digests:   digests,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}
}

// Create registers req.Principal, authorized by that principal's signature
// over the operation digest and relayed by a sponsor-role caller.
func (s *Service) Create(ctx context.Context, req models.CreateRequest) (identity models.Identity, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveOperation("identity", "create", err)
		}
	}()

	if err = s.gate.RequireNotPaused(ctx, access.RegistryIdentity); err != nil {
		return models.Identity{}, err
	}
	if err = s.gate.RequireRole(ctx, req.Caller, access.RoleSponsor); err != nil {
		return models.Identity{}, err
	}
	if err = req.Validate(); err != nil {
		return models.Identity{}, err
	}

	digest := s.digests.Identity(req.KYCHash, req.Principal, req.MetadataURI, req.Nonce)

	// Pure check before any mutation: a bad signature must leave the digest
	// unconsumed.
	signer, recErr := signing.Recover(digest, req.Signature)
	if recErr != nil {
		return models.Identity{}, dErrors.Wrap(recErr, dErrors.CodeSignatureMismatch, "signature recovery failed")
	}
	if signer != req.Principal {
		return models.Identity{}, dErrors.New(dErrors.CodeSignatureMismatch, "recovered signer does not match target principal")
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if _, findErr := s.store.FindByOwner(ctx, req.Principal); findErr == nil {
		return models.Identity{}, dErrors.New(dErrors.CodeAlreadyRegistered, "principal already holds an identity")
	} else if !errors.Is(findErr, sentinel.ErrNotFound) {
		return models.Identity{}, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to check registration")
	}

	// First state mutation of the commit path.
	if err = s.guard.Consume(ctx, digest); err != nil {
		return models.Identity{}, err
	}

	identity, createErr := s.store.Create(ctx, req.Principal, req.KYCHash, req.MetadataURI)
	if createErr != nil {
		_ = s.guard.Release(ctx, digest)
		if errors.Is(createErr, sentinel.ErrConflict) {
			return models.Identity{}, dErrors.New(dErrors.CodeAlreadyRegistered, "principal already holds an identity")
		}
		return models.Identity{}, dErrors.Wrap(createErr, dErrors.CodeInternal, "failed to create identity")
	}

	event := events.New(events.TypeIdentityCreated, digest)
	event.IdentityCreated = &events.IdentityCreated{
		IdentityID:  identity.ID,
		From:        domain.ZeroPrincipal,
		Owner:       identity.Owner,
		KYCHash:     "0x" + hexString(req.KYCHash),
		MetadataURI: identity.MetadataURI,
		Nonce:       req.Nonce,
		Sponsor:     req.Caller,
	}
	if emitErr := s.publisher.Emit(ctx, event); emitErr != nil {
		_ = s.store.Remove(ctx, identity.ID)
		_ = s.guard.Release(ctx, digest)
		return models.Identity{}, dErrors.Wrap(emitErr, dErrors.CodeInternal, "failed to emit creation event")
	}

	if s.metrics != nil {
		s.metrics.IdentitiesLive.Inc()
	}
	s.logger.InfoContext(ctx, "identity created",
		"identity_id", identity.ID,
		"owner", identity.Owner.String(),
		"sponsor", req.Caller.String(),
	)
	return identity, nil
}

// Burn destroys the caller's own identity. This is the one operation
// authorized by caller identity alone: no signature, no sponsor.
func (s *Service) Burn(ctx context.Context, caller domain.Principal, id domain.IdentityID) (err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveOperation("identity", "burn", err)
		}
	}()

	if err = s.gate.RequireNotPaused(ctx, access.RegistryIdentity); err != nil {
		return err
	}
	if id.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "identity id must not be zero")
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	identity, findErr := s.store.FindByID(ctx, id)
	if findErr != nil {
		if errors.Is(findErr, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "identity does not exist")
		}
		return dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load identity")
	}
	if identity.Owner != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "only the identity owner may burn it")
	}

	if removeErr := s.store.Remove(ctx, id); removeErr != nil {
		return dErrors.Wrap(removeErr, dErrors.CodeInternal, "failed to remove identity")
	}

	event := events.New(events.TypeIdentityBurned, zeroDigest)
	event.IdentityBurned = &events.IdentityBurned{IdentityID: id, Owner: identity.Owner}
	if emitErr := s.publisher.Emit(ctx, event); emitErr != nil {
		_ = s.store.Restore(ctx, identity)
		return dErrors.Wrap(emitErr, dErrors.CodeInternal, "failed to emit burn event")
	}

	if s.metrics != nil {
		s.metrics.IdentitiesLive.Dec()
	}
	s.logger.InfoContext(ctx, "identity burned",
		"identity_id", id,
		"owner", identity.Owner.String(),
	)
	return nil
}

// Transfer always fails: identities are soulbound. The entry point exists so
// the rejection is explicit rather than a missing route.
func (s *Service) Transfer(_ context.Context, _ domain.Principal, _ domain.IdentityID, _ domain.Principal) error {
	return dErrors.New(dErrors.CodeNonTransferable, "identities are soulbound and cannot be transferred")
}

// Approve always fails: granting transfer approval on a soulbound identity
// would be accepted-but-unusable, so it is rejected outright.
func (s *Service) Approve(_ context.Context, _ domain.Principal, _ domain.IdentityID, _ domain.Principal) error {
	return dErrors.New(dErrors.CodeNonTransferable, "identities are soulbound and cannot be approved for transfer")
}

// IsRegistered reports whether principal currently holds an identity.
func (s *Service) IsRegistered(ctx context.Context, principal domain.Principal) (bool, error) {
	_, err := s.store.FindByOwner(ctx, principal)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
}

// IdentityOf resolves principal to its live identity ID.
func (s *Service) IdentityOf(ctx context.Context, principal domain.Principal) (domain.IdentityID, error) {
	identity, err := s.store.FindByOwner(ctx, principal)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotRegistered, "principal is not registered")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve identity")
	}
	return identity.ID, nil
}

// OwnerOf returns the owner of a live identity.
func (s *Service) OwnerOf(ctx context.Context, id domain.IdentityID) (domain.Principal, error) {
	identity, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.ZeroPrincipal, dErrors.New(dErrors.CodeNotFound, "identity does not exist")
		}
		return domain.ZeroPrincipal, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve owner")
	}
	return identity.Owner, nil
}

// BalanceOf returns 1 if principal holds an identity, else 0. The token-view
// read downstream observers expect.
func (s *Service) BalanceOf(ctx context.Context, principal domain.Principal) (int, error) {
	registered, err := s.IsRegistered(ctx, principal)
	if err != nil {
		return 0, err
	}
	if registered {
		return 1, nil
	}
	return 0, nil
}
