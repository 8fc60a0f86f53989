// Package service implements the agreement registry. Unlike the other two
// registries the relayer needs no role: authorization rests entirely on the
// distributor's own signature over the terms.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"veristry/internal/access"
	"veristry/internal/agreement/models"
	"veristry/internal/events"
	"veristry/internal/platform/metrics"
	"veristry/internal/replay"
	"veristry/internal/signing"
	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
	"veristry/pkg/platform/sentinel"
)

// Store persists the latest agreement per distributor.
type Store interface {
	Upsert(ctx context.Context, agreement models.Agreement) (*models.Agreement, error)
	// Revert undoes an Upsert. Rollback use only.
	Revert(ctx context.Context, distributor domain.Principal, prev *models.Agreement) error
	FindByDistributor(ctx context.Context, distributor domain.Principal) (models.Agreement, error)
}

// Service is the agreement registry.
type Service struct {
	store     Store
	gate      *access.Gate
	guard     *replay.Guard
	digests   *signing.Builder
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

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

// Create records the distributor's terms, replacing any prior agreement.
// Latest wins; the digest over (distributor, terms, nonce) keeps each signed
// consent single-use.
func (s *Service) Create(ctx context.Context, req models.CreateRequest) (agreement models.Agreement, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveOperation("agreement", "create", err)
		}
	}()

	if err = s.gate.RequireNotPaused(ctx, access.RegistryAgreement); err != nil {
		return models.Agreement{}, err
	}
	if err = req.Validate(); err != nil {
		return models.Agreement{}, err
	}

	digest := s.digests.Agreement(req.Distributor, req.TermsPayload, req.Nonce)
	signer, recErr := signing.Recover(digest, req.Signature)
	if recErr != nil {
		return models.Agreement{}, dErrors.Wrap(recErr, dErrors.CodeSignatureMismatch, "signature recovery failed")
	}
	if signer != req.Distributor {
		return models.Agreement{}, dErrors.New(dErrors.CodeSignatureMismatch, "recovered signer does not match distributor")
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// First state mutation of the commit path.
	if err = s.guard.Consume(ctx, digest); err != nil {
		return models.Agreement{}, err
	}

	agreement = models.Agreement{
		Distributor: req.Distributor,
		TermsHash:   req.TermsHash(),
		ProductID:   req.ProductID,
		Units:       req.Units,
		UnitPrice:   req.UnitPrice,
		Percentage:  req.Percentage,
		CreatedAt:   time.Now().UTC(),
	}

	prev, upsertErr := s.store.Upsert(ctx, agreement)
	if upsertErr != nil {
		_ = s.guard.Release(ctx, digest)
		return models.Agreement{}, dErrors.Wrap(upsertErr, dErrors.CodeInternal, "failed to store agreement")
	}

	event := events.New(events.TypeAgreementCreated, digest)
	event.AgreementCreated = &events.AgreementCreated{
		Distributor: req.Distributor,
		TermsHash:   agreement.TermsHash.Hex(),
		ProductID:   req.ProductID,
		Units:       req.Units,
		UnitPrice:   req.UnitPrice,
		Percentage:  req.Percentage,
		Nonce:       req.Nonce,
		Replaced:    prev != nil,
	}
	if emitErr := s.publisher.Emit(ctx, event); emitErr != nil {
		_ = s.store.Revert(ctx, req.Distributor, prev)
		_ = s.guard.Release(ctx, digest)
		return models.Agreement{}, dErrors.Wrap(emitErr, dErrors.CodeInternal, "failed to emit agreement event")
	}

	s.logger.InfoContext(ctx, "agreement created",
		"distributor", req.Distributor.String(),
		"product", req.ProductID,
		"replaced", prev != nil,
	)
	return agreement, nil
}

// AgreementOf returns the distributor's current terms.
func (s *Service) AgreementOf(ctx context.Context, distributor domain.Principal) (models.Agreement, error) {
	agreement, err := s.store.FindByDistributor(ctx, distributor)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Agreement{}, dErrors.New(dErrors.CodeNotFound, "distributor has no agreement")
		}
		return models.Agreement{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agreement")
	}
	return agreement, nil
}
