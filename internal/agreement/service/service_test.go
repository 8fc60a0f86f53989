package service

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/suite"

	"veristry/internal/access"
	"veristry/internal/agreement/models"
	"veristry/internal/agreement/store"
	"veristry/internal/events"
	"veristry/internal/platform/logger"
	"veristry/internal/replay"
	replaystore "veristry/internal/replay/store"
	"veristry/internal/signing"
	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
	"veristry/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	service   *Service
	gate      *access.Gate
	publisher *events.MemoryPublisher
	digests   *signing.Builder

	admin domain.Principal
}

func (s *ServiceSuite) SetupTest() {
	log := logger.New("error")

	s.publisher = events.NewMemoryPublisher()
	s.gate = access.NewGate(access.NewInMemory(), s.publisher, log)
	s.admin = domain.Principal{0xad}
	s.Require().NoError(s.gate.Bootstrap(context.Background(), s.admin))

	s.digests = signing.NewBuilder(signing.DomainParams{Name: "veristry", Version: "1", NetworkID: 1337})
	guard := replay.NewGuard(replaystore.NewInMemory())

	s.service = NewService(store.NewInMemory(), s.gate, guard, s.digests, s.publisher, log, nil)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) createRequest(distributor *testutil.Signer, terms []byte, nonce domain.Nonce) models.CreateRequest {
	digest := s.digests.Agreement(distributor.Principal, terms, nonce)
	return models.CreateRequest{
		Caller:       domain.Principal{0x99}, // any caller; no role needed
		Distributor:  distributor.Principal,
		Signature:    distributor.Sign(s.T(), digest),
		TermsPayload: terms,
		ProductID:    7,
		Units:        100,
		UnitPrice:    250,
		Percentage:   10,
		Nonce:        nonce,
	}
}

func (s *ServiceSuite) TestCreate() {
	ctx := context.Background()
	distributor := testutil.NewSigner(s.T())
	terms := []byte("net-30, region EU")

	agreement, err := s.service.Create(ctx, s.createRequest(distributor, terms, 1))
	s.Require().NoError(err)
	s.Equal(distributor.Principal, agreement.Distributor)
	s.Equal(crypto.Keccak256Hash(terms), agreement.TermsHash)

	created := s.publisher.ByType(events.TypeAgreementCreated)
	s.Require().Len(created, 1)
	s.False(created[0].AgreementCreated.Replaced)
}

func (s *ServiceSuite) TestCreateNeedsNoRole() {
	// Unlike the other registries the relayer holds no role here; the
	// distributor's signature is the whole authorization.
	ctx := context.Background()
	distributor := testutil.NewSigner(s.T())

	req := s.createRequest(distributor, []byte("terms"), 1)
	req.Caller = domain.Principal{0x01}
	_, err := s.service.Create(ctx, req)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestLatestWins() {
	ctx := context.Background()
	distributor := testutil.NewSigner(s.T())

	_, err := s.service.Create(ctx, s.createRequest(distributor, []byte("v1"), 1))
	s.Require().NoError(err)

	second := s.createRequest(distributor, []byte("v2"), 2)
	_, err = s.service.Create(ctx, second)
	s.Require().NoError(err)

	current, err := s.service.AgreementOf(ctx, distributor.Principal)
	s.Require().NoError(err)
	s.Equal(crypto.Keccak256Hash([]byte("v2")), current.TermsHash)

	created := s.publisher.ByType(events.TypeAgreementCreated)
	s.Require().Len(created, 2)
	s.True(created[1].AgreementCreated.Replaced)
}

func (s *ServiceSuite) TestCreateRejectsReplay() {
	ctx := context.Background()
	distributor := testutil.NewSigner(s.T())

	req := s.createRequest(distributor, []byte("terms"), 1)
	_, err := s.service.Create(ctx, req)
	s.Require().NoError(err)

	_, err = s.service.Create(ctx, req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDigestReused))
}

func (s *ServiceSuite) TestCreateRejectsWrongSigner() {
	ctx := context.Background()
	distributor := testutil.NewSigner(s.T())
	impostor := testutil.NewSigner(s.T())

	req := s.createRequest(distributor, []byte("terms"), 1)
	digest := s.digests.Agreement(distributor.Principal, req.TermsPayload, req.Nonce)
	req.Signature = impostor.Sign(s.T(), digest)

	_, err := s.service.Create(ctx, req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSignatureMismatch))
}

func (s *ServiceSuite) TestCreateRejectsTamperedTerms() {
	ctx := context.Background()
	distributor := testutil.NewSigner(s.T())

	req := s.createRequest(distributor, []byte("terms"), 1)
	req.TermsPayload = []byte("terms, plus a clause nobody signed")

	_, err := s.service.Create(ctx, req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSignatureMismatch))
}

func (s *ServiceSuite) TestValidation() {
	ctx := context.Background()
	distributor := testutil.NewSigner(s.T())

	cases := []struct {
		name   string
		mutate func(*models.CreateRequest)
	}{
		{"zero units", func(r *models.CreateRequest) { r.Units = 0 }},
		{"zero unit price", func(r *models.CreateRequest) { r.UnitPrice = 0 }},
		{"zero percentage", func(r *models.CreateRequest) { r.Percentage = 0 }},
		{"zero nonce", func(r *models.CreateRequest) { r.Nonce = 0 }},
		{"empty terms", func(r *models.CreateRequest) { r.TermsPayload = nil }},
		{"zero distributor", func(r *models.CreateRequest) { r.Distributor = domain.ZeroPrincipal }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := s.createRequest(distributor, []byte("terms"), 1)
			tc.mutate(&req)
			_, err := s.service.Create(ctx, req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func (s *ServiceSuite) TestAgreementOfUnknownDistributor() {
	_, err := s.service.AgreementOf(context.Background(), domain.Principal{0x01})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestPausedRegistryRejectsCreate() {
	ctx := context.Background()
	s.Require().NoError(s.gate.GrantRole(ctx, s.admin, s.admin, access.RolePauser))
	s.Require().NoError(s.gate.SetPaused(ctx, s.admin, access.RegistryAgreement, true))

	distributor := testutil.NewSigner(s.T())
	_, err := s.service.Create(ctx, s.createRequest(distributor, []byte("terms"), 1))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePaused))
}
