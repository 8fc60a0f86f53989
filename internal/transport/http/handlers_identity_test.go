package httptransport

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veristry/internal/access"
	"veristry/internal/callertoken"
	"veristry/internal/events"
	identityservice "veristry/internal/identity/service"
	identitystore "veristry/internal/identity/store"
	"veristry/internal/platform/logger"
	"veristry/internal/replay"
	replaystore "veristry/internal/replay/store"
	"veristry/internal/signing"
	"veristry/internal/transport/http/shared"
	"veristry/pkg/domain"
	"veristry/pkg/testutil"
)

type IdentityHandlerSuite struct {
	suite.Suite
	server  *httptest.Server
	tokens  *callertoken.Manager
	digests *signing.Builder

	sponsor domain.Principal
}

func (s *IdentityHandlerSuite) SetupTest() {
	ctx := context.Background()
	log := logger.New("error")

	publisher := events.NewMemoryPublisher()
	gate := access.NewGate(access.NewInMemory(), publisher, log)
	admin := domain.Principal{0xad}
	s.sponsor = domain.Principal{0x50}
	s.Require().NoError(gate.Bootstrap(ctx, admin))
	s.Require().NoError(gate.GrantRole(ctx, admin, s.sponsor, access.RoleSponsor))

	s.digests = signing.NewBuilder(signing.DomainParams{Name: "veristry", Version: "1", NetworkID: 1337})
	guard := replay.NewGuard(replaystore.NewInMemory())
	identities := identityservice.NewService(identitystore.NewInMemory(), gate, guard, s.digests, publisher, log, nil)

	s.tokens = callertoken.NewManager("test-signing-key")

	router := NewRouter(RouterDeps{
		Identity:       NewIdentityHandler(identities, log),
		DataPermission: NewDataPermissionHandler(nil, log),
		Agreement:      NewAgreementHandler(nil, log),
		Admin:          NewAdminHandler(gate, log),
		Validator:      s.tokens,
		Logger:         log,
	})
	s.server = httptest.NewServer(router)
}

func (s *IdentityHandlerSuite) TearDownTest() {
	s.server.Close()
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) do(method, path string, caller domain.Principal, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)

	token, err := s.tokens.Issue(caller, time.Minute)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *IdentityHandlerSuite) createBody(signer *testutil.Signer, nonce uint64) map[string]any {
	digest := s.digests.Identity([]byte("kyc"), signer.Principal, "ipfs://meta", domain.Nonce(nonce))
	return map[string]any{
		"signature":   "0x" + hex.EncodeToString(signer.Sign(s.T(), digest)),
		"kycHash":     "0x" + hex.EncodeToString([]byte("kyc")),
		"principal":   signer.Principal.String(),
		"metadataUri": "ipfs://meta",
		"nonce":       nonce,
	}
}

func (s *IdentityHandlerSuite) TestCreateIdentity() {
	signer := testutil.NewSigner(s.T())

	resp := s.do(http.MethodPost, "/v1/identities", s.sponsor, s.createBody(signer, 7))
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var out struct {
		ID    uint64 `json:"id"`
		Owner string `json:"owner"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	s.Equal(uint64(1), out.ID)
	s.Equal(signer.Principal.String(), out.Owner)
}

func (s *IdentityHandlerSuite) TestReplayReturnsConflict() {
	signer := testutil.NewSigner(s.T())
	body := s.createBody(signer, 7)

	resp := s.do(http.MethodPost, "/v1/identities", s.sponsor, body)
	resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp = s.do(http.MethodDelete, "/v1/identities/1", signer.Principal, nil)
	resp.Body.Close()
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)

	resp = s.do(http.MethodPost, "/v1/identities", s.sponsor, body)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusConflict, resp.StatusCode)

	var errResp shared.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("digest_reused", errResp.Error)
}

func (s *IdentityHandlerSuite) TestUnsponsoredCallerForbidden() {
	signer := testutil.NewSigner(s.T())

	resp := s.do(http.MethodPost, "/v1/identities", domain.Principal{0x99}, s.createBody(signer, 1))
	defer resp.Body.Close()
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *IdentityHandlerSuite) TestMissingTokenUnauthorized() {
	resp, err := s.server.Client().Post(s.server.URL+"/v1/identities", "application/json", bytes.NewBufferString("{}"))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *IdentityHandlerSuite) TestTransferMethodNotAllowed() {
	signer := testutil.NewSigner(s.T())
	resp := s.do(http.MethodPost, "/v1/identities", s.sponsor, s.createBody(signer, 1))
	resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp = s.do(http.MethodPost, "/v1/identities/1/transfer", signer.Principal, map[string]any{
		"to": domain.Principal{0x02}.String(),
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}

func (s *IdentityHandlerSuite) TestInvalidPrincipalRejected() {
	body := map[string]any{
		"signature": "0xdead",
		"kycHash":   "0xbeef",
		"principal": "not-an-address",
		"nonce":     1,
	}
	resp := s.do(http.MethodPost, "/v1/identities", s.sponsor, body)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *IdentityHandlerSuite) TestReadEndpoints() {
	signer := testutil.NewSigner(s.T())
	resp := s.do(http.MethodPost, "/v1/identities", s.sponsor, s.createBody(signer, 1))
	resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	s.Run("registered", func() {
		resp := s.do(http.MethodGet, fmt.Sprintf("/v1/principals/%s/registered", signer.Principal), s.sponsor, nil)
		defer resp.Body.Close()
		s.Require().Equal(http.StatusOK, resp.StatusCode)

		var out map[string]bool
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
		s.True(out["registered"])
	})

	s.Run("owner of missing identity", func() {
		resp := s.do(http.MethodGet, "/v1/identities/42/owner", s.sponsor, nil)
		defer resp.Body.Close()
		s.Require().Equal(http.StatusNotFound, resp.StatusCode)
	})
}
