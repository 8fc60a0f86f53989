package signing

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"veristry/pkg/domain"
)

type DigestSuite struct {
	suite.Suite
	builder *Builder
}

func (s *DigestSuite) SetupTest() {
	s.builder = NewBuilder(DomainParams{
		Name:      "veristry",
		Version:   "1",
		NetworkID: 1337,
	})
}

func TestDigestSuite(t *testing.T) {
	suite.Run(t, new(DigestSuite))
}

func (s *DigestSuite) TestDeterminism() {
	principal := domain.Principal{0x11}
	a := s.builder.Identity([]byte("kyc"), principal, "ipfs://meta", 7)
	b := s.builder.Identity([]byte("kyc"), principal, "ipfs://meta", 7)
	s.Equal(a, b)
}

func (s *DigestSuite) TestFieldSensitivity() {
	principal := domain.Principal{0x11}
	base := s.builder.Identity([]byte("kyc"), principal, "ipfs://meta", 7)

	s.Run("nonce changes digest", func() {
		s.NotEqual(base, s.builder.Identity([]byte("kyc"), principal, "ipfs://meta", 8))
	})
	s.Run("principal changes digest", func() {
		s.NotEqual(base, s.builder.Identity([]byte("kyc"), domain.Principal{0x22}, "ipfs://meta", 7))
	})
	s.Run("kyc hash changes digest", func() {
		s.NotEqual(base, s.builder.Identity([]byte("kyc2"), principal, "ipfs://meta", 7))
	})
	s.Run("metadata changes digest", func() {
		s.NotEqual(base, s.builder.Identity([]byte("kyc"), principal, "ipfs://other", 7))
	})
}

func (s *DigestSuite) TestInjectiveEncoding() {
	// Shifting a byte between two variable-length fields must not collide,
	// because each is hashed before concatenation.
	principal := domain.Principal{0x11}
	a := s.builder.Identity([]byte("ab"), principal, "c", 7)
	b := s.builder.Identity([]byte("a"), principal, "bc", 7)
	s.NotEqual(a, b)
}

func (s *DigestSuite) TestOperationTagsDisjoint() {
	// A data submission and an agreement over structurally similar fields
	// never share a digest.
	principal := domain.Principal{0x11}
	hash := domain.DataHash{0x01}
	a := s.builder.DataSubmission(principal, hash, 1)
	b := s.builder.Agreement(principal, hash.Bytes(), 1)
	s.NotEqual(a, b)
}

func (s *DigestSuite) TestDomainSeparation() {
	principal := domain.Principal{0x11}
	other := NewBuilder(DomainParams{
		Name:      "veristry",
		Version:   "1",
		NetworkID: 1,
	})
	s.NotEqual(
		s.builder.Identity([]byte("kyc"), principal, "m", 7),
		other.Identity([]byte("kyc"), principal, "m", 7),
	)
	s.NotEqual(s.builder.Separator(), other.Separator())
}

func (s *DigestSuite) TestPermissionBindsOffset() {
	owner := domain.Principal{0x11}
	hash := domain.DataHash{0x01}
	a := s.builder.Permission(owner, 1, hash, 2, 3, 3600)
	b := s.builder.Permission(owner, 1, hash, 2, 3, 7200)
	s.NotEqual(a, b)
}
