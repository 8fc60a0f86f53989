package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"veristry/pkg/domain"
	"veristry/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) TestCreateAssignsSequentialIDs() {
	ctx := context.Background()

	first, err := s.store.Create(ctx, domain.Principal{0x01}, []byte("kyc1"), "m1")
	s.Require().NoError(err)
	s.Equal(domain.IdentityID(1), first.ID)

	second, err := s.store.Create(ctx, domain.Principal{0x02}, []byte("kyc2"), "m2")
	s.Require().NoError(err)
	s.Equal(domain.IdentityID(2), second.ID)
}

func (s *InMemorySuite) TestCreateRejectsSecondIdentityPerOwner() {
	ctx := context.Background()
	owner := domain.Principal{0x01}

	_, err := s.store.Create(ctx, owner, []byte("kyc"), "m")
	s.Require().NoError(err)

	_, err = s.store.Create(ctx, owner, []byte("kyc"), "m")
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemorySuite) TestLookups() {
	ctx := context.Background()
	owner := domain.Principal{0x01}
	created, err := s.store.Create(ctx, owner, []byte("kyc"), "m")
	s.Require().NoError(err)

	s.Run("by owner", func() {
		found, err := s.store.FindByOwner(ctx, owner)
		s.Require().NoError(err)
		s.Equal(created, found)
	})
	s.Run("by id", func() {
		found, err := s.store.FindByID(ctx, created.ID)
		s.Require().NoError(err)
		s.Equal(created, found)
	})
	s.Run("unknown owner", func() {
		_, err := s.store.FindByOwner(ctx, domain.Principal{0x99})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
	s.Run("unknown id", func() {
		_, err := s.store.FindByID(ctx, 99)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySuite) TestRemoveNeverReusesID() {
	ctx := context.Background()
	owner := domain.Principal{0x01}

	first, err := s.store.Create(ctx, owner, []byte("kyc"), "m")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Remove(ctx, first.ID))

	_, err = s.store.FindByOwner(ctx, owner)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	second, err := s.store.Create(ctx, owner, []byte("kyc"), "m")
	s.Require().NoError(err)
	s.Equal(domain.IdentityID(2), second.ID, "removed IDs must not come back")
}

func (s *InMemorySuite) TestRemoveUnknownID() {
	err := s.store.Remove(context.Background(), 42)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestRestoreReinsertsIdentity() {
	ctx := context.Background()
	owner := domain.Principal{0x01}
	created, err := s.store.Create(ctx, owner, []byte("kyc"), "m")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Remove(ctx, created.ID))
	s.Require().NoError(s.store.Restore(ctx, created))

	found, err := s.store.FindByOwner(ctx, owner)
	s.Require().NoError(err)
	s.Equal(created, found)
}
