package store

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"veristry/internal/datapermission/models"
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

func (s *InMemorySuite) TestAppendRecordSequencesGlobally() {
	ctx := context.Background()

	first, err := s.store.AppendRecord(ctx, domain.DataHash{0x01}, 1)
	s.Require().NoError(err)
	s.Equal(uint64(0), first.SequenceIndex)

	second, err := s.store.AppendRecord(ctx, domain.DataHash{0x02}, 2)
	s.Require().NoError(err)
	s.Equal(uint64(1), second.SequenceIndex)

	count, err := s.store.RecordCount(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), count)
}

func (s *InMemorySuite) TestHashOwnershipIsFirstWriteWins() {
	ctx := context.Background()
	hash := domain.DataHash{0x01}

	_, err := s.store.AppendRecord(ctx, hash, 1)
	s.Require().NoError(err)
	_, err = s.store.AppendRecord(ctx, hash, 2)
	s.Require().NoError(err)

	owner, err := s.store.OwnerOfHash(ctx, hash)
	s.Require().NoError(err)
	s.Equal(domain.IdentityID(1), owner, "a later submission cannot steal hash ownership")
}

func (s *InMemorySuite) TestOwnerOfUnknownHash() {
	_, err := s.store.OwnerOfHash(context.Background(), domain.DataHash{0x99})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestRecordIndexes() {
	ctx := context.Background()
	_, err := s.store.AppendRecord(ctx, domain.DataHash{0x01}, 1)
	s.Require().NoError(err)
	_, err = s.store.AppendRecord(ctx, domain.DataHash{0x02}, 2)
	s.Require().NoError(err)
	_, err = s.store.AppendRecord(ctx, domain.DataHash{0x03}, 1)
	s.Require().NoError(err)

	s.Run("by global index", func() {
		record, err := s.store.RecordByIndex(ctx, 2)
		s.Require().NoError(err)
		s.Equal(domain.DataHash{0x03}, record.Hash)
	})
	s.Run("out of range", func() {
		_, err := s.store.RecordByIndex(ctx, 3)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
	s.Run("by owner in submission order", func() {
		records, err := s.store.RecordsByOwner(ctx, 1)
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		s.Equal(domain.DataHash{0x01}, records[0].Hash)
		s.Equal(domain.DataHash{0x03}, records[1].Hash)
	})
	s.Run("owner with no records", func() {
		records, err := s.store.RecordsByOwner(ctx, 9)
		s.Require().NoError(err)
		s.Empty(records)
	})
}

func (s *InMemorySuite) TestRemoveLastRecordRollsBack() {
	ctx := context.Background()
	hash := domain.DataHash{0x01}
	record, err := s.store.AppendRecord(ctx, hash, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.store.RemoveLastRecord(ctx, record))

	count, err := s.store.RecordCount(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(0), count)

	_, err = s.store.OwnerOfHash(ctx, hash)
	s.Require().ErrorIs(err, sentinel.ErrNotFound, "rolled-back submission must release hash ownership")
}

func (s *InMemorySuite) TestRemoveLastRecordKeepsEarlierOwnership() {
	ctx := context.Background()
	hash := domain.DataHash{0x01}

	_, err := s.store.AppendRecord(ctx, hash, 1)
	s.Require().NoError(err)
	dup, err := s.store.AppendRecord(ctx, hash, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.store.RemoveLastRecord(ctx, dup))

	owner, err := s.store.OwnerOfHash(ctx, hash)
	s.Require().NoError(err)
	s.Equal(domain.IdentityID(1), owner)
}

func (s *InMemorySuite) TestGrantPermissionUpsertsAndAppendsHistory() {
	ctx := context.Background()
	hash := domain.DataHash{0x01}

	first := models.Permission{
		DataHash:       hash,
		ProductID:      2,
		State:          models.PermissionPermitted,
		RequesterID:    3,
		PermissionHash: models.Receipt(3, hash, 2),
	}
	prev, err := s.store.GrantPermission(ctx, 1, first)
	s.Require().NoError(err)
	s.Nil(prev)

	second := first
	second.RequesterID = 4
	second.PermissionHash = models.Receipt(4, hash, 2)
	prev, err = s.store.GrantPermission(ctx, 1, second)
	s.Require().NoError(err)
	s.Require().NotNil(prev)
	s.Equal(first, *prev)

	found, err := s.store.FindPermission(ctx, hash, 2)
	s.Require().NoError(err)
	s.Equal(second, found)

	history, err := s.store.PermissionHistory(ctx, 1)
	s.Require().NoError(err)
	s.Equal([]common.Hash{first.PermissionHash, second.PermissionHash}, history)
}

func (s *InMemorySuite) TestRevertGrantRestoresPrevious() {
	ctx := context.Background()
	hash := domain.DataHash{0x01}

	first := models.Permission{DataHash: hash, ProductID: 2, RequesterID: 3, PermissionHash: models.Receipt(3, hash, 2)}
	_, err := s.store.GrantPermission(ctx, 1, first)
	s.Require().NoError(err)

	second := models.Permission{DataHash: hash, ProductID: 2, RequesterID: 4, PermissionHash: models.Receipt(4, hash, 2)}
	prev, err := s.store.GrantPermission(ctx, 1, second)
	s.Require().NoError(err)

	s.Require().NoError(s.store.RevertGrant(ctx, 1, second, prev))

	found, err := s.store.FindPermission(ctx, hash, 2)
	s.Require().NoError(err)
	s.Equal(first, found)

	history, err := s.store.PermissionHistory(ctx, 1)
	s.Require().NoError(err)
	s.Equal([]common.Hash{first.PermissionHash}, history)
}

func (s *InMemorySuite) TestFindPermissionUnknownKey() {
	_, err := s.store.FindPermission(context.Background(), domain.DataHash{0x01}, 9)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
