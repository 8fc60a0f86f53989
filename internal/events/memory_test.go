package events

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"veristry/pkg/domain"
)

func TestMemoryPublisherKeepsOrder(t *testing.T) {
	p := NewMemoryPublisher()
	ctx := context.Background()

	first := New(TypeIdentityCreated, common.HexToHash("0x01"))
	first.IdentityCreated = &IdentityCreated{IdentityID: 1}
	second := New(TypeIdentityBurned, common.HexToHash("0x02"))
	second.IdentityBurned = &IdentityBurned{IdentityID: 1}

	require.NoError(t, p.Emit(ctx, first))
	require.NoError(t, p.Emit(ctx, second))

	all := p.Events()
	require.Len(t, all, 2)
	require.Equal(t, TypeIdentityCreated, all[0].Type)
	require.Equal(t, TypeIdentityBurned, all[1].Type)
}

func TestMemoryPublisherFiltersByType(t *testing.T) {
	p := NewMemoryPublisher()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e := New(TypeDataSubmitted, common.Hash{byte(i)})
		e.DataSubmitted = &DataSubmitted{SequenceIndex: uint64(i)}
		require.NoError(t, p.Emit(ctx, e))
	}
	burn := New(TypeIdentityBurned, common.Hash{})
	burn.IdentityBurned = &IdentityBurned{IdentityID: 9}
	require.NoError(t, p.Emit(ctx, burn))

	submitted := p.ByType(TypeDataSubmitted)
	require.Len(t, submitted, 3)
	for i, e := range submitted {
		require.Equal(t, uint64(i), e.DataSubmitted.SequenceIndex)
	}
	require.Len(t, p.ByType(TypeIdentityBurned), 1)
	require.Empty(t, p.ByType(TypePermissionGranted))
}

func TestNewAssignsIDAndTimestamp(t *testing.T) {
	e := New(TypeAgreementCreated, common.HexToHash("0xab"))
	require.NotEmpty(t, e.ID)
	require.False(t, e.Timestamp.IsZero())
	require.Equal(t, common.HexToHash("0xab"), e.Digest)

	other := New(TypeAgreementCreated, common.HexToHash("0xab"))
	require.NotEqual(t, e.ID, other.ID)
}

func TestEventPayloadPointers(t *testing.T) {
	e := New(TypeIdentityCreated, common.Hash{})
	e.IdentityCreated = &IdentityCreated{IdentityID: 1, Owner: domain.Principal{0x01}}
	require.Nil(t, e.IdentityBurned)
	require.Nil(t, e.DataSubmitted)
}
