package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/datachainlab/grandpa-relayer/core"
)

func TestRuntimeMethodNames(t *testing.T) {
	assert.Equal(t, "BetanetFinalityApi_best_finalized", core.BestFinalizedMethod("Betanet"))
	assert.Equal(t, "BetanetFinalityApi_is_known_header", core.IsKnownHeaderMethod("Betanet"))
	assert.Equal(t, "ToWococoOutboundLaneApi_message_details", core.OutboundMessageDetailsMethod("Wococo"))
	assert.Equal(t, "ToWococoOutboundLaneApi_latest_generated_nonce", core.OutboundLatestGeneratedNonceMethod("Wococo"))
	assert.Equal(t, "ToWococoOutboundLaneApi_latest_received_nonce", core.OutboundLatestReceivedNonceMethod("Wococo"))
	assert.Equal(t, "FromBetanetInboundLaneApi_latest_received_nonce", core.InboundLatestReceivedNonceMethod("Betanet"))
	assert.Equal(t, "FromBetanetInboundLaneApi_latest_confirmed_nonce", core.InboundLatestConfirmedNonceMethod("Betanet"))
	assert.Equal(t, "FromBetanetInboundLaneApi_unrewarded_relayers_state", core.InboundUnrewardedRelayersStateMethod("Betanet"))
	assert.Equal(t, "BridgeBetanetGrandpa", core.GrandpaPalletName("Betanet"))
	assert.Equal(t, "BridgeWococoMessages", core.MessagesPalletName("Wococo"))
}

func TestQueryClientState(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := core.NewMockChain(ctrl)
	ctx := context.Background()

	best := core.HeaderID{Number: 20, Hash: core.Hash{20}}
	finalized := core.HeaderID{Number: 18, Hash: core.Hash{18}}
	peer := core.HeaderID{Number: 7, Hash: core.Hash{7}}

	chain.EXPECT().BestHeaderID(ctx).Return(best, nil)
	chain.EXPECT().BestFinalizedHeaderID(ctx).Return(finalized, nil)
	chain.EXPECT().CallRuntime(ctx, "BetanetFinalityApi_best_finalized", nil, &best.Hash).Return(core.EncodeHeaderID(peer), nil)

	state, err := core.QueryClientState(ctx, chain, "Betanet")
	require.NoError(t, err)
	assert.Equal(t, core.ClientState{
		BestSelf:                    best,
		BestFinalizedSelf:           finalized,
		BestFinalizedPeerAtBestSelf: peer,
	}, state)
}

func TestQueryIsKnownHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := core.NewMockChain(ctrl)
	ctx := context.Background()
	hash := core.Hash{3}

	chain.EXPECT().CallRuntime(ctx, "BetanetFinalityApi_is_known_header", hash[:], nil).Return([]byte{1}, nil)
	known, err := core.QueryIsKnownHeader(ctx, chain, "Betanet", hash)
	require.NoError(t, err)
	assert.True(t, known)

	chain.EXPECT().CallRuntime(ctx, "BetanetFinalityApi_is_known_header", hash[:], nil).Return([]byte{2}, nil)
	_, err = core.QueryIsKnownHeader(ctx, chain, "Betanet", hash)
	assert.Error(t, err)
}

func TestHeaderIDEncoding(t *testing.T) {
	id := core.HeaderID{Number: 0x01020304, Hash: core.Hash{0xaa, 0xbb}}
	bz := core.EncodeHeaderID(id)
	require.Len(t, bz, 36)
	assert.Equal(t, []byte{4, 3, 2, 1}, bz[:4])

	decoded, err := core.DecodeHeaderID(bz)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)

	_, err = core.DecodeHeaderID(bz[:10])
	assert.Error(t, err)
}
