package messages

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/datachainlab/grandpa-relayer/core"
)

type testSigner struct{}

func (testSigner) AccountID() core.AccountID { return core.AccountID{2} }

func (testSigner) Sign([]byte) ([]byte, error) { return make([]byte, 64), nil }

var testLane = LaneID{0, 0, 0, 1}

func TestChainSourceReads(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := core.NewMockChain(ctrl)
	ctx := context.Background()
	at := core.HeaderID{Number: 10, Hash: core.Hash{10}}

	source := NewChainSource(chain, "Wococo", testLane, "BridgeWococoMessages", testSigner{}, nil)

	chain.EXPECT().CallRuntime(ctx, "ToWococoOutboundLaneApi_latest_generated_nonce", testLane[:], &at.Hash).
		Return(core.EncodeU64(12), nil)
	chain.EXPECT().CallRuntime(ctx, "ToWococoOutboundLaneApi_latest_received_nonce", testLane[:], &at.Hash).
		Return(core.EncodeU64(4), nil)

	generated, err := source.LatestGeneratedNonce(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, Nonce(12), generated)
	confirmed, err := source.LatestConfirmedNonce(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, Nonce(4), confirmed)

	list := []MessageDetails{
		{Nonce: 5, DispatchWeight: 1, Size: 10, DeliveryAndDispatchFee: uint256.NewInt(3)},
		{Nonce: 6, DispatchWeight: 1, Size: 10, DeliveryAndDispatchFee: uint256.NewInt(3)},
	}
	bz, err := EncodeMessageDetailsList(list)
	require.NoError(t, err)
	args := append(append(append([]byte{}, testLane[:]...), core.EncodeU64(5)...), core.EncodeU64(6)...)
	chain.EXPECT().CallRuntime(ctx, "ToWococoOutboundLaneApi_message_details", args, &at.Hash).Return(bz, nil)
	got, err := source.GeneratedMessageDetails(ctx, at, NonceRange{Begin: 5, End: 6})
	require.NoError(t, err)
	assert.Equal(t, list, got)

	// a gap in the returned nonces is an error
	chain.EXPECT().CallRuntime(ctx, "ToWococoOutboundLaneApi_message_details", gomock.Any(), &at.Hash).Return(bz, nil)
	_, err = source.GeneratedMessageDetails(ctx, at, NonceRange{Begin: 4, End: 6})
	assert.Error(t, err)
}

func TestChainSourceProveMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := core.NewMockChain(ctrl)
	ctx := context.Background()
	at := core.HeaderID{Number: 10, Hash: core.Hash{10}}

	source := NewChainSource(chain, "Wococo", testLane, "BridgeWococoMessages", testSigner{}, nil)
	keys := [][]byte{
		OutboundMessageKey("BridgeWococoMessages", testLane, 3),
		OutboundMessageKey("BridgeWococoMessages", testLane, 4),
		OutboundLaneKey("BridgeWococoMessages", testLane),
	}
	chain.EXPECT().ReadProof(ctx, keys, at.Hash).Return([][]byte{{1}, {2}}, nil)

	proof, err := source.ProveMessages(ctx, at, NonceRange{Begin: 3, End: 4})
	require.NoError(t, err)
	assert.Equal(t, &MessagesProof{
		BridgedHeaderHash: at.Hash,
		StorageProof:      [][]byte{{1}, {2}},
		Lane:              testLane,
		NoncesStart:       3,
		NoncesEnd:         4,
	}, proof)
}

func TestChainTargetDeliversAndProves(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := core.NewMockChain(ctrl)
	ctx := context.Background()
	at := core.HeaderID{Number: 20, Hash: core.Hash{20}}
	relayer := core.AccountID{0x77}
	signer := testSigner{}

	target := NewChainTarget(chain, "Betanet", testLane, "BridgeBetanetMessages", relayer, signer, nil)

	state := UnrewardedRelayersState{UnrewardedRelayerEntries: 1, MessagesInOldestEntry: 2, TotalMessages: 2}
	stateBz, err := Encode(state)
	require.NoError(t, err)
	chain.EXPECT().CallRuntime(ctx, "FromBetanetInboundLaneApi_unrewarded_relayers_state", testLane[:], &at.Hash).
		Return(stateBz, nil)
	chain.EXPECT().ReadProof(ctx, [][]byte{InboundLaneKey("BridgeBetanetMessages", testLane)}, at.Hash).
		Return([][]byte{{9}}, nil)

	receiving, err := target.ProveMessagesReceiving(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, state, receiving.RelayersState)
	assert.Equal(t, at.Hash, receiving.BridgedHeaderHash)

	proof := &MessagesProof{BridgedHeaderHash: core.Hash{1}, Lane: testLane, NoncesStart: 1, NoncesEnd: 2}
	args, err := EncodeReceiveMessagesProof(relayer, proof, 2, 7)
	require.NoError(t, err)
	genesis := core.Hash{0x99}
	best := core.HeaderID{Number: 30, Hash: core.Hash{30}}
	call := core.Call{Pallet: "BridgeBetanetMessages", Function: "receive_messages_proof", Args: args}

	chain.EXPECT().GenesisHash(gomock.Any()).Return(genesis, nil)
	chain.EXPECT().SignTransaction(signer, genesis, core.NewEra(best, nil), call, uint32(0)).Return([]byte("tx"), nil)
	chain.EXPECT().SubmitSignedTransaction(gomock.Any(), signer, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ core.Signer, build core.TransactionBuilder) (core.TransactionStatus, error) {
			_, err := build(best, 0)
			return core.TransactionStatus{}, err
		})
	require.NoError(t, target.SubmitMessagesProof(ctx, core.HeaderID{Number: 1}, NonceRange{Begin: 1, End: 2}, 7, proof))

	var decoded ReceiveMessagesProofArgs
	require.NoError(t, Decode(args, &decoded))
	assert.Equal(t, relayer, decoded.Relayer)
	assert.Equal(t, uint32(2), decoded.MessagesCount)
	assert.Equal(t, uint64(7), decoded.DispatchWeight)
}

func TestReceiveMessagesDeliveryProofArgs(t *testing.T) {
	proof := &MessagesReceivingProof{
		BridgedHeaderHash: core.Hash{3},
		StorageProof:      [][]byte{{1, 2}},
		Lane:              testLane,
		RelayersState:     UnrewardedRelayersState{UnrewardedRelayerEntries: 1, MessagesInOldestEntry: 5, TotalMessages: 5},
	}
	bz, err := EncodeReceiveMessagesDeliveryProof(proof)
	require.NoError(t, err)
	decoded, err := DecodeReceiveMessagesDeliveryProof(bz)
	require.NoError(t, err)
	assert.Equal(t, proof, decoded)
}
