package mock

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/finality"
	"github.com/datachainlab/grandpa-relayer/grandpa"
	"github.com/datachainlab/grandpa-relayer/messages"
	"github.com/datachainlab/grandpa-relayer/signer"
)

var testLane = messages.LaneID{0, 0, 0, 1}

func newTestChain(t *testing.T, name string) *Chain {
	t.Helper()
	c, err := NewChain(ChainConfig{Name: name, BlockInterval: "10ms"})
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	return c
}

func newTestSigner(t *testing.T, b byte) core.Signer {
	t.Helper()
	s, err := signer.NewEd25519(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return s
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, ChainConfig{Name: "Rialto"}.Validate())
	require.Error(t, ChainConfig{}.Validate())
	require.Error(t, ChainConfig{Name: "Rialto", Authorities: 100}.Validate())
	require.Error(t, ChainConfig{Name: "Rialto", BlockInterval: "soon"}.Validate())
	require.Error(t, ChainConfig{Name: "Rialto", OutboundLanes: []OutboundLaneConfig{{Lane: "0001"}}}.Validate())
}

func TestStateProof(t *testing.T) {
	st := state{"b": []byte{2}, "a": []byte{1}, "c": nil}
	root := st.root()

	proven, err := verifyProof(st.nodes(), root)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, proven["a"])
	require.Equal(t, []byte{2}, proven["b"])

	tampered := st.clone()
	tampered["a"] = []byte{9}
	_, err = verifyProof(tampered.nodes(), root)
	require.Error(t, err)

	nodes := st.nodes()
	nodes[0], nodes[1] = nodes[1], nodes[0]
	_, err = verifyProof(nodes, root)
	require.Error(t, err)
}

func TestMethodPeer(t *testing.T) {
	cases := map[string]string{
		core.BestFinalizedMethod("Millau"):                  "Millau",
		core.IsKnownHeaderMethod("Millau"):                  "Millau",
		core.OutboundMessageDetailsMethod("Millau"):         "Millau",
		core.InboundUnrewardedRelayersStateMethod("Millau"): "Millau",
	}
	for method, peer := range cases {
		got, ok := methodPeer(method)
		require.True(t, ok, method)
		require.Equal(t, peer, got)
	}
	_, ok := methodPeer("Core_version")
	require.False(t, ok)
	_, ok = methodPeer("FinalityApi_best_finalized")
	require.False(t, ok)
}

func TestSubmitValidatesTransaction(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t, "Rialto")
	s := newTestSigner(t, 1)
	genesis, err := c.GenesisHash(ctx)
	require.NoError(t, err)
	call := core.Call{Pallet: GrandpaPallet("Millau"), Function: callSubmitFinalityProof}

	_, err = c.SubmitSignedTransaction(ctx, s, func(best core.HeaderID, nonce uint32) ([]byte, error) {
		return c.SignTransaction(s, genesis, core.Era{}, call, nonce+1)
	})
	require.ErrorContains(t, err, "invalid transaction nonce")

	_, err = c.SubmitSignedTransaction(ctx, s, func(best core.HeaderID, nonce uint32) ([]byte, error) {
		return c.SignTransaction(s, core.Hash{1}, core.Era{}, call, nonce)
	})
	require.ErrorContains(t, err, "another chain")

	_, err = c.SubmitSignedTransaction(ctx, s, func(best core.HeaderID, nonce uint32) ([]byte, error) {
		return c.SignTransaction(s, genesis, core.Era{}, call, nonce)
	})
	require.ErrorContains(t, err, "not initialized")

	best, err := c.BestHeaderID(ctx)
	require.NoError(t, err)
	require.Zero(t, best.Number, "failed transactions must not seal blocks")
}

func TestSubmitRejectsExpiredTransaction(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t, "Rialto")
	s := newTestSigner(t, 1)
	genesis, err := c.GenesisHash(ctx)
	require.NoError(t, err)
	mortality := uint32(4)
	era := core.NewEra(core.HeaderID{}, &mortality)
	require.NoError(t, c.ProduceBlocks(8))

	_, err = c.SubmitSignedTransaction(ctx, s, func(best core.HeaderID, nonce uint32) ([]byte, error) {
		return c.SignTransaction(s, genesis, era, core.Call{Pallet: GrandpaPallet("Millau"), Function: callInitialize}, nonce)
	})
	require.ErrorContains(t, err, "expired")
}

func TestConnectionFailures(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t, "Rialto")

	c.FailNext(errors.New("broken pipe"))
	_, err := c.BestHeaderID(ctx)
	require.True(t, core.IsConnectionError(err))
	_, err = c.BestHeaderID(ctx)
	require.NoError(t, err)

	c.Disconnect()
	_, err = c.GenesisHash(ctx)
	require.True(t, core.IsConnectionError(err))
	require.NoError(t, c.Reconnect(ctx))
	_, err = c.GenesisHash(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, c.Reconnects())
}

func TestAuthoritySetChange(t *testing.T) {
	ctx := context.Background()
	c := newTestChain(t, "Rialto")
	setID, before := c.Authorities()
	require.Zero(t, setID)
	require.Len(t, before, 4)

	require.NoError(t, c.ScheduleAuthoritySetChange(3))
	id, err := c.ProduceBlock()
	require.NoError(t, err)

	header, encoded, err := c.HeaderAndJustification(ctx, id.Number)
	require.NoError(t, err)
	require.True(t, header.IsMandatory())
	change, err := header.ScheduledAuthoritySetChange()
	require.NoError(t, err)
	require.Len(t, change.NextAuthorities, 3)

	// the mandatory header is finalized by the old set
	oldSet, err := grandpa.NewVoterSet(0, before)
	require.NoError(t, err)
	_, err = grandpa.VerifyEncodedJustification(id, 0, oldSet, encoded)
	require.NoError(t, err)

	// runtime calls at the mandatory header return the enacted set
	bz, err := c.CallRuntime(ctx, core.GrandpaAPICurrentSetID, nil, &id.Hash)
	require.NoError(t, err)
	n, err := core.DecodeU64(bz)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	bz, err = c.CallRuntime(ctx, core.GrandpaAPIAuthorities, nil, &id.Hash)
	require.NoError(t, err)
	voters, err := grandpa.DecodeAuthorityList(bz)
	require.NoError(t, err)
	require.Equal(t, change.NextAuthorities, voters)
}

func initBridge(t *testing.T, source, target *Chain, s core.Signer) {
	t.Helper()
	_, err := finality.InitBridge(context.Background(), source, target, GrandpaPallet(source.Name()), s)
	require.NoError(t, err)
}

func submitHeader(ctx context.Context, t *testing.T, source, target *Chain, s core.Signer, number core.BlockNumber) error {
	t.Helper()
	header, encoded, err := source.HeaderAndJustification(ctx, number)
	require.NoError(t, err)
	j, err := grandpa.DecodeJustification(encoded)
	require.NoError(t, err)
	return finality.NewChainTarget(target, source.Name(), GrandpaPallet(source.Name()), s, nil).
		SubmitFinalityProof(ctx, header, j)
}

func TestFinalityPallet(t *testing.T) {
	ctx := context.Background()
	rialto, millau := newTestChain(t, "Rialto"), newTestChain(t, "Millau")
	s := newTestSigner(t, 1)
	require.NoError(t, rialto.ProduceBlocks(2))
	initBridge(t, rialto, millau, s)

	best, ok := millau.BridgedBestFinalized("Rialto")
	require.True(t, ok)
	require.EqualValues(t, 2, best.Number)

	_, err := finality.InitBridge(ctx, rialto, millau, GrandpaPallet("Rialto"), s)
	require.ErrorContains(t, err, "already initialized")

	require.NoError(t, rialto.ProduceBlocks(3))
	require.NoError(t, submitHeader(ctx, t, rialto, millau, s, 4))
	known, err := core.QueryIsKnownHeader(ctx, millau, "Rialto", rialto.blocks[4].header.Hash())
	require.NoError(t, err)
	require.True(t, known)

	err = submitHeader(ctx, t, rialto, millau, s, 4)
	require.True(t, errors.Is(err, core.ErrAlreadyIncluded))
	err = submitHeader(ctx, t, rialto, millau, s, 3)
	require.True(t, errors.Is(err, core.ErrProofRejected))

	// a justification of another header
	header, _, err := rialto.HeaderAndJustification(ctx, 5)
	require.NoError(t, err)
	_, encoded, err := rialto.HeaderAndJustification(ctx, 4)
	require.NoError(t, err)
	j, err := grandpa.DecodeJustification(encoded)
	require.NoError(t, err)
	err = finality.NewChainTarget(millau, "Rialto", GrandpaPallet("Rialto"), s, nil).SubmitFinalityProof(ctx, header, j)
	require.True(t, errors.Is(err, core.ErrProofRejected))
	require.True(t, errors.Is(err, grandpa.ErrInvalidJustificationTarget))

	id, err := core.QueryBestFinalized(ctx, millau, "Rialto", nil)
	require.NoError(t, err)
	require.EqualValues(t, 4, id.Number)
}

func TestMessagesPallet(t *testing.T) {
	ctx := context.Background()
	rialto, millau := newTestChain(t, "Rialto"), newTestChain(t, "Millau")
	s := newTestSigner(t, 1)
	initBridge(t, rialto, millau, s)
	initBridge(t, millau, rialto, s)

	for i := 0; i < 3; i++ {
		_, err := rialto.SendMessage("Millau", testLane, 10, 32, uint256.NewInt(100))
		require.NoError(t, err)
	}
	rialtoBest, err := rialto.BestHeaderID(ctx)
	require.NoError(t, err)
	require.NoError(t, submitHeader(ctx, t, rialto, millau, s, rialtoBest.Number))

	source := messages.NewChainSource(rialto, "Millau", testLane, MessagesPallet("Millau"), s, nil)
	target := messages.NewChainTarget(millau, "Rialto", testLane, MessagesPallet("Rialto"), core.AccountID{9}, s, nil)

	generated, err := source.LatestGeneratedNonce(ctx, rialtoBest)
	require.NoError(t, err)
	require.EqualValues(t, 3, generated)
	details, err := source.GeneratedMessageDetails(ctx, rialtoBest, messages.NonceRange{Begin: 1, End: 3})
	require.NoError(t, err)
	require.Len(t, details, 3)

	proof, err := source.ProveMessages(ctx, rialtoBest, messages.NonceRange{Begin: 1, End: 2})
	require.NoError(t, err)
	require.True(t, errors.Is(target.SubmitMessagesProof(ctx, rialtoBest, proof.Nonces(), 10, proof), core.ErrProofRejected))
	require.NoError(t, target.SubmitMessagesProof(ctx, rialtoBest, proof.Nonces(), 20, proof))
	require.True(t, errors.Is(target.SubmitMessagesProof(ctx, rialtoBest, proof.Nonces(), 20, proof), core.ErrAlreadyIncluded))

	millauBest, err := millau.BestHeaderID(ctx)
	require.NoError(t, err)
	received, err := target.LatestReceivedNonce(ctx, millauBest)
	require.NoError(t, err)
	require.EqualValues(t, 2, received)
	relayers, err := target.UnrewardedRelayersState(ctx, millauBest)
	require.NoError(t, err)
	require.Equal(t, messages.UnrewardedRelayersState{UnrewardedRelayerEntries: 1, MessagesInOldestEntry: 2, TotalMessages: 2}, relayers)

	// confirmation needs the millau header at rialto
	receiving, err := target.ProveMessagesReceiving(ctx, millauBest)
	require.NoError(t, err)
	require.True(t, errors.Is(source.SubmitMessagesReceivingProof(ctx, millauBest, receiving), core.ErrProofRejected))
	require.NoError(t, submitHeader(ctx, t, millau, rialto, s, millauBest.Number))
	require.NoError(t, source.SubmitMessagesReceivingProof(ctx, millauBest, receiving))

	rialtoBest, err = rialto.BestHeaderID(ctx)
	require.NoError(t, err)
	confirmed, err := source.LatestConfirmedNonce(ctx, rialtoBest)
	require.NoError(t, err)
	require.EqualValues(t, 2, confirmed)
	balance, err := rialto.FreeBalance(ctx, core.AccountID{9})
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(defaultInitialBalance+200), balance)

	// confirmed messages are pruned
	details, err = source.GeneratedMessageDetails(ctx, rialtoBest, messages.NonceRange{Begin: 3, End: 3})
	require.NoError(t, err)
	require.Len(t, details, 1)
	_, ok, err := rialto.state.outboundMessage("Millau", testLane, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSubscribeJustifications(t *testing.T) {
	c := newTestChain(t, "Rialto")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := c.SubscribeJustifications(ctx)
	require.NoError(t, err)
	require.NoError(t, c.ProduceBlocks(2))
	for n := core.BlockNumber(1); n <= 2; n++ {
		j, err := grandpa.DecodeJustification(<-sub)
		require.NoError(t, err)
		require.Equal(t, n, j.Commit.TargetNumber)
	}

	cancel()
	require.Eventually(t, func() bool { return c.Subscribers() == 0 }, time.Second, time.Millisecond)
	_, ok := <-sub
	require.False(t, ok)

	// a dropped connection breaks every subscription
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	sub, err = c.SubscribeJustifications(ctx)
	require.NoError(t, err)
	c.Disconnect()
	_, ok = <-sub
	require.False(t, ok)
	_, err = c.SubscribeJustifications(ctx)
	require.True(t, core.IsConnectionError(err))
}
