package mock_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/datachainlab/grandpa-relayer/chains/mock"
	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/finality"
	"github.com/datachainlab/grandpa-relayer/messages"
	"github.com/datachainlab/grandpa-relayer/signer"
)

const (
	waitFor = 10 * time.Second
	tick    = 10 * time.Millisecond
)

var lane = messages.LaneID{0, 0, 0, 1}

func newChain(t *testing.T, name string) *mock.Chain {
	t.Helper()
	c, err := mock.NewChain(mock.ChainConfig{Name: name, BlockInterval: "10ms"})
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	return c
}

func newSigner(t *testing.T, b byte) core.Signer {
	t.Helper()
	s, err := signer.NewEd25519(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return s
}

type relay struct {
	t      *testing.T
	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
}

func newRelay(t *testing.T) *relay {
	ctx, cancel := context.WithCancel(context.Background())
	eg, ctx := errgroup.WithContext(ctx)
	r := &relay{t: t, ctx: ctx, cancel: cancel, eg: eg}
	t.Cleanup(r.stop)
	return r
}

func (r *relay) stop() {
	r.cancel()
	if err := r.eg.Wait(); err != nil {
		require.ErrorIs(r.t, err, context.Canceled)
	}
}

func (r *relay) headers(source, target *mock.Chain, s core.Signer, onlyMandatory bool) {
	p := finality.NewPipeline(source.Name(), target.Name(),
		finality.NewChainSource(source),
		finality.NewChainTarget(target, source.Name(), mock.GrandpaPallet(source.Name()), s, nil),
		finality.SyncParams{
			Tick:                      tick,
			RecentFinalityProofsLimit: 16,
			StallTimeout:              time.Minute,
			OnlyMandatoryHeaders:      onlyMandatory,
			ReconnectDelay:            tick,
		},
	)
	r.eg.Go(func() error { return p.Run(r.ctx) })
}

func (r *relay) messages(source, target *mock.Chain, s core.Signer, rewards core.AccountID) {
	l := messages.NewLoop(source.Name(), target.Name(),
		messages.NewChainSource(source, target.Name(), lane, mock.MessagesPallet(target.Name()), s, nil),
		messages.NewChainTarget(target, source.Name(), lane, mock.MessagesPallet(source.Name()), rewards, s, nil),
		nil,
		messages.Params{
			Lane:           lane,
			Tick:           tick,
			ReconnectDelay: tick,
			StallTimeout:   time.Minute,
			Limits: messages.BatchLimits{
				MaxMessages:            4,
				MaxWeight:              1000,
				MaxSize:                1 << 16,
				MaxUnrewardedEntries:   8,
				MaxUnconfirmedAtTarget: 32,
			},
		},
	)
	r.eg.Go(func() error { return l.Run(r.ctx) })
}

func bridgedBest(c *mock.Chain, peer string) core.BlockNumber {
	id, _ := c.BridgedBestFinalized(peer)
	return id.Number
}

func bestNumber(t *testing.T, c *mock.Chain) core.BlockNumber {
	id, err := c.BestHeaderID(context.Background())
	require.NoError(t, err)
	return id.Number
}

func queryNonce(c *mock.Chain, method string) uint64 {
	bz, err := c.CallRuntime(context.Background(), method, lane[:], nil)
	if err != nil {
		return 0
	}
	n, _ := core.DecodeU64(bz)
	return n
}

func TestRelayHeaders(t *testing.T) {
	rialto, millau := newChain(t, "Rialto"), newChain(t, "Millau")
	s := newSigner(t, 1)
	_, err := finality.InitBridge(context.Background(), rialto, millau, mock.GrandpaPallet("Rialto"), s)
	require.NoError(t, err)
	require.NoError(t, rialto.ProduceBlocks(5))

	r := newRelay(t)
	r.headers(rialto, millau, s, false)
	require.Eventually(t, func() bool { return bridgedBest(millau, "Rialto") == 5 }, waitFor, tick)

	// headers of the next authority set are accepted once the change is imported
	require.NoError(t, rialto.ScheduleAuthoritySetChange(3))
	require.NoError(t, rialto.ProduceBlocks(4))
	require.Eventually(t, func() bool { return bridgedBest(millau, "Rialto") == 9 }, waitFor, tick)
}

func TestRelayOnlyMandatoryHeaders(t *testing.T) {
	rialto, millau := newChain(t, "Rialto"), newChain(t, "Millau")
	s := newSigner(t, 1)
	_, err := finality.InitBridge(context.Background(), rialto, millau, mock.GrandpaPallet("Rialto"), s)
	require.NoError(t, err)
	require.NoError(t, rialto.ProduceBlocks(3))
	require.NoError(t, rialto.ScheduleAuthoritySetChange(5))
	mandatory, err := rialto.ProduceBlock()
	require.NoError(t, err)
	require.NoError(t, rialto.ProduceBlocks(3))

	r := newRelay(t)
	r.headers(rialto, millau, s, true)
	require.Eventually(t, func() bool { return bridgedBest(millau, "Rialto") == mandatory.Number }, waitFor, tick)
	time.Sleep(10 * tick)
	require.Equal(t, mandatory.Number, bridgedBest(millau, "Rialto"))
	require.Greater(t, bestNumber(t, rialto), mandatory.Number)
}

func TestRelayMessages(t *testing.T) {
	rialto, millau := newChain(t, "Rialto"), newChain(t, "Millau")
	headerRelayer, messageRelayer := newSigner(t, 1), newSigner(t, 2)
	rewards := core.AccountID{9}
	_, err := finality.InitBridge(context.Background(), rialto, millau, mock.GrandpaPallet("Rialto"), headerRelayer)
	require.NoError(t, err)
	_, err = finality.InitBridge(context.Background(), millau, rialto, mock.GrandpaPallet("Millau"), headerRelayer)
	require.NoError(t, err)

	const sent = 10
	for i := 0; i < sent; i++ {
		_, err := rialto.SendMessage("Millau", lane, 10, 64, uint256.NewInt(100))
		require.NoError(t, err)
	}

	r := newRelay(t)
	r.headers(rialto, millau, headerRelayer, false)
	r.headers(millau, rialto, headerRelayer, false)
	r.messages(rialto, millau, messageRelayer, rewards)

	require.Eventually(t, func() bool {
		return queryNonce(rialto, core.OutboundLatestReceivedNonceMethod("Millau")) == sent
	}, waitFor, tick)
	require.EqualValues(t, sent, queryNonce(millau, core.InboundLatestReceivedNonceMethod("Rialto")))

	balance, err := rialto.FreeBalance(context.Background(), rewards)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1_000_000_000+sent*100), balance)
}

func TestRelayMessagesAfterDisconnect(t *testing.T) {
	rialto, millau := newChain(t, "Rialto"), newChain(t, "Millau")
	s := newSigner(t, 1)
	_, err := finality.InitBridge(context.Background(), rialto, millau, mock.GrandpaPallet("Rialto"), s)
	require.NoError(t, err)
	_, err = finality.InitBridge(context.Background(), millau, rialto, mock.GrandpaPallet("Millau"), s)
	require.NoError(t, err)
	_, err = rialto.SendMessage("Millau", lane, 10, 64, uint256.NewInt(1))
	require.NoError(t, err)

	millau.Disconnect()
	r := newRelay(t)
	r.headers(rialto, millau, s, false)
	r.headers(millau, rialto, s, false)
	r.messages(rialto, millau, newSigner(t, 2), core.AccountID{9})

	require.Eventually(t, func() bool {
		return queryNonce(rialto, core.OutboundLatestReceivedNonceMethod("Millau")) == 1
	}, waitFor, tick)
	require.Positive(t, millau.Reconnects())
}
