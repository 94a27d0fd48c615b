package messages

import (
	"bytes"
	"context"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/core"
)

const receiveMessagesProofCall = "receive_messages_proof"

// ChainTarget reads an inbound lane of a core.Chain and delivers messages to
// its messages pallet.
type ChainTarget struct {
	chain      core.Chain
	sourceName string
	lane       LaneID
	pallet     string
	// relayer is the account rewarded at the source
	relayer   core.AccountID
	submitter *core.CallSubmitter
}

var _ TargetClient = (*ChainTarget)(nil)

// NewChainTarget returns the target side of lane. pallet is the messages
// pallet instance bridging to sourceName.
func NewChainTarget(chain core.Chain, sourceName string, lane LaneID, pallet string, relayer core.AccountID, signer core.Signer, mortality *uint32) *ChainTarget {
	return &ChainTarget{
		chain:      chain,
		sourceName: sourceName,
		lane:       lane,
		pallet:     pallet,
		relayer:    relayer,
		submitter:  core.NewCallSubmitter(chain, signer, mortality),
	}
}

func (t *ChainTarget) Reconnect(ctx context.Context) error {
	return t.chain.Reconnect(ctx)
}

func (t *ChainTarget) State(ctx context.Context) (core.ClientState, error) {
	return core.QueryClientState(ctx, t.chain, t.sourceName)
}

func (t *ChainTarget) LatestReceivedNonce(ctx context.Context, at core.HeaderID) (Nonce, error) {
	return queryNonce(ctx, t.chain, core.InboundLatestReceivedNonceMethod(t.sourceName), t.lane, at)
}

func (t *ChainTarget) LatestConfirmedNonce(ctx context.Context, at core.HeaderID) (Nonce, error) {
	return queryNonce(ctx, t.chain, core.InboundLatestConfirmedNonceMethod(t.sourceName), t.lane, at)
}

func (t *ChainTarget) UnrewardedRelayersState(ctx context.Context, at core.HeaderID) (UnrewardedRelayersState, error) {
	method := core.InboundUnrewardedRelayersStateMethod(t.sourceName)
	var state UnrewardedRelayersState
	bz, err := t.chain.CallRuntime(ctx, method, t.lane[:], &at.Hash)
	if err != nil {
		return state, err
	}
	if err := Decode(bz, &state); err != nil {
		return state, errors.Wrapf(err, "invalid %s result", method)
	}
	return state, nil
}

func (t *ChainTarget) ProveMessagesReceiving(ctx context.Context, at core.HeaderID) (*MessagesReceivingProof, error) {
	relayers, err := t.UnrewardedRelayersState(ctx, at)
	if err != nil {
		return nil, err
	}
	proof, err := t.chain.ReadProof(ctx, [][]byte{InboundLaneKey(t.pallet, t.lane)}, at.Hash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prove inbound lane")
	}
	return &MessagesReceivingProof{
		BridgedHeaderHash: at.Hash,
		StorageProof:      proof,
		Lane:              t.lane,
		RelayersState:     relayers,
	}, nil
}

func (t *ChainTarget) SubmitMessagesProof(ctx context.Context, generatedAt core.HeaderID, nonces NonceRange, dispatchWeight uint64, proof *MessagesProof) error {
	args, err := EncodeReceiveMessagesProof(t.relayer, proof, uint32(nonces.Len()), dispatchWeight)
	if err != nil {
		return err
	}
	_, err = t.submitter.Submit(ctx, core.Call{Pallet: t.pallet, Function: receiveMessagesProofCall, Args: args})
	return errors.Wrapf(err, "failed to deliver messages [%d, %d] proven at source header %d",
		nonces.Begin, nonces.End, generatedAt.Number)
}

// ReceiveMessagesProofArgs are the arguments of receive_messages_proof.
type ReceiveMessagesProofArgs struct {
	Relayer        core.AccountID
	Proof          MessagesProof
	MessagesCount  uint32
	DispatchWeight uint64
}

func (a ReceiveMessagesProofArgs) Encode(enc scale.Encoder) error {
	if err := enc.Write(a.Relayer[:]); err != nil {
		return err
	}
	if err := a.Proof.Encode(enc); err != nil {
		return err
	}
	if err := enc.Encode(a.MessagesCount); err != nil {
		return err
	}
	return enc.Encode(a.DispatchWeight)
}

func (a *ReceiveMessagesProofArgs) Decode(dec scale.Decoder) error {
	if err := dec.Read(a.Relayer[:]); err != nil {
		return err
	}
	if err := a.Proof.Decode(dec); err != nil {
		return err
	}
	if err := dec.Decode(&a.MessagesCount); err != nil {
		return err
	}
	return dec.Decode(&a.DispatchWeight)
}

// EncodeReceiveMessagesProof encodes the arguments of receive_messages_proof.
func EncodeReceiveMessagesProof(relayer core.AccountID, proof *MessagesProof, count uint32, dispatchWeight uint64) ([]byte, error) {
	var buf bytes.Buffer
	args := ReceiveMessagesProofArgs{Relayer: relayer, Proof: *proof, MessagesCount: count, DispatchWeight: dispatchWeight}
	if err := args.Encode(*scale.NewEncoder(&buf)); err != nil {
		return nil, errors.Wrap(err, "failed to encode messages proof")
	}
	return buf.Bytes(), nil
}
