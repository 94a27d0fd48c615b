package mock

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/finality"
	"github.com/datachainlab/grandpa-relayer/grandpa"
	"github.com/datachainlab/grandpa-relayer/messages"
)

// Calls of the bridge pallets.
const (
	callInitialize                   = "initialize"
	callSubmitFinalityProof          = "submit_finality_proof"
	callReceiveMessagesProof         = "receive_messages_proof"
	callReceiveMessagesDeliveryProof = "receive_messages_delivery_proof"
)

func rejected(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), core.ErrProofRejected)
}

func palletPeer(pallet, kind string) (string, bool) {
	if !strings.HasPrefix(pallet, "Bridge") || !strings.HasSuffix(pallet, kind) {
		return "", false
	}
	peer := strings.TrimSuffix(strings.TrimPrefix(pallet, "Bridge"), kind)
	return peer, peer != ""
}

// dispatch applies call to the draft state st. Changes outside of the state
// are deferred to the returned commit function.
func (c *Chain) dispatch(st state, call core.Call) (func(), error) {
	if peer, ok := palletPeer(call.Pallet, "Grandpa"); ok {
		switch call.Function {
		case callInitialize:
			return c.initializeBridge(peer, call.Args)
		case callSubmitFinalityProof:
			return c.submitFinalityProof(peer, call.Args)
		}
	}
	if peer, ok := palletPeer(call.Pallet, "Messages"); ok {
		switch call.Function {
		case callReceiveMessagesProof:
			return c.receiveMessagesProof(st, peer, call.Args)
		case callReceiveMessagesDeliveryProof:
			return c.receiveMessagesDeliveryProof(st, peer, call.Args)
		}
	}
	return nil, errors.Newf("unknown call %s", call)
}

func (c *Chain) initializeBridge(peer string, args []byte) (func(), error) {
	if _, ok := c.bridges[peer]; ok {
		return nil, errors.Newf("bridge with %s is already initialized", peer)
	}
	data, err := finality.DecodeInitializationData(args)
	if err != nil {
		return nil, err
	}
	voters, err := grandpa.NewVoterSet(data.SetID, data.Authorities)
	if err != nil {
		return nil, err
	}
	header := data.Header
	return func() {
		c.bridges[peer] = &bridgedChain{
			voters:  voters,
			best:    header.ID(),
			headers: map[core.Hash]*grandpa.Header{header.Hash(): &header},
			halted:  data.IsHalted,
		}
	}, nil
}

func (c *Chain) bridge(peer string) (*bridgedChain, error) {
	b, ok := c.bridges[peer]
	if !ok {
		return nil, errors.Newf("bridge with %s is not initialized", peer)
	}
	if b.halted {
		return nil, errors.Newf("bridge with %s is halted", peer)
	}
	return b, nil
}

func (c *Chain) submitFinalityProof(peer string, args []byte) (func(), error) {
	b, err := c.bridge(peer)
	if err != nil {
		return nil, err
	}
	header, j, err := finality.DecodeSubmitFinalityProof(args)
	if err != nil {
		return nil, errors.Mark(err, core.ErrProofRejected)
	}
	id := header.ID()
	if id.Number <= b.best.Number {
		if _, ok := b.headers[id.Hash]; ok {
			return nil, errors.Wrapf(core.ErrAlreadyIncluded, "header %d", id.Number)
		}
		return nil, rejected("header %d is older than the best finalized header %d", id.Number, b.best.Number)
	}
	if err := grandpa.VerifyJustification(id, b.voters.SetID(), b.voters, j); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "header %d", id.Number), core.ErrProofRejected)
	}
	change, err := header.ScheduledAuthoritySetChange()
	if err != nil {
		return nil, errors.Mark(err, core.ErrProofRejected)
	}
	next := b.voters
	if change != nil {
		if next, err = grandpa.NewVoterSet(b.voters.SetID()+1, change.NextAuthorities); err != nil {
			return nil, errors.Mark(err, core.ErrProofRejected)
		}
	}
	return func() {
		b.headers[id.Hash] = header
		b.best = id
		b.voters = next
	}, nil
}

// provenState verifies a storage proof against the state root of a bridged header.
func (c *Chain) provenState(peer string, at core.Hash, nodes [][]byte) (state, error) {
	b, err := c.bridge(peer)
	if err != nil {
		return nil, err
	}
	header, ok := b.headers[at]
	if !ok {
		return nil, rejected("unknown %s header %s", peer, at)
	}
	proven, err := verifyProof(nodes, header.StateRoot)
	if err != nil {
		return nil, errors.Mark(err, core.ErrProofRejected)
	}
	return proven, nil
}

func (c *Chain) receiveMessagesProof(st state, peer string, args []byte) (func(), error) {
	var a messages.ReceiveMessagesProofArgs
	if err := messages.Decode(args, &a); err != nil {
		return nil, errors.Mark(err, core.ErrProofRejected)
	}
	nonces := a.Proof.Nonces()
	if nonces.IsEmpty() || uint64(a.MessagesCount) != nonces.Len() {
		return nil, rejected("invalid messages count %d for [%d, %d]", a.MessagesCount, nonces.Begin, nonces.End)
	}
	if a.DispatchWeight > c.config.MaxExtrinsicWeight {
		return nil, errors.Wrapf(core.ErrBatchTooLarge, "dispatch weight %d exceeds %d", a.DispatchWeight, c.config.MaxExtrinsicWeight)
	}
	proven, err := c.provenState(peer, a.Proof.BridgedHeaderHash, a.Proof.StorageProof)
	if err != nil {
		return nil, err
	}
	lane := a.Proof.Lane
	var weight uint64
	for n := nonces.Begin; n <= nonces.End; n++ {
		d, ok, err := proven.outboundMessage(c.config.Name, lane, n)
		if err != nil {
			return nil, errors.Mark(err, core.ErrProofRejected)
		}
		if !ok {
			return nil, rejected("message %d is not proven", n)
		}
		weight += d.DispatchWeight
	}
	if weight != a.DispatchWeight {
		return nil, rejected("declared dispatch weight %d does not match %d", a.DispatchWeight, weight)
	}

	in, err := st.inboundLane(peer, lane)
	if err != nil {
		return nil, err
	}
	out, err := proven.outboundLane(c.config.Name, lane)
	if err != nil {
		return nil, errors.Mark(err, core.ErrProofRejected)
	}
	in.confirm(out.LatestReceivedNonce)

	received := messages.Nonce(in.latestReceived())
	if nonces.End <= received {
		return nil, errors.Wrapf(core.ErrAlreadyIncluded, "messages [%d, %d]", nonces.Begin, nonces.End)
	}
	if nonces.Begin > received+1 {
		return nil, rejected("messages [%d, %d] skip nonce %d", nonces.Begin, nonces.End, received+1)
	}
	begin := uint64(received) + 1
	relayers := in.relayersState()
	if relayers.TotalMessages+uint64(nonces.End)-begin+1 > c.config.MaxUnconfirmedMessages {
		return nil, errors.Wrapf(core.ErrBatchTooLarge, "too many unconfirmed messages at lane %s", lane)
	}
	if last := len(in.Relayers) - 1; last >= 0 && in.Relayers[last].Relayer == a.Relayer {
		in.Relayers[last].End = uint64(nonces.End)
	} else {
		if relayers.UnrewardedRelayerEntries >= c.config.MaxUnrewardedRelayerEntries {
			return nil, errors.Wrapf(core.ErrBatchTooLarge, "too many unrewarded relayer entries at lane %s", lane)
		}
		in.Relayers = append(in.Relayers, relayerEntry{Relayer: a.Relayer, Begin: begin, End: uint64(nonces.End)})
	}
	st.setInboundLane(peer, lane, in)
	return func() {}, nil
}

func (c *Chain) receiveMessagesDeliveryProof(st state, peer string, args []byte) (func(), error) {
	proof, err := messages.DecodeReceiveMessagesDeliveryProof(args)
	if err != nil {
		return nil, errors.Mark(err, core.ErrProofRejected)
	}
	proven, err := c.provenState(peer, proof.BridgedHeaderHash, proof.StorageProof)
	if err != nil {
		return nil, err
	}
	lane := proof.Lane
	in, err := proven.inboundLane(c.config.Name, lane)
	if err != nil {
		return nil, errors.Mark(err, core.ErrProofRejected)
	}
	out, err := st.outboundLane(peer, lane)
	if err != nil {
		return nil, err
	}
	received := in.latestReceived()
	if received <= out.LatestReceivedNonce {
		return nil, errors.Wrapf(core.ErrAlreadyIncluded, "delivery of %d", received)
	}
	if received > out.LatestGeneratedNonce {
		return nil, rejected("proven nonce %d was never generated", received)
	}
	if in.relayersState() != proof.RelayersState {
		return nil, rejected("unrewarded relayers state does not match the proof")
	}

	rewards := make(map[core.AccountID]*uint256.Int)
	for _, e := range in.Relayers {
		for n := max(e.Begin, out.LatestReceivedNonce+1); n <= e.End; n++ {
			d, ok, err := st.outboundMessage(peer, lane, messages.Nonce(n))
			if err != nil {
				return nil, err
			}
			if !ok || d.DeliveryAndDispatchFee == nil {
				continue
			}
			if rewards[e.Relayer] == nil {
				rewards[e.Relayer] = new(uint256.Int)
			}
			rewards[e.Relayer].Add(rewards[e.Relayer], d.DeliveryAndDispatchFee)
		}
	}
	for n := out.OldestUnprunedNonce; n <= received; n++ {
		delete(st, string(messages.OutboundMessageKey(MessagesPallet(peer), lane, messages.Nonce(n))))
	}
	out.OldestUnprunedNonce = received + 1
	out.LatestReceivedNonce = received
	st.setOutboundLane(peer, lane, out)
	return func() {
		for relayer, reward := range rewards {
			balance := c.balance(relayer)
			balance.Add(balance, reward)
		}
	}, nil
}
