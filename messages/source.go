package messages

import (
	"bytes"
	"context"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/core"
)

const (
	receiveMessagesDeliveryProofCall = "receive_messages_delivery_proof"

	maxMessagesInDetails = 1 << 16
)

// ChainSource reads an outbound lane of a core.Chain and submits delivery
// confirmations to its messages pallet.
type ChainSource struct {
	chain      core.Chain
	targetName string
	lane       LaneID
	pallet     string
	submitter  *core.CallSubmitter
}

var _ SourceClient = (*ChainSource)(nil)

// NewChainSource returns the source side of lane. pallet is the messages
// pallet instance bridging to targetName.
func NewChainSource(chain core.Chain, targetName string, lane LaneID, pallet string, signer core.Signer, mortality *uint32) *ChainSource {
	return &ChainSource{
		chain:      chain,
		targetName: targetName,
		lane:       lane,
		pallet:     pallet,
		submitter:  core.NewCallSubmitter(chain, signer, mortality),
	}
}

func (s *ChainSource) Reconnect(ctx context.Context) error {
	return s.chain.Reconnect(ctx)
}

func (s *ChainSource) State(ctx context.Context) (core.ClientState, error) {
	return core.QueryClientState(ctx, s.chain, s.targetName)
}

func (s *ChainSource) LatestGeneratedNonce(ctx context.Context, at core.HeaderID) (Nonce, error) {
	return queryNonce(ctx, s.chain, core.OutboundLatestGeneratedNonceMethod(s.targetName), s.lane, at)
}

func (s *ChainSource) LatestConfirmedNonce(ctx context.Context, at core.HeaderID) (Nonce, error) {
	return queryNonce(ctx, s.chain, core.OutboundLatestReceivedNonceMethod(s.targetName), s.lane, at)
}

func (s *ChainSource) GeneratedMessageDetails(ctx context.Context, at core.HeaderID, nonces NonceRange) ([]MessageDetails, error) {
	if nonces.IsEmpty() {
		return nil, nil
	}
	method := core.OutboundMessageDetailsMethod(s.targetName)
	args := make([]byte, 0, len(s.lane)+16)
	args = append(args, s.lane[:]...)
	args = append(args, core.EncodeU64(uint64(nonces.Begin))...)
	args = append(args, core.EncodeU64(uint64(nonces.End))...)
	bz, err := s.chain.CallRuntime(ctx, method, args, &at.Hash)
	if err != nil {
		return nil, err
	}
	details, err := DecodeMessageDetailsList(bz)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s result", method)
	}
	// the runtime omits pruned messages so the list must be checked against the range
	expected := nonces.Begin
	for _, d := range details {
		if d.Nonce != expected || d.Nonce > nonces.End {
			return nil, errors.Newf("%s returned nonce %d, expected %d", method, d.Nonce, expected)
		}
		expected++
	}
	return details, nil
}

func (s *ChainSource) ProveMessages(ctx context.Context, at core.HeaderID, nonces NonceRange) (*MessagesProof, error) {
	keys := make([][]byte, 0, nonces.Len()+1)
	for n := nonces.Begin; n <= nonces.End && !nonces.IsEmpty(); n++ {
		keys = append(keys, OutboundMessageKey(s.pallet, s.lane, n))
	}
	keys = append(keys, OutboundLaneKey(s.pallet, s.lane))
	proof, err := s.chain.ReadProof(ctx, keys, at.Hash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to prove messages [%d, %d]", nonces.Begin, nonces.End)
	}
	return &MessagesProof{
		BridgedHeaderHash: at.Hash,
		StorageProof:      proof,
		Lane:              s.lane,
		NoncesStart:       nonces.Begin,
		NoncesEnd:         nonces.End,
	}, nil
}

func (s *ChainSource) SubmitMessagesReceivingProof(ctx context.Context, generatedAt core.HeaderID, proof *MessagesReceivingProof) error {
	args, err := EncodeReceiveMessagesDeliveryProof(proof)
	if err != nil {
		return err
	}
	_, err = s.submitter.Submit(ctx, core.Call{Pallet: s.pallet, Function: receiveMessagesDeliveryProofCall, Args: args})
	return errors.Wrapf(err, "failed to confirm delivery at target header %d", generatedAt.Number)
}

// EncodeReceiveMessagesDeliveryProof encodes the arguments of receive_messages_delivery_proof.
func EncodeReceiveMessagesDeliveryProof(proof *MessagesReceivingProof) ([]byte, error) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	if err := proof.Encode(*enc); err != nil {
		return nil, errors.Wrap(err, "failed to encode messages receiving proof")
	}
	if err := proof.RelayersState.Encode(*enc); err != nil {
		return nil, errors.Wrap(err, "failed to encode relayers state")
	}
	return buf.Bytes(), nil
}

// DecodeReceiveMessagesDeliveryProof decodes the arguments of receive_messages_delivery_proof.
func DecodeReceiveMessagesDeliveryProof(bz []byte) (*MessagesReceivingProof, error) {
	r := bytes.NewReader(bz)
	dec := scale.NewDecoder(r)
	var proof MessagesReceivingProof
	if err := proof.Decode(*dec); err != nil {
		return nil, errors.Wrap(err, "failed to decode messages receiving proof")
	}
	if err := proof.RelayersState.Decode(*dec); err != nil {
		return nil, errors.Wrap(err, "failed to decode relayers state")
	}
	if r.Len() != 0 {
		return nil, errors.Newf("%d trailing bytes", r.Len())
	}
	return &proof, nil
}

// EncodeMessageDetailsList encodes a SCALE vector of message details.
func EncodeMessageDetailsList(details []MessageDetails) ([]byte, error) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	if err := encodeLen(*enc, len(details)); err != nil {
		return nil, err
	}
	for _, d := range details {
		if err := d.Encode(*enc); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func DecodeMessageDetailsList(bz []byte) ([]MessageDetails, error) {
	r := bytes.NewReader(bz)
	dec := scale.NewDecoder(r)
	n, err := decodeLen(*dec, maxMessagesInDetails)
	if err != nil {
		return nil, err
	}
	details := make([]MessageDetails, n)
	for i := range details {
		if err := details[i].Decode(*dec); err != nil {
			return nil, err
		}
	}
	if r.Len() != 0 {
		return nil, errors.Newf("%d trailing bytes", r.Len())
	}
	return details, nil
}

func queryNonce(ctx context.Context, chain core.Chain, method string, lane LaneID, at core.HeaderID) (Nonce, error) {
	bz, err := chain.CallRuntime(ctx, method, lane[:], &at.Hash)
	if err != nil {
		return 0, err
	}
	n, err := core.DecodeU64(bz)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s result", method)
	}
	return Nonce(n), nil
}
