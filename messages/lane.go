package messages

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"

	"github.com/datachainlab/grandpa-relayer/core"
)

// LaneID identifies a message lane between two chains.
type LaneID [4]byte

// ParseLaneID parses a lane id given as 0x-prefixed hex or as four characters.
func ParseLaneID(s string) (LaneID, error) {
	var id LaneID
	if strings.HasPrefix(s, "0x") {
		bz, err := hex.DecodeString(s[2:])
		if err != nil || len(bz) != len(id) {
			return id, errors.Newf("invalid lane id %q", s)
		}
		copy(id[:], bz)
		return id, nil
	}
	if len(s) != len(id) {
		return id, errors.Newf("invalid lane id %q", s)
	}
	copy(id[:], s)
	return id, nil
}

func (l LaneID) String() string {
	return "0x" + hex.EncodeToString(l[:])
}

func (l LaneID) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LaneID) UnmarshalText(text []byte) error {
	id, err := ParseLaneID(string(text))
	if err != nil {
		return err
	}
	*l = id
	return nil
}

// Nonce is the position of a message in a lane. The first message has nonce 1.
type Nonce uint64

// NonceRange is an inclusive range of nonces. It is empty if Begin > End.
type NonceRange struct {
	Begin Nonce
	End   Nonce
}

func (r NonceRange) IsEmpty() bool {
	return r.Begin > r.End
}

func (r NonceRange) Len() uint64 {
	if r.IsEmpty() {
		return 0
	}
	return uint64(r.End-r.Begin) + 1
}

// MessageDetails describes an outbound message.
type MessageDetails struct {
	Nonce                  Nonce
	DispatchWeight         uint64
	Size                   uint32
	DeliveryAndDispatchFee *uint256.Int
}

func (d MessageDetails) Encode(enc scale.Encoder) error {
	if err := enc.Encode(uint64(d.Nonce)); err != nil {
		return err
	}
	if err := enc.Encode(d.DispatchWeight); err != nil {
		return err
	}
	if err := enc.Encode(d.Size); err != nil {
		return err
	}
	return encodeU128(enc, d.DeliveryAndDispatchFee)
}

func (d *MessageDetails) Decode(dec scale.Decoder) error {
	var nonce uint64
	if err := dec.Decode(&nonce); err != nil {
		return err
	}
	d.Nonce = Nonce(nonce)
	if err := dec.Decode(&d.DispatchWeight); err != nil {
		return err
	}
	if err := dec.Decode(&d.Size); err != nil {
		return err
	}
	fee, err := decodeU128(dec)
	if err != nil {
		return err
	}
	d.DeliveryAndDispatchFee = fee
	return nil
}

// UnrewardedRelayersState summarizes the relayers the target owes rewards to.
type UnrewardedRelayersState struct {
	UnrewardedRelayerEntries uint64
	MessagesInOldestEntry    uint64
	TotalMessages            uint64
}

func (s UnrewardedRelayersState) Encode(enc scale.Encoder) error {
	for _, v := range []uint64{s.UnrewardedRelayerEntries, s.MessagesInOldestEntry, s.TotalMessages} {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *UnrewardedRelayersState) Decode(dec scale.Decoder) error {
	for _, v := range []*uint64{&s.UnrewardedRelayerEntries, &s.MessagesInOldestEntry, &s.TotalMessages} {
		if err := dec.Decode(v); err != nil {
			return err
		}
	}
	return nil
}

// MessagesProof proves that the messages with nonces in [NoncesStart,
// NoncesEnd] are stored in the outbound lane at the bridged header.
type MessagesProof struct {
	BridgedHeaderHash core.Hash
	StorageProof      [][]byte
	Lane              LaneID
	NoncesStart       Nonce
	NoncesEnd         Nonce
}

func (p MessagesProof) Encode(enc scale.Encoder) error {
	if err := enc.Write(p.BridgedHeaderHash[:]); err != nil {
		return err
	}
	if err := encodeStorageProof(enc, p.StorageProof); err != nil {
		return err
	}
	if err := enc.Write(p.Lane[:]); err != nil {
		return err
	}
	if err := enc.Encode(uint64(p.NoncesStart)); err != nil {
		return err
	}
	return enc.Encode(uint64(p.NoncesEnd))
}

func (p *MessagesProof) Decode(dec scale.Decoder) error {
	if err := dec.Read(p.BridgedHeaderHash[:]); err != nil {
		return err
	}
	proof, err := decodeStorageProof(dec)
	if err != nil {
		return err
	}
	p.StorageProof = proof
	if err := dec.Read(p.Lane[:]); err != nil {
		return err
	}
	var start, end uint64
	if err := dec.Decode(&start); err != nil {
		return err
	}
	if err := dec.Decode(&end); err != nil {
		return err
	}
	p.NoncesStart, p.NoncesEnd = Nonce(start), Nonce(end)
	return nil
}

func (p MessagesProof) Nonces() NonceRange {
	return NonceRange{Begin: p.NoncesStart, End: p.NoncesEnd}
}

// MessagesReceivingProof proves the state of the inbound lane at the bridged
// header. RelayersState is submitted next to the proof and is not part of
// its encoding.
type MessagesReceivingProof struct {
	BridgedHeaderHash core.Hash
	StorageProof      [][]byte
	Lane              LaneID
	RelayersState     UnrewardedRelayersState
}

func (p MessagesReceivingProof) Encode(enc scale.Encoder) error {
	if err := enc.Write(p.BridgedHeaderHash[:]); err != nil {
		return err
	}
	if err := encodeStorageProof(enc, p.StorageProof); err != nil {
		return err
	}
	return enc.Write(p.Lane[:])
}

func (p *MessagesReceivingProof) Decode(dec scale.Decoder) error {
	if err := dec.Read(p.BridgedHeaderHash[:]); err != nil {
		return err
	}
	proof, err := decodeStorageProof(dec)
	if err != nil {
		return err
	}
	p.StorageProof = proof
	return dec.Read(p.Lane[:])
}

const (
	maxProofNodes   = 1 << 16
	maxProofNodeLen = 1 << 24
)

func encodeLen(enc scale.Encoder, n int) error {
	return enc.EncodeUintCompact(*new(big.Int).SetUint64(uint64(n)))
}

func decodeLen(dec scale.Decoder, limit uint64) (int, error) {
	n, err := dec.DecodeUintCompact()
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() || n.Uint64() > limit {
		return 0, errors.Newf("sequence length %s exceeds limit %d", n, limit)
	}
	return int(n.Uint64()), nil
}

func encodeStorageProof(enc scale.Encoder, nodes [][]byte) error {
	if err := encodeLen(enc, len(nodes)); err != nil {
		return err
	}
	for _, node := range nodes {
		if err := encodeLen(enc, len(node)); err != nil {
			return err
		}
		if err := enc.Write(node); err != nil {
			return err
		}
	}
	return nil
}

func decodeStorageProof(dec scale.Decoder) ([][]byte, error) {
	n, err := decodeLen(dec, maxProofNodes)
	if err != nil || n == 0 {
		return nil, err
	}
	nodes := make([][]byte, n)
	for i := range nodes {
		l, err := decodeLen(dec, maxProofNodeLen)
		if err != nil {
			return nil, err
		}
		nodes[i] = make([]byte, l)
		if l == 0 {
			continue
		}
		if err := dec.Read(nodes[i]); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

func encodeU128(enc scale.Encoder, v *uint256.Int) error {
	var le [16]byte
	if v != nil {
		if v.BitLen() > 128 {
			return errors.Newf("value %s overflows u128", v.Dec())
		}
		be := v.Bytes32()
		for i := 0; i < 16; i++ {
			le[i] = be[31-i]
		}
	}
	return enc.Write(le[:])
}

func decodeU128(dec scale.Decoder) (*uint256.Int, error) {
	var le [16]byte
	if err := dec.Read(le[:]); err != nil {
		return nil, err
	}
	var be [16]byte
	for i := range le {
		be[15-i] = le[i]
	}
	return new(uint256.Int).SetBytes(be[:]), nil
}

// Encode returns the SCALE encoding of v.
func Encode(v interface{ Encode(scale.Encoder) error }) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.Encode(*scale.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes bz into v and rejects trailing bytes.
func Decode(bz []byte, v interface{ Decode(scale.Decoder) error }) error {
	r := bytes.NewReader(bz)
	if err := v.Decode(*scale.NewDecoder(r)); err != nil {
		return err
	}
	if r.Len() != 0 {
		return errors.Newf("%d trailing bytes", r.Len())
	}
	return nil
}
