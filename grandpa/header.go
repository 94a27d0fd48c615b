package grandpa

import (
	"bytes"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blake2b"
)

// DigestItemKind is the SCALE variant index of a header digest item.
type DigestItemKind byte

const (
	DigestItemOther                     DigestItemKind = 0
	DigestItemConsensus                 DigestItemKind = 4
	DigestItemSeal                      DigestItemKind = 5
	DigestItemPreRuntime                DigestItemKind = 6
	DigestItemRuntimeEnvironmentUpdated DigestItemKind = 8
)

// EngineID identifies the consensus engine of a digest item.
type EngineID [4]byte

// GrandpaEngineID is the engine id of GRANDPA consensus logs.
var GrandpaEngineID = EngineID{'F', 'R', 'N', 'K'}

const (
	grandpaLogScheduledChange byte = 1

	maxDigestItems   = 1 << 10
	maxDigestDataLen = 1 << 24
)

// DigestItem is a single header digest entry. Engine is only meaningful for
// consensus, seal and pre-runtime items.
type DigestItem struct {
	Kind   DigestItemKind
	Engine EngineID
	Data   []byte
}

func (d DigestItem) Encode(enc scale.Encoder) error {
	if err := enc.PushByte(byte(d.Kind)); err != nil {
		return err
	}
	switch d.Kind {
	case DigestItemOther:
		return encodeBytes(enc, d.Data)
	case DigestItemConsensus, DigestItemSeal, DigestItemPreRuntime:
		if err := enc.Write(d.Engine[:]); err != nil {
			return err
		}
		return encodeBytes(enc, d.Data)
	case DigestItemRuntimeEnvironmentUpdated:
		return nil
	default:
		return errors.Newf("unsupported digest item kind: %d", d.Kind)
	}
}

func (d *DigestItem) Decode(dec scale.Decoder) error {
	kind, err := dec.ReadOneByte()
	if err != nil {
		return err
	}
	d.Kind = DigestItemKind(kind)
	switch d.Kind {
	case DigestItemOther:
		d.Data, err = decodeBytes(dec, maxDigestDataLen)
		return err
	case DigestItemConsensus, DigestItemSeal, DigestItemPreRuntime:
		if err := dec.Read(d.Engine[:]); err != nil {
			return err
		}
		d.Data, err = decodeBytes(dec, maxDigestDataLen)
		return err
	case DigestItemRuntimeEnvironmentUpdated:
		return nil
	default:
		return errors.Newf("unsupported digest item kind: %d", kind)
	}
}

// Header is a Substrate block header.
type Header struct {
	ParentHash     Hash
	Number         BlockNumber
	StateRoot      Hash
	ExtrinsicsRoot Hash
	Digest         []DigestItem
}

func (h Header) Encode(enc scale.Encoder) error {
	if err := enc.Write(h.ParentHash[:]); err != nil {
		return err
	}
	if err := encodeCompact(enc, uint64(h.Number)); err != nil {
		return err
	}
	if err := enc.Write(h.StateRoot[:]); err != nil {
		return err
	}
	if err := enc.Write(h.ExtrinsicsRoot[:]); err != nil {
		return err
	}
	if err := encodeCompact(enc, uint64(len(h.Digest))); err != nil {
		return err
	}
	for _, item := range h.Digest {
		if err := item.Encode(enc); err != nil {
			return err
		}
	}
	return nil
}

func (h *Header) Decode(dec scale.Decoder) error {
	if err := dec.Read(h.ParentHash[:]); err != nil {
		return err
	}
	number, err := decodeCompact(dec)
	if err != nil {
		return err
	}
	if number > uint64(^BlockNumber(0)) {
		return errors.Newf("block number overflows: %d", number)
	}
	h.Number = BlockNumber(number)
	if err := dec.Read(h.StateRoot[:]); err != nil {
		return err
	}
	if err := dec.Read(h.ExtrinsicsRoot[:]); err != nil {
		return err
	}
	n, err := decodeLen(dec, maxDigestItems)
	if err != nil {
		return err
	}
	h.Digest = nil
	if n > 0 {
		h.Digest = make([]DigestItem, n)
	}
	for i := range h.Digest {
		if err := h.Digest[i].Decode(dec); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the SCALE encoding of the header.
func (h *Header) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := h.Encode(*scale.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash returns the blake2b-256 hash of the encoded header.
func (h *Header) Hash() Hash {
	bz, err := h.Bytes()
	if err != nil {
		// only unsupported digest kinds fail to encode and Decode never produces them
		panic(err)
	}
	return blake2b.Sum256(bz)
}

// ID returns the id of the header.
func (h *Header) ID() HeaderID {
	return HeaderID{Number: h.Number, Hash: h.Hash()}
}

// DecodeHeader decodes a SCALE encoded header.
func DecodeHeader(bz []byte) (*Header, error) {
	r := bytes.NewReader(bz)
	var h Header
	if err := h.Decode(*scale.NewDecoder(r)); err != nil {
		return nil, errors.Wrap(err, "failed to decode header")
	}
	if r.Len() != 0 {
		return nil, errors.Newf("header has %d trailing bytes", r.Len())
	}
	return &h, nil
}

// ScheduledChange is a GRANDPA authority set change announced in a header.
type ScheduledChange struct {
	NextAuthorities []Voter
	Delay           BlockNumber
}

// ScheduledAuthoritySetChange returns the authority set change scheduled by
// the header, if any.
func (h *Header) ScheduledAuthoritySetChange() (*ScheduledChange, error) {
	for _, item := range h.Digest {
		if item.Kind != DigestItemConsensus || item.Engine != GrandpaEngineID {
			continue
		}
		if len(item.Data) == 0 || item.Data[0] != grandpaLogScheduledChange {
			continue
		}
		dec := scale.NewDecoder(bytes.NewReader(item.Data[1:]))
		change := &ScheduledChange{}
		voters, err := decodeAuthorityList(*dec)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode scheduled change")
		}
		change.NextAuthorities = voters
		if err := dec.Decode(&change.Delay); err != nil {
			return nil, errors.Wrap(err, "failed to decode scheduled change")
		}
		return change, nil
	}
	return nil, nil
}

// IsMandatory reports whether the header changes the GRANDPA authority set.
// Such headers must be imported by every bridge, otherwise later
// justifications cannot be verified.
func (h *Header) IsMandatory() bool {
	change, err := h.ScheduledAuthoritySetChange()
	return err == nil && change != nil
}

// NewScheduledChangeDigest builds the consensus digest item announcing change.
func NewScheduledChangeDigest(change ScheduledChange) (DigestItem, error) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	if err := enc.PushByte(grandpaLogScheduledChange); err != nil {
		return DigestItem{}, err
	}
	if err := encodeAuthorityList(*enc, change.NextAuthorities); err != nil {
		return DigestItem{}, err
	}
	if err := enc.Encode(change.Delay); err != nil {
		return DigestItem{}, err
	}
	return DigestItem{Kind: DigestItemConsensus, Engine: GrandpaEngineID, Data: buf.Bytes()}, nil
}

func encodeCompact(enc scale.Encoder, v uint64) error {
	return enc.EncodeUintCompact(*new(big.Int).SetUint64(v))
}

func decodeCompact(dec scale.Decoder) (uint64, error) {
	v, err := dec.DecodeUintCompact()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errors.New("compact integer overflows uint64")
	}
	return v.Uint64(), nil
}

func decodeLen(dec scale.Decoder, max int) (int, error) {
	n, err := decodeCompact(dec)
	if err != nil {
		return 0, err
	}
	if n > uint64(max) {
		return 0, errors.Newf("sequence length %d exceeds limit %d", n, max)
	}
	return int(n), nil
}

func encodeBytes(enc scale.Encoder, bz []byte) error {
	if err := encodeCompact(enc, uint64(len(bz))); err != nil {
		return err
	}
	return enc.Write(bz)
}

func decodeBytes(dec scale.Decoder, max int) ([]byte, error) {
	n, err := decodeLen(dec, max)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	bz := make([]byte, n)
	if err := dec.Read(bz); err != nil {
		return nil, err
	}
	return bz, nil
}
