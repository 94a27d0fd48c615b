package core

import (
	"bytes"
	"encoding/hex"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/grandpa"
)

type (
	Hash        = grandpa.Hash
	BlockNumber = grandpa.BlockNumber
	HeaderID    = grandpa.HeaderID
)

// AccountID is a 32 byte account identifier (public key).
type AccountID [32]byte

func (a AccountID) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ClientState is the view of a chain at its best block: its own best and
// best finalized headers and the best finalized header of the bridged chain
// known at its best header.
type ClientState struct {
	BestSelf                    HeaderID
	BestFinalizedSelf           HeaderID
	BestFinalizedPeerAtBestSelf HeaderID
}

// RuntimeVersion is the subset of the runtime version used by the relayer.
type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	SpecVersion        uint32 `json:"specVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
}

// EncodeHeaderID encodes id as the (BlockNumber, Hash) tuple returned by
// finality runtime APIs.
func EncodeHeaderID(id HeaderID) []byte {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	_ = enc.Encode(id.Number)
	_ = enc.Write(id.Hash[:])
	return buf.Bytes()
}

// DecodeHeaderID decodes a (BlockNumber, Hash) tuple.
func DecodeHeaderID(bz []byte) (HeaderID, error) {
	var id HeaderID
	dec := scale.NewDecoder(bytes.NewReader(bz))
	if err := dec.Decode(&id.Number); err != nil {
		return id, errors.Wrap(err, "failed to decode header id")
	}
	if err := dec.Read(id.Hash[:]); err != nil {
		return id, errors.Wrap(err, "failed to decode header id")
	}
	return id, nil
}

// EncodeU64 and DecodeU64 handle the little endian u64 results of lane APIs.
func EncodeU64(v uint64) []byte {
	var buf bytes.Buffer
	_ = scale.NewEncoder(&buf).Encode(v)
	return buf.Bytes()
}

func DecodeU64(bz []byte) (uint64, error) {
	var v uint64
	if err := scale.NewDecoder(bytes.NewReader(bz)).Decode(&v); err != nil {
		return 0, errors.Wrap(err, "failed to decode u64")
	}
	return v, nil
}

// DecodeBool decodes a SCALE bool.
func DecodeBool(bz []byte) (bool, error) {
	if len(bz) != 1 || bz[0] > 1 {
		return false, errors.Newf("invalid bool encoding: %x", bz)
	}
	return bz[0] == 1, nil
}
