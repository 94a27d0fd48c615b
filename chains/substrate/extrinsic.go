package substrate

import (
	"bytes"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/signer"
)

const (
	// signed extrinsic, format version 4
	extrinsicVersion = 0x84
	// MultiAddress::Id
	addressID = 0x00
)

// MultiSignature variants
const (
	signatureEd25519 = 0x00
	signatureSr25519 = 0x01
)

// signedExtra is the part of a signed extrinsic covered by the signature but
// not included in the call.
type signedExtra struct {
	era                core.Era
	nonce              uint32
	tip                uint64
	specVersion        uint32
	transactionVersion uint32
	genesis            core.Hash
}

// birthHash is the hash of the block the era starts at, or the genesis hash
// for immortal transactions.
func (e signedExtra) birthHash() core.Hash {
	if e.era.Mortal {
		return e.era.Birth.Hash
	}
	return e.genesis
}

func encodeCompact(enc *scale.Encoder, v uint64) error {
	return enc.EncodeUintCompact(*new(big.Int).SetUint64(v))
}

func encodeCall(index types.CallIndex, args []byte) []byte {
	return append([]byte{index.SectionIndex, index.MethodIndex}, args...)
}

// signingPayload returns the bytes to sign. Payloads longer than 256 bytes
// are replaced by their blake2b-256 hash.
func signingPayload(call []byte, extra signedExtra) ([]byte, error) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	buf.Write(call)
	buf.Write(extra.era.Bytes())
	if err := encodeCompact(enc, uint64(extra.nonce)); err != nil {
		return nil, err
	}
	if err := encodeCompact(enc, extra.tip); err != nil {
		return nil, err
	}
	for _, v := range []uint32{extra.specVersion, extra.transactionVersion} {
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
	}
	genesis, birth := extra.genesis, extra.birthHash()
	buf.Write(genesis[:])
	buf.Write(birth[:])
	if buf.Len() > 256 {
		h := blake2b.Sum256(buf.Bytes())
		return h[:], nil
	}
	return buf.Bytes(), nil
}

func signatureType(s core.Signer) (byte, error) {
	switch s.(type) {
	case *signer.Sr25519:
		return signatureSr25519, nil
	case *signer.Ed25519:
		return signatureEd25519, nil
	}
	return 0, errors.Newf("unsupported signer %T", s)
}

// encodeExtrinsic signs call and returns the length prefixed extrinsic.
func encodeExtrinsic(s core.Signer, call []byte, extra signedExtra) ([]byte, error) {
	sigType, err := signatureType(s)
	if err != nil {
		return nil, err
	}
	payload, err := signingPayload(call, extra)
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(payload)
	if err != nil {
		return nil, err
	}
	if len(sig) != 64 {
		return nil, errors.Newf("unexpected signature length %d", len(sig))
	}

	var body bytes.Buffer
	enc := scale.NewEncoder(&body)
	account := s.AccountID()
	body.WriteByte(extrinsicVersion)
	body.WriteByte(addressID)
	body.Write(account[:])
	body.WriteByte(sigType)
	body.Write(sig)
	body.Write(extra.era.Bytes())
	if err := encodeCompact(enc, uint64(extra.nonce)); err != nil {
		return nil, err
	}
	if err := encodeCompact(enc, extra.tip); err != nil {
		return nil, err
	}
	body.Write(call)

	var out bytes.Buffer
	if err := encodeCompact(scale.NewEncoder(&out), uint64(body.Len())); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
