package mock

import (
	"bytes"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/datachainlab/grandpa-relayer/core"
)

// extrinsic is the transaction envelope of the in-memory chain.
type extrinsic struct {
	Signer      core.AccountID
	Nonce       uint32
	Genesis     core.Hash
	Mortal      bool
	EraPeriod   uint64
	EraPhase    uint64
	BirthNumber uint32
	Pallet      string
	Function    string
	Args        []byte
	Signature   []byte
}

func (x *extrinsic) era() core.Era {
	return core.Era{
		Mortal: x.Mortal,
		Period: x.EraPeriod,
		Phase:  x.EraPhase,
		Birth:  core.HeaderID{Number: x.BirthNumber},
	}
}

func (x *extrinsic) call() core.Call {
	return core.Call{Pallet: x.Pallet, Function: x.Function, Args: x.Args}
}

// signingPayload is the hash of the envelope without its signature.
func (x extrinsic) signingPayload() []byte {
	x.Signature = nil
	sum := blake2b.Sum256(encodeValue(x))
	return sum[:]
}

func encodeExtrinsic(signer core.Signer, genesis core.Hash, era core.Era, call core.Call, nonce uint32) ([]byte, error) {
	x := extrinsic{
		Signer:      signer.AccountID(),
		Nonce:       nonce,
		Genesis:     genesis,
		Mortal:      era.Mortal,
		EraPeriod:   era.Period,
		EraPhase:    era.Phase,
		BirthNumber: era.Birth.Number,
		Pallet:      call.Pallet,
		Function:    call.Function,
		Args:        call.Args,
	}
	sig, err := signer.Sign(x.signingPayload())
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	x.Signature = sig
	return encodeValue(x), nil
}

func decodeExtrinsic(bz []byte) (*extrinsic, error) {
	var x extrinsic
	r := bytes.NewReader(bz)
	if err := scale.NewDecoder(r).Decode(&x); err != nil {
		return nil, errors.Wrap(err, "invalid transaction")
	}
	if r.Len() != 0 {
		return nil, errors.Newf("transaction has %d trailing bytes", r.Len())
	}
	if len(x.Signature) == 0 {
		return nil, errors.New("transaction is not signed")
	}
	return &x, nil
}
