package finality

import (
	"bytes"
	"context"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
	"github.com/datachainlab/grandpa-relayer/log"
)

const initializeCall = "initialize"

// InitializationData bootstraps the GRANDPA pallet tracking a bridged chain.
type InitializationData struct {
	Header      grandpa.Header
	Authorities []grandpa.Voter
	SetID       uint64
	IsHalted    bool
}

func (d InitializationData) Encode(enc scale.Encoder) error {
	if err := d.Header.Encode(enc); err != nil {
		return err
	}
	authorities, err := grandpa.EncodeAuthorityList(d.Authorities)
	if err != nil {
		return err
	}
	if err := enc.Write(authorities); err != nil {
		return err
	}
	if err := enc.Encode(d.SetID); err != nil {
		return err
	}
	return enc.Encode(d.IsHalted)
}

// DecodeInitializationData decodes the arguments of initialize.
func DecodeInitializationData(bz []byte) (*InitializationData, error) {
	r := bytes.NewReader(bz)
	dec := scale.NewDecoder(r)
	var d InitializationData
	if err := d.Header.Decode(*dec); err != nil {
		return nil, errors.Wrap(err, "failed to decode initialization header")
	}
	// the authority list is followed by fixed size fields
	rest := make([]byte, r.Len())
	if _, err := r.Read(rest); err != nil {
		return nil, errors.Wrap(err, "failed to decode initialization data")
	}
	if len(rest) < 9 {
		return nil, errors.New("initialization data is truncated")
	}
	authorities, err := grandpa.DecodeAuthorityList(rest[:len(rest)-9])
	if err != nil {
		return nil, err
	}
	d.Authorities = authorities
	tail := scale.NewDecoder(bytes.NewReader(rest[len(rest)-9:]))
	if err := tail.Decode(&d.SetID); err != nil {
		return nil, err
	}
	if err := tail.Decode(&d.IsHalted); err != nil {
		return nil, err
	}
	return &d, nil
}

// PrepareInitializationData reads the best finalized header of source and the
// authority set enacted at it, which finalizes its descendants.
func PrepareInitializationData(ctx context.Context, source core.Chain) (*InitializationData, error) {
	best, err := source.BestFinalizedHeaderID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read best finalized header")
	}
	header, _, err := source.HeaderAndJustification(ctx, best.Number)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read header %d", best.Number)
	}

	bz, err := source.CallRuntime(ctx, core.GrandpaAPIAuthorities, nil, &best.Hash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read authorities")
	}
	authorities, err := grandpa.DecodeAuthorityList(bz)
	if err != nil {
		return nil, err
	}
	bz, err = source.CallRuntime(ctx, core.GrandpaAPICurrentSetID, nil, &best.Hash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read authority set id")
	}
	setID, err := core.DecodeU64(bz)
	if err != nil {
		return nil, err
	}
	return &InitializationData{Header: *header, Authorities: authorities, SetID: setID}, nil
}

// InitBridge initializes pallet, the GRANDPA pallet of target tracking
// source, with the current finalized state of source.
func InitBridge(ctx context.Context, source, target core.Chain, pallet string, signer core.Signer) (*InitializationData, error) {
	logger := log.GetLogger().WithModule("finality").WithBridge(source.Name(), target.Name())
	data, err := PrepareInitializationData(ctx, source)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := data.Encode(*scale.NewEncoder(&buf)); err != nil {
		return nil, errors.Wrap(err, "failed to encode initialization data")
	}
	status, err := core.NewCallSubmitter(target, signer, nil).Submit(ctx, core.Call{Pallet: pallet, Function: initializeCall, Args: buf.Bytes()})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to initialize %s", pallet)
	}
	logger.InfoContext(ctx, "initialized bridge",
		"header", data.Header.Number,
		"set_id", data.SetID,
		"authorities", len(data.Authorities),
		"tx_hash", status.TxHash.String(),
	)
	return data, nil
}
