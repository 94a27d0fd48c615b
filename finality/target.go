package finality

import (
	"bytes"
	"context"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
)

// Target is the chain importing finalized source headers.
type Target interface {
	core.Reconnector

	// BestFinalizedSourceBlockNumber returns the number of the best source
	// header imported by the target. It fails with core.ErrNotSynced while
	// the target node is syncing.
	BestFinalizedSourceBlockNumber(ctx context.Context) (core.BlockNumber, error)

	SubmitFinalityProof(ctx context.Context, header *grandpa.Header, justification *grandpa.Justification) error
}

const submitFinalityProofCall = "submit_finality_proof"

// ChainTarget imports source headers into the GRANDPA pallet of a core.Chain.
type ChainTarget struct {
	chain      core.Chain
	sourceName string
	pallet     string
	submitter  *core.CallSubmitter
}

var _ Target = (*ChainTarget)(nil)

// NewChainTarget returns a target submitting to pallet, the bridge GRANDPA
// pallet instance tracking sourceName.
func NewChainTarget(chain core.Chain, sourceName, pallet string, signer core.Signer, mortality *uint32) *ChainTarget {
	return &ChainTarget{
		chain:      chain,
		sourceName: sourceName,
		pallet:     pallet,
		submitter:  core.NewCallSubmitter(chain, signer, mortality),
	}
}

func (t *ChainTarget) Reconnect(ctx context.Context) error {
	return t.chain.Reconnect(ctx)
}

func (t *ChainTarget) BestFinalizedSourceBlockNumber(ctx context.Context) (core.BlockNumber, error) {
	if err := EnsureSynced(ctx, t.chain); err != nil {
		return 0, err
	}
	id, err := core.QueryBestFinalized(ctx, t.chain, t.sourceName, nil)
	if err != nil {
		return 0, err
	}
	return id.Number, nil
}

func (t *ChainTarget) SubmitFinalityProof(ctx context.Context, header *grandpa.Header, justification *grandpa.Justification) error {
	args, err := EncodeSubmitFinalityProof(header, justification)
	if err != nil {
		return err
	}
	_, err = t.submitter.Submit(ctx, core.Call{Pallet: t.pallet, Function: submitFinalityProofCall, Args: args})
	return err
}

// EnsureSynced fails with core.ErrNotSynced if the node of chain is syncing.
func EnsureSynced(ctx context.Context, chain core.Chain) error {
	synced, err := chain.IsSynced(ctx)
	if err != nil {
		return err
	}
	if !synced {
		return errors.Wrapf(core.ErrNotSynced, "%s node", chain.Name())
	}
	return nil
}

// EncodeSubmitFinalityProof encodes the arguments of submit_finality_proof.
func EncodeSubmitFinalityProof(header *grandpa.Header, justification *grandpa.Justification) ([]byte, error) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	if err := header.Encode(*enc); err != nil {
		return nil, errors.Wrap(err, "failed to encode header")
	}
	if err := justification.Encode(*enc); err != nil {
		return nil, errors.Wrap(err, "failed to encode justification")
	}
	return buf.Bytes(), nil
}

// DecodeSubmitFinalityProof decodes the arguments of submit_finality_proof.
func DecodeSubmitFinalityProof(bz []byte) (*grandpa.Header, *grandpa.Justification, error) {
	r := bytes.NewReader(bz)
	dec := scale.NewDecoder(r)
	var (
		header grandpa.Header
		j      grandpa.Justification
	)
	if err := header.Decode(*dec); err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode header")
	}
	if err := j.Decode(*dec); err != nil {
		return nil, nil, errors.Wrapf(grandpa.ErrJustificationDecode, "%v", err)
	}
	if r.Len() != 0 {
		return nil, nil, errors.Wrapf(grandpa.ErrJustificationDecode, "%d trailing bytes", r.Len())
	}
	return &header, &j, nil
}
