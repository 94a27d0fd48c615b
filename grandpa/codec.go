package grandpa

import (
	"bytes"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"
)

const (
	maxPrecommits      = maxVoters
	maxVotesAncestries = 1 << 16
)

func (p SignedPrecommit) Encode(enc scale.Encoder) error {
	if err := enc.Write(p.Precommit.TargetHash[:]); err != nil {
		return err
	}
	if err := enc.Encode(p.Precommit.TargetNumber); err != nil {
		return err
	}
	if err := enc.Write(p.Signature[:]); err != nil {
		return err
	}
	return enc.Write(p.ID[:])
}

func (p *SignedPrecommit) Decode(dec scale.Decoder) error {
	if err := dec.Read(p.Precommit.TargetHash[:]); err != nil {
		return err
	}
	if err := dec.Decode(&p.Precommit.TargetNumber); err != nil {
		return err
	}
	if err := dec.Read(p.Signature[:]); err != nil {
		return err
	}
	return dec.Read(p.ID[:])
}

func (c Commit) Encode(enc scale.Encoder) error {
	if err := enc.Write(c.TargetHash[:]); err != nil {
		return err
	}
	if err := enc.Encode(c.TargetNumber); err != nil {
		return err
	}
	if err := encodeCompact(enc, uint64(len(c.Precommits))); err != nil {
		return err
	}
	for _, p := range c.Precommits {
		if err := p.Encode(enc); err != nil {
			return err
		}
	}
	return nil
}

func (c *Commit) Decode(dec scale.Decoder) error {
	if err := dec.Read(c.TargetHash[:]); err != nil {
		return err
	}
	if err := dec.Decode(&c.TargetNumber); err != nil {
		return err
	}
	n, err := decodeLen(dec, maxPrecommits)
	if err != nil {
		return err
	}
	c.Precommits = nil
	if n > 0 {
		c.Precommits = make([]SignedPrecommit, n)
	}
	for i := range c.Precommits {
		if err := c.Precommits[i].Decode(dec); err != nil {
			return err
		}
	}
	return nil
}

func (j Justification) Encode(enc scale.Encoder) error {
	if err := enc.Encode(j.Round); err != nil {
		return err
	}
	if err := j.Commit.Encode(enc); err != nil {
		return err
	}
	if err := encodeCompact(enc, uint64(len(j.VotesAncestries))); err != nil {
		return err
	}
	for _, h := range j.VotesAncestries {
		if err := h.Encode(enc); err != nil {
			return err
		}
	}
	return nil
}

func (j *Justification) Decode(dec scale.Decoder) error {
	if err := dec.Decode(&j.Round); err != nil {
		return err
	}
	if err := j.Commit.Decode(dec); err != nil {
		return err
	}
	n, err := decodeLen(dec, maxVotesAncestries)
	if err != nil {
		return err
	}
	j.VotesAncestries = nil
	if n > 0 {
		j.VotesAncestries = make([]Header, n)
	}
	for i := range j.VotesAncestries {
		if err := j.VotesAncestries[i].Decode(dec); err != nil {
			return err
		}
	}
	return nil
}

// EncodeJustification returns the SCALE encoding of justification.
func EncodeJustification(justification *Justification) ([]byte, error) {
	var buf bytes.Buffer
	if err := justification.Encode(*scale.NewEncoder(&buf)); err != nil {
		return nil, errors.Wrap(err, "failed to encode justification")
	}
	return buf.Bytes(), nil
}

// DecodeJustification decodes a SCALE encoded justification. Every failure,
// including trailing bytes, is reported as ErrJustificationDecode.
func DecodeJustification(bz []byte) (*Justification, error) {
	r := bytes.NewReader(bz)
	var justification Justification
	if err := justification.Decode(*scale.NewDecoder(r)); err != nil {
		return nil, errors.Wrapf(ErrJustificationDecode, "%v", err)
	}
	if r.Len() != 0 {
		return nil, errors.Wrapf(ErrJustificationDecode, "%d trailing bytes", r.Len())
	}
	return &justification, nil
}
