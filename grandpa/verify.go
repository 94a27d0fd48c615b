package grandpa

import (
	"bytes"

	"github.com/cockroachdb/errors"
)

// VerifyJustification checks that justification proves finality of expected
// for the voter set with generation setID.
//
// Precommits of unknown authorities and repeated precommits of an already
// counted authority are ignored. The function has no side effects and is safe
// for concurrent use.
func VerifyJustification(expected HeaderID, setID uint64, voters *VoterSet, justification *Justification) error {
	commit := &justification.Commit
	if commit.TargetHash != expected.Hash || commit.TargetNumber != expected.Number {
		return errors.Wrapf(ErrInvalidJustificationTarget,
			"expected %s, got %d(%s)", expected, commit.TargetNumber, commit.TargetHash)
	}

	chain := NewAncestryChain(justification.VotesAncestries)
	counted := make(map[AuthorityID]struct{}, len(commit.Precommits))
	var (
		cumulative uint64
		buf        bytes.Buffer
	)
	for i := range commit.Precommits {
		signed := &commit.Precommits[i]
		weight, ok := voters.Weight(signed.ID)
		if !ok {
			continue
		}
		if _, dup := counted[signed.ID]; dup {
			continue
		}

		if signed.Precommit.TargetNumber < commit.TargetNumber {
			return errors.Wrapf(ErrPrecommitIsNotCommitDescendant,
				"precommit of %s targets block %d below commit target %d",
				signed.ID, signed.Precommit.TargetNumber, commit.TargetNumber)
		}
		if err := chain.EnsureDescendant(commit.TargetHash, signed.Precommit.TargetHash); err != nil {
			return err
		}
		if !verifyPrecommitSignature(&buf, signed, justification.Round, setID) {
			return errors.Wrapf(ErrInvalidAuthoritySignature, "authority %s", signed.ID)
		}

		counted[signed.ID] = struct{}{}
		if cumulative+weight < cumulative {
			return errors.Wrap(ErrVoterWeightOverflow, "cumulative precommit weight")
		}
		cumulative += weight
	}

	if n := chain.Unvisited(); n != 0 {
		return errors.Wrapf(ErrExtraHeadersInVotesAncestries, "%d unused headers", n)
	}
	if cumulative < voters.Threshold() {
		return errors.Wrapf(ErrTooLowCumulativeWeight,
			"cumulative weight %d, threshold %d", cumulative, voters.Threshold())
	}
	return nil
}

// VerifyEncodedJustification decodes and verifies a SCALE encoded
// justification.
func VerifyEncodedJustification(expected HeaderID, setID uint64, voters *VoterSet, encoded []byte) (*Justification, error) {
	justification, err := DecodeJustification(encoded)
	if err != nil {
		return nil, err
	}
	if err := VerifyJustification(expected, setID, voters, justification); err != nil {
		return nil, err
	}
	return justification, nil
}
