package grandpa

import "github.com/cockroachdb/errors"

// Justification verification errors. A justification rejected with one of
// these errors must not be resubmitted unchanged.
var (
	ErrInvalidJustificationTarget     = errors.New("justification is finalizing unexpected header")
	ErrPrecommitIsNotCommitDescendant = errors.New("precommit is not a descendant of the commit target")
	ErrInvalidAuthoritySignature      = errors.New("invalid authority signature")
	ErrTooLowCumulativeWeight         = errors.New("cumulative weight of precommits is below the threshold")
	ErrExtraHeadersInVotesAncestries  = errors.New("justification contains unused headers in votes ancestries")
	ErrJustificationDecode            = errors.New("failed to decode justification")
)

// Voter set construction errors.
var (
	ErrEmptyVoterSet       = errors.New("voter set is empty")
	ErrZeroVoterWeight     = errors.New("voter weight must be positive")
	ErrDuplicateVoter      = errors.New("duplicate voter in voter set")
	ErrVoterWeightOverflow = errors.New("total voter weight overflows")
)

// IsInvalidProof reports whether err is a deterministic justification rejection.
func IsInvalidProof(err error) bool {
	return errors.IsAny(err,
		ErrInvalidJustificationTarget,
		ErrPrecommitIsNotCommitDescendant,
		ErrInvalidAuthoritySignature,
		ErrTooLowCumulativeWeight,
		ErrExtraHeadersInVotesAncestries,
		ErrJustificationDecode,
	)
}
