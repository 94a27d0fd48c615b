package grandpa_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/datachainlab/grandpa-relayer/grandpa"
)

// votingSetup is a random voter set voting on a linear chain whose first
// header is the commit target.
type votingSetup struct {
	voters *grandpa.VoterSet
	chain  []grandpa.Header
	// depth[i] is the chain index voter i precommits on
	depth []int
}

func drawSetup(t *rapid.T) votingSetup {
	n := rapid.IntRange(1, 10).Draw(t, "voters")
	weights := rapid.SliceOfN(rapid.Uint64Range(1, 50), n, n).Draw(t, "weights")
	length := rapid.IntRange(1, 6).Draw(t, "chain length")
	depth := rapid.SliceOfN(rapid.IntRange(0, length-1), n, n).Draw(t, "depths")
	return votingSetup{
		voters: newVoterSet(t, weights...),
		chain:  makeChain(grandpa.Hash{0x42}, 1000, length),
		depth:  depth,
	}
}

// justificationFor builds an honest justification signed by the voters in
// order, including exactly the ancestry needed by their precommits.
func (s votingSetup) justificationFor(order []int) *grandpa.Justification {
	precommits := make([]grandpa.SignedPrecommit, 0, len(order))
	deepest := 0
	for _, i := range order {
		precommits = append(precommits, signedPrecommit(i, &s.chain[s.depth[i]]))
		if s.depth[i] > deepest {
			deepest = s.depth[i]
		}
	}
	var ancestries []grandpa.Header
	if deepest > 0 {
		ancestries = append(ancestries, s.chain[1:deepest+1]...)
	}
	return newJustification(&s.chain[0], precommits, ancestries)
}

func (s votingSetup) weightOf(i int) uint64 {
	w, _ := s.voters.Weight(authorityID(testKeys[i]))
	return w
}

// split partitions a random permutation of the voters into a prefix whose
// weight first reaches the threshold and returns the prefix.
func (s votingSetup) drawQuorum(t *rapid.T) []int {
	perm := rapid.Permutation(indices(s.voters.Len())).Draw(t, "order")
	var total uint64
	for k, i := range perm {
		total += s.weightOf(i)
		if total >= s.voters.Threshold() {
			return perm[:k+1]
		}
	}
	return perm
}

func (s votingSetup) drawMinority(t *rapid.T) []int {
	perm := rapid.Permutation(indices(s.voters.Len())).Draw(t, "order")
	var (
		total uint64
		out   []int
	)
	for _, i := range perm {
		if total+s.weightOf(i) >= s.voters.Threshold() {
			continue
		}
		total += s.weightOf(i)
		out = append(out, i)
	}
	return out
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPropertyCompleteness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawSetup(t)
		j := s.justificationFor(s.drawQuorum(t))
		require.NoError(t, grandpa.VerifyJustification(s.chain[0].ID(), testSetID, s.voters, j))
	})
}

func TestPropertySoundness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawSetup(t)
		j := s.justificationFor(s.drawMinority(t))
		err := grandpa.VerifyJustification(s.chain[0].ID(), testSetID, s.voters, j)
		require.ErrorIs(t, err, grandpa.ErrTooLowCumulativeWeight)
	})
}

func TestPropertyNoDoubleCounting(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawSetup(t)
		minority := s.drawMinority(t)
		j := s.justificationFor(minority)

		// every counted voter votes again, possibly on another block of the
		// already supplied ancestry
		supplied := len(j.VotesAncestries)
		for _, i := range minority {
			k := rapid.IntRange(0, supplied).Draw(t, "repeat depth")
			j.Commit.Precommits = append(j.Commit.Precommits, signedPrecommit(i, &s.chain[k]))
		}
		err := grandpa.VerifyJustification(s.chain[0].ID(), testSetID, s.voters, j)
		require.ErrorIs(t, err, grandpa.ErrTooLowCumulativeWeight)
	})
}

func TestPropertyAncestryExhaustiveness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawSetup(t)
		j := s.justificationFor(s.drawQuorum(t))

		extra := makeChain(grandpa.Hash{0x99}, rapid.Uint32Range(1, 5000).Draw(t, "extra number"), 1)[0]
		pos := rapid.IntRange(0, len(j.VotesAncestries)).Draw(t, "extra position")
		ancestries := append([]grandpa.Header{}, j.VotesAncestries[:pos]...)
		ancestries = append(ancestries, extra)
		j.VotesAncestries = append(ancestries, j.VotesAncestries[pos:]...)

		err := grandpa.VerifyJustification(s.chain[0].ID(), testSetID, s.voters, j)
		require.ErrorIs(t, err, grandpa.ErrExtraHeadersInVotesAncestries)
	})
}

func TestPropertyIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := drawSetup(t)
		var order []int
		if rapid.Bool().Draw(t, "quorum") {
			order = s.drawQuorum(t)
		} else {
			order = s.drawMinority(t)
		}
		j := s.justificationFor(order)
		if rapid.Bool().Draw(t, "tamper") && len(j.Commit.Precommits) > 0 {
			j.Commit.Precommits[0].Signature[0] ^= 0x80
		}

		before, err := grandpa.EncodeJustification(j)
		require.NoError(t, err)

		first := grandpa.VerifyJustification(s.chain[0].ID(), testSetID, s.voters, j)
		second := grandpa.VerifyJustification(s.chain[0].ID(), testSetID, s.voters, j)
		if first == nil {
			require.NoError(t, second)
		} else {
			require.Error(t, second)
			require.Equal(t, first.Error(), second.Error())
		}

		after, err := grandpa.EncodeJustification(j)
		require.NoError(t, err)
		require.Equal(t, before, after)
	})
}
