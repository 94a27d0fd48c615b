package finality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datachainlab/grandpa-relayer/core"
)

func proofAt(n core.BlockNumber) FinalityProof {
	return FinalityProof{Justification: justificationOf(testChain(int(n))[n-1])}
}

func numbers(r *RecentFinalityProofs) []core.BlockNumber {
	var out []core.BlockNumber
	for _, p := range r.proofs {
		out = append(out, p.Number())
	}
	return out
}

func TestRecentFinalityProofsLimit(t *testing.T) {
	r := NewRecentFinalityProofs(3)
	for _, n := range []core.BlockNumber{1, 2, 3, 4, 5} {
		r.Add(proofAt(n))
	}
	assert.Equal(t, []core.BlockNumber{3, 4, 5}, numbers(r))

	// out of order proofs are ignored
	r.Add(proofAt(4))
	assert.Equal(t, []core.BlockNumber{3, 4, 5}, numbers(r))

	assert.Equal(t, DefaultRecentFinalityProofsLimit, NewRecentFinalityProofs(0).limit)
}

func TestRecentFinalityProofsPruneAndNewest(t *testing.T) {
	r := NewRecentFinalityProofs(10)
	for _, n := range []core.BlockNumber{2, 4, 6, 8} {
		r.Add(proofAt(n))
	}
	all := func(FinalityProof) bool { return true }

	p, ok := r.Newest(2, 7, all)
	assert.True(t, ok)
	assert.Equal(t, core.BlockNumber(6), p.Number())

	_, ok = r.Newest(6, 7, all)
	assert.False(t, ok)

	p, ok = r.Newest(0, 10, func(p FinalityProof) bool { return p.Number() < 5 })
	assert.True(t, ok)
	assert.Equal(t, core.BlockNumber(4), p.Number())

	r.Prune(4)
	assert.Equal(t, []core.BlockNumber{6, 8}, numbers(r))
	r.Prune(100)
	assert.Equal(t, 0, r.Len())
}
