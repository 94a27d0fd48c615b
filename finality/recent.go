package finality

import "github.com/datachainlab/grandpa-relayer/core"

// DefaultRecentFinalityProofsLimit bounds the proofs kept from the source
// stream while the target is catching up.
const DefaultRecentFinalityProofsLimit = 4096

// RecentFinalityProofs is a bounded FIFO of finality proofs ordered by header
// number. When full, the oldest proof is evicted.
type RecentFinalityProofs struct {
	limit  int
	proofs []FinalityProof
}

func NewRecentFinalityProofs(limit int) *RecentFinalityProofs {
	if limit <= 0 {
		limit = DefaultRecentFinalityProofsLimit
	}
	return &RecentFinalityProofs{limit: limit}
}

// Add appends p. Proofs not newer than the last one are ignored.
func (r *RecentFinalityProofs) Add(p FinalityProof) {
	if n := len(r.proofs); n > 0 && p.Number() <= r.proofs[n-1].Number() {
		return
	}
	r.proofs = append(r.proofs, p)
	if len(r.proofs) > r.limit {
		r.proofs = r.proofs[len(r.proofs)-r.limit:]
	}
}

// Prune drops the proofs of headers with number not above n.
func (r *RecentFinalityProofs) Prune(n core.BlockNumber) {
	i := 0
	for i < len(r.proofs) && r.proofs[i].Number() <= n {
		i++
	}
	r.proofs = r.proofs[i:]
}

// Newest returns the newest proof with a number in (from, to] accepted by ok.
func (r *RecentFinalityProofs) Newest(from, to core.BlockNumber, ok func(FinalityProof) bool) (FinalityProof, bool) {
	for i := len(r.proofs) - 1; i >= 0; i-- {
		p := r.proofs[i]
		if p.Number() > to {
			continue
		}
		if p.Number() <= from {
			break
		}
		if ok(p) {
			return p, true
		}
	}
	return FinalityProof{}, false
}

func (r *RecentFinalityProofs) Len() int {
	return len(r.proofs)
}
