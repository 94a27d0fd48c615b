package grandpa

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/btree"
)

const maxVoters = 1 << 16

// Voter is a member of a GRANDPA authority set.
type Voter struct {
	ID     AuthorityID `json:"id" yaml:"id"`
	Weight uint64      `json:"weight" yaml:"weight"`
}

// VoterSet is an immutable, ordered set of weighted voters.
type VoterSet struct {
	setID       uint64
	voters      *btree.BTreeG[Voter]
	totalWeight uint64
	threshold   uint64
}

func voterLess(a, b Voter) bool {
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// NewVoterSet creates the voter set with generation setID.
func NewVoterSet(setID uint64, voters []Voter) (*VoterSet, error) {
	if len(voters) == 0 {
		return nil, ErrEmptyVoterSet
	}
	if len(voters) > maxVoters {
		return nil, errors.Newf("too many voters: %d", len(voters))
	}
	tree := btree.NewBTreeGOptions(voterLess, btree.Options{NoLocks: true})
	var total uint64
	for _, v := range voters {
		if v.Weight == 0 {
			return nil, errors.Wrapf(ErrZeroVoterWeight, "voter %s", v.ID)
		}
		if _, replaced := tree.Set(v); replaced {
			return nil, errors.Wrapf(ErrDuplicateVoter, "voter %s", v.ID)
		}
		if total+v.Weight < total {
			return nil, ErrVoterWeightOverflow
		}
		total += v.Weight
	}
	return &VoterSet{
		setID:       setID,
		voters:      tree,
		totalWeight: total,
		threshold:   total - (total-1)/3,
	}, nil
}

// SetID returns the authority set generation.
func (vs *VoterSet) SetID() uint64 {
	return vs.setID
}

// Weight returns the weight of the voter, or false if it is not a member.
func (vs *VoterSet) Weight(id AuthorityID) (uint64, bool) {
	v, ok := vs.voters.Get(Voter{ID: id})
	if !ok {
		return 0, false
	}
	return v.Weight, true
}

func (vs *VoterSet) Contains(id AuthorityID) bool {
	_, ok := vs.voters.Get(Voter{ID: id})
	return ok
}

func (vs *VoterSet) Len() int {
	return vs.voters.Len()
}

func (vs *VoterSet) TotalWeight() uint64 {
	return vs.totalWeight
}

// Threshold returns the smallest weight exceeding two thirds of the total.
func (vs *VoterSet) Threshold() uint64 {
	return vs.threshold
}

// Voters returns the members ordered by id.
func (vs *VoterSet) Voters() []Voter {
	out := make([]Voter, 0, vs.voters.Len())
	vs.voters.Scan(func(v Voter) bool {
		out = append(out, v)
		return true
	})
	return out
}
