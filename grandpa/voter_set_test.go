package grandpa_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachainlab/grandpa-relayer/grandpa"
)

func TestVoterSetThreshold(t *testing.T) {
	cases := map[string]struct {
		weights   []uint64
		threshold uint64
	}{
		"single voter":       {[]uint64{1}, 1},
		"two voters":         {[]uint64{1, 1}, 2},
		"three voters":       {[]uint64{1, 1, 1}, 3},
		"four equal voters":  {[]uint64{1, 1, 1, 1}, 3},
		"five equal voters":  {[]uint64{1, 1, 1, 1, 1}, 4},
		"seven equal voters": {[]uint64{1, 1, 1, 1, 1, 1, 1}, 5},
		"ten equal voters":   {[]uint64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, 7},
		"weighted voters":    {[]uint64{5, 3, 2}, 7},
		"one heavy voter":    {[]uint64{100, 1, 1, 1}, 69},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			vs := newVoterSet(t, c.weights...)
			assert.Equal(t, c.threshold, vs.Threshold())
			assert.Equal(t, len(c.weights), vs.Len())
			assert.Equal(t, uint64(testSetID), vs.SetID())

			// the threshold is the smallest weight strictly above two thirds
			total := vs.TotalWeight()
			assert.Greater(t, 3*vs.Threshold(), 2*total)
			assert.LessOrEqual(t, 3*(vs.Threshold()-1), 2*total)
		})
	}
}

func TestVoterSetLookup(t *testing.T) {
	vs := newVoterSet(t, 4, 2, 1)

	w, ok := vs.Weight(authorityID(testKeys[1]))
	require.True(t, ok)
	assert.Equal(t, uint64(2), w)
	assert.True(t, vs.Contains(authorityID(testKeys[2])))

	_, ok = vs.Weight(authorityID(testKeys[5]))
	assert.False(t, ok)

	voters := vs.Voters()
	require.Len(t, voters, 3)
	for i := 1; i < len(voters); i++ {
		assert.Less(t, voters[i-1].ID.String(), voters[i].ID.String())
	}
}

func TestNewVoterSetErrors(t *testing.T) {
	a := authorityID(testKeys[0])
	b := authorityID(testKeys[1])

	_, err := grandpa.NewVoterSet(0, nil)
	assert.ErrorIs(t, err, grandpa.ErrEmptyVoterSet)

	_, err = grandpa.NewVoterSet(0, []grandpa.Voter{{ID: a, Weight: 0}})
	assert.ErrorIs(t, err, grandpa.ErrZeroVoterWeight)

	_, err = grandpa.NewVoterSet(0, []grandpa.Voter{{ID: a, Weight: 1}, {ID: a, Weight: 2}})
	assert.ErrorIs(t, err, grandpa.ErrDuplicateVoter)

	_, err = grandpa.NewVoterSet(0, []grandpa.Voter{{ID: a, Weight: math.MaxUint64}, {ID: b, Weight: 1}})
	assert.ErrorIs(t, err, grandpa.ErrVoterWeightOverflow)
}
