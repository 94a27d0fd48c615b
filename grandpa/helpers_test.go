package grandpa_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/datachainlab/grandpa-relayer/grandpa"
)

const (
	testRound = 7
	testSetID = 3
)

var testKeys = func() []ed25519.PrivateKey {
	keys := make([]ed25519.PrivateKey, 16)
	for i := range keys {
		seed := make([]byte, ed25519.SeedSize)
		seed[0] = byte(i + 1)
		keys[i] = ed25519.NewKeyFromSeed(seed)
	}
	return keys
}()

func authorityID(key ed25519.PrivateKey) grandpa.AuthorityID {
	var id grandpa.AuthorityID
	copy(id[:], key.Public().(ed25519.PublicKey))
	return id
}

func newVoterSet(t require.TestingT, weights ...uint64) *grandpa.VoterSet {
	voters := make([]grandpa.Voter, len(weights))
	for i, w := range weights {
		voters[i] = grandpa.Voter{ID: authorityID(testKeys[i]), Weight: w}
	}
	vs, err := grandpa.NewVoterSet(testSetID, voters)
	require.NoError(t, err)
	return vs
}

// makeChain returns n headers descending from parent, numbered from `from`.
func makeChain(parent grandpa.Hash, from grandpa.BlockNumber, n int) []grandpa.Header {
	headers := make([]grandpa.Header, n)
	for i := range headers {
		headers[i] = grandpa.Header{
			ParentHash: parent,
			Number:     from + grandpa.BlockNumber(i),
		}
		headers[i].StateRoot[0] = byte(i)
		headers[i].StateRoot[1] = 0xaa
		parent = headers[i].Hash()
	}
	return headers
}

func signedPrecommit(keyIndex int, target *grandpa.Header) grandpa.SignedPrecommit {
	return grandpa.SignPrecommit(testKeys[keyIndex], grandpa.Precommit{
		TargetHash:   target.Hash(),
		TargetNumber: target.Number,
	}, testRound, testSetID)
}

func newJustification(target *grandpa.Header, precommits []grandpa.SignedPrecommit, ancestries []grandpa.Header) *grandpa.Justification {
	return &grandpa.Justification{
		Round: testRound,
		Commit: grandpa.Commit{
			TargetHash:   target.Hash(),
			TargetNumber: target.Number,
			Precommits:   precommits,
		},
		VotesAncestries: ancestries,
	}
}

func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, target)
}
