package grandpa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachainlab/grandpa-relayer/grandpa"
)

func TestHeaderScheduledChange(t *testing.T) {
	change := grandpa.ScheduledChange{
		NextAuthorities: []grandpa.Voter{
			{ID: authorityID(testKeys[0]), Weight: 1},
			{ID: authorityID(testKeys[1]), Weight: 2},
		},
		Delay: 0,
	}
	item, err := grandpa.NewScheduledChangeDigest(change)
	require.NoError(t, err)

	h := makeChain(grandpa.Hash{1}, 10, 1)[0]
	assert.False(t, h.IsMandatory())

	h.Digest = []grandpa.DigestItem{
		{Kind: grandpa.DigestItemPreRuntime, Engine: grandpa.EngineID{'B', 'A', 'B', 'E'}, Data: []byte{1, 2, 3}},
		item,
		{Kind: grandpa.DigestItemSeal, Engine: grandpa.EngineID{'B', 'A', 'B', 'E'}, Data: make([]byte, 64)},
	}
	assert.True(t, h.IsMandatory())

	got, err := h.ScheduledAuthoritySetChange()
	require.NoError(t, err)
	assert.Equal(t, &change, got)

	bz, err := h.Bytes()
	require.NoError(t, err)
	decoded, err := grandpa.DecodeHeader(bz)
	require.NoError(t, err)
	assert.Equal(t, h.Hash(), decoded.Hash())
	assert.True(t, decoded.IsMandatory())
}

func TestHeaderHashDependsOnContent(t *testing.T) {
	chain := makeChain(grandpa.Hash{1}, 10, 2)
	assert.NotEqual(t, chain[0].Hash(), chain[1].Hash())
	assert.Equal(t, chain[0].Hash(), chain[1].ParentHash)

	other := chain[0]
	other.ExtrinsicsRoot[0] = 1
	assert.NotEqual(t, chain[0].Hash(), other.Hash())
}

func TestDecodeJustificationErrors(t *testing.T) {
	cases := map[string][]byte{
		"empty":          {},
		"truncated":      {1, 2, 3},
		"huge precommit": append(make([]byte, 8+32+4), 0xff, 0xff, 0xff, 0xff),
	}
	for name, bz := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := grandpa.DecodeJustification(bz)
			requireErrorIs(t, err, grandpa.ErrJustificationDecode)
			assert.True(t, grandpa.IsInvalidProof(err))
		})
	}

	target := makeChain(grandpa.Hash{1}, 10, 1)[0]
	bz, err := grandpa.EncodeJustification(newJustification(&target, []grandpa.SignedPrecommit{signedPrecommit(0, &target)}, nil))
	require.NoError(t, err)
	_, err = grandpa.DecodeJustification(append(bz, 0))
	requireErrorIs(t, err, grandpa.ErrJustificationDecode)
}

func TestHashFromHex(t *testing.T) {
	want := (&grandpa.Header{Number: 7}).Hash()
	h, err := grandpa.HashFromHex(want.String())
	require.NoError(t, err)
	assert.Equal(t, want, h)

	_, err = grandpa.HashFromHex("0x0102")
	require.ErrorContains(t, err, "invalid hash length: 2")
	_, err = grandpa.HashFromHex("0xzz")
	require.ErrorContains(t, err, "invalid hash")
}
