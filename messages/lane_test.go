package messages

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLaneID(t *testing.T) {
	id, err := ParseLaneID("0x00000001")
	require.NoError(t, err)
	assert.Equal(t, LaneID{0, 0, 0, 1}, id)
	assert.Equal(t, "0x00000001", id.String())

	id, err = ParseLaneID("test")
	require.NoError(t, err)
	assert.Equal(t, LaneID{'t', 'e', 's', 't'}, id)

	for _, s := range []string{"", "0x01", "0xzz000000", "lane0"} {
		_, err := ParseLaneID(s)
		assert.Error(t, err, s)
	}

	var decoded LaneID
	text, err := id.MarshalText()
	require.NoError(t, err)
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
}

func TestNonceRange(t *testing.T) {
	assert.Equal(t, uint64(5), NonceRange{Begin: 1, End: 5}.Len())
	assert.Equal(t, uint64(1), NonceRange{Begin: 3, End: 3}.Len())
	assert.True(t, NonceRange{Begin: 4, End: 3}.IsEmpty())
	assert.Zero(t, NonceRange{Begin: 4, End: 3}.Len())
}

func TestMessagesProofEncoding(t *testing.T) {
	proof := MessagesProof{
		BridgedHeaderHash: [32]byte{1, 2, 3},
		StorageProof:      [][]byte{{0xaa}, bytes.Repeat([]byte{0xbb}, 100)},
		Lane:              LaneID{0, 0, 0, 1},
		NoncesStart:       1,
		NoncesEnd:         5,
	}
	bz, err := Encode(proof)
	require.NoError(t, err)
	// hash, compact(2), compact(1) node, compact(100) node, lane, two u64 nonces
	assert.Len(t, bz, 32+1+1+1+2+100+4+8+8)

	var decoded MessagesProof
	require.NoError(t, Decode(bz, &decoded))
	assert.Equal(t, proof, decoded)
	assert.Equal(t, NonceRange{Begin: 1, End: 5}, decoded.Nonces())

	assert.Error(t, Decode(append(bz, 0), &decoded))
	assert.Error(t, Decode(bz[:len(bz)-1], &decoded))
}

func TestMessageDetailsFee(t *testing.T) {
	fee := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
	d := MessageDetails{Nonce: 7, DispatchWeight: 1000, Size: 64, DeliveryAndDispatchFee: fee}
	bz, err := Encode(d)
	require.NoError(t, err)
	require.Len(t, bz, 8+8+4+16)
	// u128 little endian: bit 100 is bit 4 of byte 12
	assert.Equal(t, byte(0x10), bz[20+12])

	var decoded MessageDetails
	require.NoError(t, Decode(bz, &decoded))
	assert.Equal(t, d.Nonce, decoded.Nonce)
	assert.True(t, fee.Eq(decoded.DeliveryAndDispatchFee))

	d.DeliveryAndDispatchFee = new(uint256.Int).Lsh(uint256.NewInt(1), 130)
	_, err = Encode(d)
	assert.Error(t, err)
}

func TestMessageDetailsList(t *testing.T) {
	list := []MessageDetails{
		{Nonce: 1, DispatchWeight: 1, Size: 1, DeliveryAndDispatchFee: uint256.NewInt(1)},
		{Nonce: 2, DispatchWeight: 2, Size: 2, DeliveryAndDispatchFee: uint256.NewInt(2)},
	}
	bz, err := EncodeMessageDetailsList(list)
	require.NoError(t, err)
	decoded, err := DecodeMessageDetailsList(bz)
	require.NoError(t, err)
	assert.Equal(t, list, decoded)
}

func TestStorageKeys(t *testing.T) {
	lane := LaneID{0, 0, 0, 1}
	prefix := storagePrefix("BridgeMessages", storageOutboundMessages)
	require.Len(t, prefix, 32)

	key := OutboundMessageKey("BridgeMessages", lane, 1)
	// prefix, blake2_128 hash, lane, nonce
	require.Len(t, key, 32+16+4+8)
	assert.Equal(t, prefix, key[:32])
	assert.Equal(t, lane[:], key[48:52])
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, key[52:])

	assert.NotEqual(t, key, OutboundMessageKey("BridgeMessages", lane, 2))
	assert.NotEqual(t, key[:32], InboundLaneKey("BridgeMessages", lane)[:32])
	assert.Len(t, OutboundLaneKey("BridgeMessages", lane), 32+16+4)
}
