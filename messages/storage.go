package messages

import (
	"encoding/binary"

	"github.com/centrifuge/go-substrate-rpc-client/v4/xxhash"
	"golang.org/x/crypto/blake2b"
)

// Storage items of the messages pallet.
const (
	storageOutboundMessages = "OutboundMessages"
	storageOutboundLanes    = "OutboundLanes"
	storageInboundLanes     = "InboundLanes"
)

func storagePrefix(pallet, item string) []byte {
	key := xxhash.New128([]byte(pallet)).Sum(nil)
	return append(key, xxhash.New128([]byte(item)).Sum(nil)...)
}

func blake2128Concat(data []byte) []byte {
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(err)
	}
	h.Write(data)
	return append(h.Sum(nil), data...)
}

// OutboundMessageKey returns the storage key of an outbound message.
func OutboundMessageKey(pallet string, lane LaneID, nonce Nonce) []byte {
	messageKey := make([]byte, 0, 12)
	messageKey = append(messageKey, lane[:]...)
	messageKey = binary.LittleEndian.AppendUint64(messageKey, uint64(nonce))
	return append(storagePrefix(pallet, storageOutboundMessages), blake2128Concat(messageKey)...)
}

// OutboundLaneKey returns the storage key of the outbound lane data.
func OutboundLaneKey(pallet string, lane LaneID) []byte {
	return append(storagePrefix(pallet, storageOutboundLanes), blake2128Concat(lane[:])...)
}

// InboundLaneKey returns the storage key of the inbound lane data.
func InboundLaneKey(pallet string, lane LaneID) []byte {
	return append(storagePrefix(pallet, storageInboundLanes), blake2128Concat(lane[:])...)
}
