package mock

import (
	"bytes"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/messages"
)

// GrandpaPallet returns the name of the GRANDPA pallet instance tracking peer.
func GrandpaPallet(peer string) string {
	return core.GrandpaPalletName(peer)
}

// MessagesPallet returns the name of the messages pallet instance bridging to peer.
func MessagesPallet(peer string) string {
	return core.MessagesPalletName(peer)
}

type outboundLaneData struct {
	OldestUnprunedNonce  uint64
	LatestReceivedNonce  uint64
	LatestGeneratedNonce uint64
}

type relayerEntry struct {
	Relayer core.AccountID
	Begin   uint64
	End     uint64
}

type inboundLaneData struct {
	Relayers           []relayerEntry
	LastConfirmedNonce uint64
}

func (d *inboundLaneData) latestReceived() uint64 {
	if len(d.Relayers) == 0 {
		return d.LastConfirmedNonce
	}
	return d.Relayers[len(d.Relayers)-1].End
}

func (d *inboundLaneData) relayersState() messages.UnrewardedRelayersState {
	if len(d.Relayers) == 0 {
		return messages.UnrewardedRelayersState{}
	}
	first, last := d.Relayers[0], d.Relayers[len(d.Relayers)-1]
	return messages.UnrewardedRelayersState{
		UnrewardedRelayerEntries: uint64(len(d.Relayers)),
		MessagesInOldestEntry:    first.End - first.Begin + 1,
		TotalMessages:            last.End - first.Begin + 1,
	}
}

// confirm drops the relayer entries of messages confirmed at the source.
func (d *inboundLaneData) confirm(confirmed uint64) {
	if confirmed <= d.LastConfirmedNonce {
		return
	}
	d.LastConfirmedNonce = confirmed
	for len(d.Relayers) > 0 && d.Relayers[0].End <= confirmed {
		d.Relayers = d.Relayers[1:]
	}
	if len(d.Relayers) > 0 && d.Relayers[0].Begin <= confirmed {
		d.Relayers[0].Begin = confirmed + 1
	}
}

func encodeValue(v interface{}) []byte {
	var buf bytes.Buffer
	if err := scale.NewEncoder(&buf).Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func decodeValue(bz []byte, v interface{}) error {
	r := bytes.NewReader(bz)
	if err := scale.NewDecoder(r).Decode(v); err != nil {
		return err
	}
	if r.Len() != 0 {
		return errors.Newf("%d trailing bytes", r.Len())
	}
	return nil
}

func (s state) outboundLane(peer string, lane messages.LaneID) (outboundLaneData, error) {
	var d outboundLaneData
	bz, ok := s[string(messages.OutboundLaneKey(MessagesPallet(peer), lane))]
	if !ok {
		return d, nil
	}
	err := decodeValue(bz, &d)
	return d, errors.Wrap(err, "invalid outbound lane data")
}

func (s state) setOutboundLane(peer string, lane messages.LaneID, d outboundLaneData) {
	s[string(messages.OutboundLaneKey(MessagesPallet(peer), lane))] = encodeValue(d)
}

func (s state) inboundLane(peer string, lane messages.LaneID) (inboundLaneData, error) {
	var d inboundLaneData
	bz, ok := s[string(messages.InboundLaneKey(MessagesPallet(peer), lane))]
	if !ok {
		return d, nil
	}
	err := decodeValue(bz, &d)
	return d, errors.Wrap(err, "invalid inbound lane data")
}

func (s state) setInboundLane(peer string, lane messages.LaneID, d inboundLaneData) {
	s[string(messages.InboundLaneKey(MessagesPallet(peer), lane))] = encodeValue(d)
}

func (s state) outboundMessage(peer string, lane messages.LaneID, nonce messages.Nonce) (*messages.MessageDetails, bool, error) {
	bz, ok := s[string(messages.OutboundMessageKey(MessagesPallet(peer), lane, nonce))]
	if !ok {
		return nil, false, nil
	}
	var d messages.MessageDetails
	if err := messages.Decode(bz, &d); err != nil {
		return nil, false, errors.Wrapf(err, "invalid message %d", nonce)
	}
	return &d, true, nil
}

func (s state) setOutboundMessage(peer string, lane messages.LaneID, d messages.MessageDetails) error {
	bz, err := messages.Encode(d)
	if err != nil {
		return err
	}
	s[string(messages.OutboundMessageKey(MessagesPallet(peer), lane, d.Nonce))] = bz
	return nil
}
