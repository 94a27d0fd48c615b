package mock

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
	"github.com/datachainlab/grandpa-relayer/messages"
)

const maxMessageDetails = 1024

// methodPeer extracts the bridged chain name from a bridge runtime API method.
func methodPeer(method string) (string, bool) {
	for _, api := range []struct{ prefix, infix string }{
		{"", "FinalityApi_"},
		{"To", "OutboundLaneApi_"},
		{"From", "InboundLaneApi_"},
	} {
		i := strings.Index(method, api.infix)
		if i > len(api.prefix) && strings.HasPrefix(method, api.prefix) {
			return method[len(api.prefix):i], true
		}
	}
	return "", false
}

func (c *Chain) runtimeCall(method string, args []byte, b *block) ([]byte, error) {
	switch method {
	case core.GrandpaAPIAuthorities:
		return grandpa.EncodeAuthorityList(c.sets[b.setID])
	case core.GrandpaAPICurrentSetID:
		return core.EncodeU64(b.setID), nil
	}
	peer, ok := methodPeer(method)
	if !ok {
		return nil, errors.Newf("unknown runtime api method %s", method)
	}

	switch method {
	case core.BestFinalizedMethod(peer):
		bridge, ok := c.bridges[peer]
		if !ok {
			return nil, errors.Newf("bridge with %s is not initialized", peer)
		}
		return core.EncodeHeaderID(bridge.best), nil
	case core.IsKnownHeaderMethod(peer):
		var hash core.Hash
		if len(args) != len(hash) {
			return nil, errors.Newf("invalid %s arguments", method)
		}
		copy(hash[:], args)
		known := false
		if bridge, ok := c.bridges[peer]; ok {
			_, known = bridge.headers[hash]
		}
		if known {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	}

	lane, rest, err := laneArgument(method, args)
	if err != nil {
		return nil, err
	}
	switch method {
	case core.OutboundMessageDetailsMethod(peer):
		if len(rest) != 16 {
			return nil, errors.Newf("invalid %s arguments", method)
		}
		begin, _ := core.DecodeU64(rest[:8])
		end, _ := core.DecodeU64(rest[8:])
		return c.messageDetails(b.state, peer, lane, messages.Nonce(begin), messages.Nonce(end))
	case core.OutboundLatestGeneratedNonceMethod(peer), core.OutboundLatestReceivedNonceMethod(peer):
		out, err := b.state.outboundLane(peer, lane)
		if err != nil {
			return nil, err
		}
		if method == core.OutboundLatestReceivedNonceMethod(peer) {
			return core.EncodeU64(out.LatestReceivedNonce), nil
		}
		return core.EncodeU64(out.LatestGeneratedNonce), nil
	case core.InboundLatestReceivedNonceMethod(peer):
		in, err := b.state.inboundLane(peer, lane)
		if err != nil {
			return nil, err
		}
		return core.EncodeU64(in.latestReceived()), nil
	case core.InboundLatestConfirmedNonceMethod(peer):
		in, err := b.state.inboundLane(peer, lane)
		if err != nil {
			return nil, err
		}
		return core.EncodeU64(in.LastConfirmedNonce), nil
	case core.InboundUnrewardedRelayersStateMethod(peer):
		in, err := b.state.inboundLane(peer, lane)
		if err != nil {
			return nil, err
		}
		return messages.Encode(in.relayersState())
	}
	return nil, errors.Newf("unknown runtime api method %s", method)
}

func laneArgument(method string, args []byte) (messages.LaneID, []byte, error) {
	var lane messages.LaneID
	if len(args) < len(lane) {
		return lane, nil, errors.Newf("invalid %s arguments", method)
	}
	copy(lane[:], args)
	return lane, args[len(lane):], nil
}

// messageDetails returns the details of the stored messages in [begin, end].
func (c *Chain) messageDetails(st state, peer string, lane messages.LaneID, begin, end messages.Nonce) ([]byte, error) {
	var details []messages.MessageDetails
	for n := begin; n <= end && len(details) < maxMessageDetails; n++ {
		d, ok, err := st.outboundMessage(peer, lane, n)
		if err != nil {
			return nil, err
		}
		if ok {
			details = append(details, *d)
		}
		if n == end {
			break
		}
	}
	return messages.EncodeMessageDetailsList(details)
}
