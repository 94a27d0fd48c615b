package core

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Runtime API methods called by the relayer. Bridged chain names are
// substituted into the method names, e.g. "BetanetFinalityApi_best_finalized".
const (
	GrandpaAPIAuthorities   = "GrandpaApi_grandpa_authorities"
	GrandpaAPICurrentSetID  = "GrandpaApi_current_set_id"
	finalityAPIPrefix       = "FinalityApi_"
	outboundLaneAPIPrefix   = "OutboundLaneApi_"
	inboundLaneAPIPrefix    = "InboundLaneApi_"
	methodBestFinalized     = "best_finalized"
	methodIsKnownHeader     = "is_known_header"
	methodMessageDetails    = "message_details"
	methodLatestGenerated   = "latest_generated_nonce"
	methodLatestReceived    = "latest_received_nonce"
	methodLatestConfirmed   = "latest_confirmed_nonce"
	methodUnrewardedRelayer = "unrewarded_relayers_state"
)

// GrandpaPalletName returns the name of the finality pallet instance that
// tracks the bridged chain, e.g. "BridgeRialtoGrandpa".
func GrandpaPalletName(bridged string) string {
	return "Bridge" + bridged + "Grandpa"
}

// MessagesPalletName returns the name of the messages pallet instance that
// exchanges messages with the bridged chain.
func MessagesPalletName(bridged string) string {
	return "Bridge" + bridged + "Messages"
}

// BestFinalizedMethod returns the method reading the best finalized header of
// the bridged chain known to the finality pallet.
func BestFinalizedMethod(bridged string) string {
	return bridged + finalityAPIPrefix + methodBestFinalized
}

func IsKnownHeaderMethod(bridged string) string {
	return bridged + finalityAPIPrefix + methodIsKnownHeader
}

func OutboundMessageDetailsMethod(target string) string {
	return "To" + target + outboundLaneAPIPrefix + methodMessageDetails
}

func OutboundLatestGeneratedNonceMethod(target string) string {
	return "To" + target + outboundLaneAPIPrefix + methodLatestGenerated
}

func OutboundLatestReceivedNonceMethod(target string) string {
	return "To" + target + outboundLaneAPIPrefix + methodLatestReceived
}

func InboundLatestReceivedNonceMethod(source string) string {
	return "From" + source + inboundLaneAPIPrefix + methodLatestReceived
}

func InboundLatestConfirmedNonceMethod(source string) string {
	return "From" + source + inboundLaneAPIPrefix + methodLatestConfirmed
}

func InboundUnrewardedRelayersStateMethod(source string) string {
	return "From" + source + inboundLaneAPIPrefix + methodUnrewardedRelayer
}

// QueryBestFinalized returns the best finalized header of bridged known to
// chain at the given block.
func QueryBestFinalized(ctx context.Context, chain Chain, bridged string, at *Hash) (HeaderID, error) {
	bz, err := chain.CallRuntime(ctx, BestFinalizedMethod(bridged), nil, at)
	if err != nil {
		return HeaderID{}, err
	}
	id, err := DecodeHeaderID(bz)
	if err != nil {
		return HeaderID{}, errors.Wrapf(err, "invalid %s result", BestFinalizedMethod(bridged))
	}
	return id, nil
}

// QueryIsKnownHeader reports whether the finality pallet of chain has
// imported the bridged header with the given hash.
func QueryIsKnownHeader(ctx context.Context, chain Chain, bridged string, hash Hash) (bool, error) {
	bz, err := chain.CallRuntime(ctx, IsKnownHeaderMethod(bridged), hash[:], nil)
	if err != nil {
		return false, err
	}
	return DecodeBool(bz)
}

// QueryClientState reads the state of chain and the best finalized header of
// peer known to chain at its best block.
func QueryClientState(ctx context.Context, chain Chain, peer string) (ClientState, error) {
	best, err := chain.BestHeaderID(ctx)
	if err != nil {
		return ClientState{}, err
	}
	finalized, err := chain.BestFinalizedHeaderID(ctx)
	if err != nil {
		return ClientState{}, err
	}
	peerFinalized, err := QueryBestFinalized(ctx, chain, peer, &best.Hash)
	if err != nil {
		return ClientState{}, err
	}
	return ClientState{
		BestSelf:                    best,
		BestFinalizedSelf:           finalized,
		BestFinalizedPeerAtBestSelf: peerFinalized,
	}, nil
}
