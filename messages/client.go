package messages

import (
	"context"

	"github.com/datachainlab/grandpa-relayer/core"
)

// SourceClient is the chain sending messages over a lane.
type SourceClient interface {
	core.Reconnector

	// State returns the source state including the best finalized target
	// header known to the source.
	State(ctx context.Context) (core.ClientState, error)

	LatestGeneratedNonce(ctx context.Context, at core.HeaderID) (Nonce, error)

	// LatestConfirmedNonce returns the latest nonce whose delivery has been
	// confirmed at the source.
	LatestConfirmedNonce(ctx context.Context, at core.HeaderID) (Nonce, error)

	GeneratedMessageDetails(ctx context.Context, at core.HeaderID, nonces NonceRange) ([]MessageDetails, error)

	ProveMessages(ctx context.Context, at core.HeaderID, nonces NonceRange) (*MessagesProof, error)

	// SubmitMessagesReceivingProof submits a proof generated at the target
	// header generatedAt.
	SubmitMessagesReceivingProof(ctx context.Context, generatedAt core.HeaderID, proof *MessagesReceivingProof) error
}

// TargetClient is the chain receiving messages over a lane.
type TargetClient interface {
	core.Reconnector

	// State returns the target state including the best finalized source
	// header known to the target.
	State(ctx context.Context) (core.ClientState, error)

	LatestReceivedNonce(ctx context.Context, at core.HeaderID) (Nonce, error)

	// LatestConfirmedNonce returns the latest nonce the target knows to be
	// confirmed at the source.
	LatestConfirmedNonce(ctx context.Context, at core.HeaderID) (Nonce, error)

	UnrewardedRelayersState(ctx context.Context, at core.HeaderID) (UnrewardedRelayersState, error)

	ProveMessagesReceiving(ctx context.Context, at core.HeaderID) (*MessagesReceivingProof, error)

	// SubmitMessagesProof submits a proof of the messages in nonces generated
	// at the source header generatedAt.
	SubmitMessagesProof(ctx context.Context, generatedAt core.HeaderID, nonces NonceRange, dispatchWeight uint64, proof *MessagesProof) error
}
