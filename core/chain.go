package core

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/datachainlab/grandpa-relayer/grandpa"
)

// Chain is a connection to a GRANDPA chain node. Implementations must be safe
// for concurrent use: a single Chain is shared by every loop of a bridge.
//
// Errors caused by the transport must be marked with ErrConnection so that
// loops can reconnect instead of failing.
type Chain interface {
	// Name returns the chain name used in runtime API method names, e.g. "Betanet".
	Name() string

	// Init connects to the node.
	Init(ctx context.Context) error

	// Reconnect drops the current connection and establishes a new one.
	Reconnect(ctx context.Context) error

	// AverageBlockInterval returns the expected time between two blocks.
	AverageBlockInterval() time.Duration

	// MaxExtrinsicSize returns the maximal size of a transaction in bytes.
	MaxExtrinsicSize() uint32

	// MaxExtrinsicWeight returns the maximal weight of a transaction.
	MaxExtrinsicWeight() uint64

	GenesisHash(ctx context.Context) (Hash, error)

	BestHeaderID(ctx context.Context) (HeaderID, error)

	BestFinalizedHeaderID(ctx context.Context) (HeaderID, error)

	// HeaderAndJustification returns the canonical header with the given
	// number and its encoded GRANDPA justification, if the node has one.
	HeaderAndJustification(ctx context.Context, number BlockNumber) (*grandpa.Header, []byte, error)

	// SubscribeJustifications streams the encoded GRANDPA justifications the
	// node produces. The channel is closed when ctx is done or the
	// subscription breaks. Nodes that cannot push notifications return an
	// error marked with ErrUnsupported.
	SubscribeJustifications(ctx context.Context) (<-chan []byte, error)

	// IsSynced reports whether the node has caught up with the network.
	IsSynced(ctx context.Context) (bool, error)

	// CallRuntime calls a named runtime API method at the given block, or
	// at the best block if at is nil.
	CallRuntime(ctx context.Context, method string, args []byte, at *Hash) ([]byte, error)

	// ReadProof returns a storage proof of keys at the given block.
	ReadProof(ctx context.Context, keys [][]byte, at Hash) ([][]byte, error)

	RuntimeVersion(ctx context.Context) (RuntimeVersion, error)

	FreeBalance(ctx context.Context, account AccountID) (*uint256.Int, error)

	// SignTransaction builds a signed transaction of call.
	SignTransaction(signer Signer, genesis Hash, era Era, call Call, nonce uint32) ([]byte, error)

	// SubmitSignedTransaction asks build for a signed transaction using the
	// current best block and the next nonce of signer, then submits it.
	SubmitSignedTransaction(ctx context.Context, signer Signer, build TransactionBuilder) (TransactionStatus, error)
}

// ChainConfig defines a chain configuration and its builder
type ChainConfig interface {
	Build() (Chain, error)
	Validate() error
}
