package substrate

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
	"github.com/datachainlab/grandpa-relayer/log"
)

const justificationsBuffer = 16

// Chain is a connection to a Substrate node over JSON-RPC.
type Chain struct {
	config   ChainConfig
	interval time.Duration
	timeout  time.Duration
	logger   *log.RelayLogger
	// hash -> *cachedBlock
	blocks *lru.Cache

	mu      sync.RWMutex
	api     *gsrpc.SubstrateAPI
	meta    *types.Metadata
	version core.RuntimeVersion
	genesis *core.Hash

	// serializes nonce selection and submission
	submitMu sync.Mutex
	nonces   map[core.AccountID]uint32
}

type cachedBlock struct {
	header        *grandpa.Header
	justification []byte
}

var _ core.Chain = (*Chain)(nil)

func NewChain(config ChainConfig) (*Chain, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()
	interval, _ := parseDuration(config.BlockInterval, defaultBlockInterval)
	timeout, _ := parseDuration(config.Timeout, defaultTimeout)
	blocks, err := lru.New(config.HeaderCacheSize)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Chain{
		config:   config,
		interval: interval,
		timeout:  timeout,
		logger:   log.GetLogger().WithModule("substrate").WithChain(config.Name),
		blocks:   blocks,
		nonces:   make(map[core.AccountID]uint32),
	}, nil
}

func (c *Chain) Name() string {
	return c.config.Name
}

func (c *Chain) Init(ctx context.Context) error {
	return c.connect(ctx)
}

func (c *Chain) Reconnect(ctx context.Context) error {
	c.logger.InfoContext(ctx, "reconnecting", "rpc_addr", c.config.RPCAddr)
	return c.connect(ctx)
}

// connect dials the node and reads the metadata and runtime version used to
// build transactions.
func (c *Chain) connect(ctx context.Context) error {
	type dialed struct {
		api *gsrpc.SubstrateAPI
		err error
	}
	done := make(chan dialed, 1)
	go func() {
		api, err := gsrpc.NewSubstrateAPI(c.config.RPCAddr)
		done <- dialed{api, err}
	}()
	var api *gsrpc.SubstrateAPI
	select {
	case <-ctx.Done():
		return core.ConnectionError(ctx.Err())
	case d := <-done:
		if d.err != nil {
			return core.ConnectionError(errors.Wrapf(d.err, "failed to connect to %s", c.config.RPCAddr))
		}
		api = d.api
	}

	c.mu.Lock()
	c.api = api
	c.mu.Unlock()

	if err := c.refreshRuntime(ctx); err != nil {
		return err
	}
	c.submitMu.Lock()
	c.nonces = make(map[core.AccountID]uint32)
	c.submitMu.Unlock()
	return nil
}

// refreshRuntime reloads the metadata and runtime version.
func (c *Chain) refreshRuntime(ctx context.Context) error {
	var version core.RuntimeVersion
	if err := c.call(ctx, &version, methodRuntimeVersion); err != nil {
		return errors.Wrap(err, "failed to read runtime version")
	}
	var metaHex string
	if err := c.call(ctx, &metaHex, methodGetMetadata); err != nil {
		return errors.Wrap(err, "failed to read metadata")
	}
	bz, err := decodeHex(metaHex)
	if err != nil {
		return err
	}
	var meta types.Metadata
	if err := scale.NewDecoder(bytes.NewReader(bz)).Decode(&meta); err != nil {
		return errors.Wrap(err, "failed to decode metadata")
	}
	c.mu.Lock()
	c.meta = &meta
	c.version = version
	c.mu.Unlock()
	c.logger.InfoContext(ctx, "runtime loaded", "spec_name", version.SpecName, "spec_version", version.SpecVersion)
	return nil
}

func (c *Chain) client() (*gsrpc.SubstrateAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.api == nil {
		return nil, core.ConnectionError(errors.Newf("%s is not connected", c.config.Name))
	}
	return c.api, nil
}

// call performs a JSON-RPC call bounded by the configured timeout and decodes
// the result into result.
func (c *Chain) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	api, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type response struct {
		raw json.RawMessage
		err error
	}
	done := make(chan response, 1)
	go func() {
		var raw json.RawMessage
		err := api.Client.Call(&raw, method, args...)
		done <- response{raw, err}
	}()
	select {
	case <-ctx.Done():
		return core.ConnectionError(errors.Wrapf(ctx.Err(), "%s", method))
	case res := <-done:
		if res.err != nil {
			return errors.Wrapf(classify(res.err), "%s", method)
		}
		if result == nil {
			return nil
		}
		return errors.Wrapf(json.Unmarshal(res.raw, result), "failed to decode %s response", method)
	}
}

func (c *Chain) AverageBlockInterval() time.Duration {
	return c.interval
}

func (c *Chain) MaxExtrinsicSize() uint32 {
	return c.config.MaxExtrinsicSize
}

func (c *Chain) MaxExtrinsicWeight() uint64 {
	return c.config.MaxExtrinsicWeight
}

func (c *Chain) GenesisHash(ctx context.Context) (core.Hash, error) {
	c.mu.RLock()
	g := c.genesis
	c.mu.RUnlock()
	if g != nil {
		return *g, nil
	}
	h, err := c.blockHash(ctx, 0)
	if err != nil {
		return core.Hash{}, err
	}
	c.mu.Lock()
	c.genesis = &h
	c.mu.Unlock()
	return h, nil
}

func (c *Chain) blockHash(ctx context.Context, number core.BlockNumber) (core.Hash, error) {
	var s *string
	if err := c.call(ctx, &s, methodGetBlockHash, number); err != nil {
		return core.Hash{}, err
	}
	if s == nil {
		return core.Hash{}, errors.Newf("%s has no block %d", c.config.Name, number)
	}
	return decodeHash(*s)
}

func (c *Chain) header(ctx context.Context, hash *core.Hash) (*grandpa.Header, error) {
	var h types.Header
	var err error
	if hash == nil {
		err = c.call(ctx, &h, methodGetHeader)
	} else {
		err = c.call(ctx, &h, methodGetHeader, encodeHex(hash[:]))
	}
	if err != nil {
		return nil, err
	}
	return convertHeader(&h)
}

func (c *Chain) BestHeaderID(ctx context.Context) (core.HeaderID, error) {
	h, err := c.header(ctx, nil)
	if err != nil {
		return core.HeaderID{}, err
	}
	return h.ID(), nil
}

func (c *Chain) BestFinalizedHeaderID(ctx context.Context) (core.HeaderID, error) {
	var s string
	if err := c.call(ctx, &s, methodGetFinalizedHead); err != nil {
		return core.HeaderID{}, err
	}
	hash, err := decodeHash(s)
	if err != nil {
		return core.HeaderID{}, err
	}
	h, err := c.header(ctx, &hash)
	if err != nil {
		return core.HeaderID{}, err
	}
	return h.ID(), nil
}

func (c *Chain) HeaderAndJustification(ctx context.Context, number core.BlockNumber) (*grandpa.Header, []byte, error) {
	hash, err := c.blockHash(ctx, number)
	if err != nil {
		return nil, nil, err
	}
	if v, ok := c.blocks.Get(hash); ok {
		b := v.(*cachedBlock)
		return b.header, b.justification, nil
	}
	var block *signedBlock
	if err := c.call(ctx, &block, methodGetBlock, encodeHex(hash[:])); err != nil {
		return nil, nil, err
	}
	if block == nil {
		return nil, nil, errors.Newf("%s has no block %s", c.config.Name, encodeHex(hash[:]))
	}
	header, err := convertHeader(&block.Block.Header)
	if err != nil {
		return nil, nil, err
	}
	b := &cachedBlock{header: header, justification: block.grandpaJustification()}
	c.blocks.Add(hash, b)
	return b.header, b.justification, nil
}

// SubscribeJustifications subscribes to the justifications of the rounds
// the node finalizes.
func (c *Chain) SubscribeJustifications(ctx context.Context) (<-chan []byte, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}
	subCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	notifications := make(chan string)
	sub, err := api.Client.Subscribe(subCtx, grandpaNamespace,
		methodSubscribeJustifications, methodUnsubscribeJustifications, notificationJustifications, notifications)
	if err != nil {
		return nil, errors.Wrap(classifySubscription(err), "grandpa_subscribeJustifications")
	}

	out := make(chan []byte, justificationsBuffer)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					c.logger.WarnContext(ctx, "justification subscription broken", "error", err.Error())
				}
				return
			case s := <-notifications:
				bz, err := decodeHex(s)
				if err != nil {
					c.logger.WarnContext(ctx, "ignoring undecodable justification notification", "error", err.Error())
					continue
				}
				select {
				case out <- bz:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *Chain) IsSynced(ctx context.Context) (bool, error) {
	var h health
	if err := c.call(ctx, &h, methodHealth); err != nil {
		return false, err
	}
	return h.synced(), nil
}

func (c *Chain) CallRuntime(ctx context.Context, method string, args []byte, at *core.Hash) ([]byte, error) {
	params := []interface{}{method, encodeHex(args)}
	if at != nil {
		params = append(params, encodeHex(at[:]))
	}
	var s string
	if err := c.call(ctx, &s, methodStateCall, params...); err != nil {
		return nil, err
	}
	return decodeHex(s)
}

func (c *Chain) ReadProof(ctx context.Context, keys [][]byte, at core.Hash) ([][]byte, error) {
	hexKeys := make([]string, len(keys))
	for i, k := range keys {
		hexKeys[i] = encodeHex(k)
	}
	var p readProof
	if err := c.call(ctx, &p, methodGetReadProof, hexKeys, encodeHex(at[:])); err != nil {
		return nil, err
	}
	nodes := make([][]byte, len(p.Proof))
	for i, n := range p.Proof {
		bz, err := decodeHex(n)
		if err != nil {
			return nil, err
		}
		nodes[i] = bz
	}
	return nodes, nil
}

func (c *Chain) RuntimeVersion(ctx context.Context) (core.RuntimeVersion, error) {
	var v core.RuntimeVersion
	if err := c.call(ctx, &v, methodRuntimeVersion); err != nil {
		return v, err
	}
	return v, nil
}

func (c *Chain) accountInfo(ctx context.Context, account core.AccountID) (*types.AccountInfo, error) {
	c.mu.RLock()
	meta := c.meta
	c.mu.RUnlock()
	if meta == nil {
		return nil, core.ConnectionError(errors.Newf("%s is not connected", c.config.Name))
	}
	key, err := types.CreateStorageKey(meta, "System", "Account", account[:])
	if err != nil {
		return nil, errors.Wrap(err, "failed to build account storage key")
	}
	var s *string
	if err := c.call(ctx, &s, methodGetStorage, key.Hex()); err != nil {
		return nil, err
	}
	var info types.AccountInfo
	if s == nil {
		return &info, nil
	}
	bz, err := decodeHex(*s)
	if err != nil {
		return nil, err
	}
	if err := scale.NewDecoder(bytes.NewReader(bz)).Decode(&info); err != nil {
		return nil, errors.Wrap(err, "failed to decode account info")
	}
	return &info, nil
}

func (c *Chain) FreeBalance(ctx context.Context, account core.AccountID) (*uint256.Int, error) {
	info, err := c.accountInfo(ctx, account)
	if err != nil {
		return nil, err
	}
	if info.Data.Free.Int == nil {
		return new(uint256.Int), nil
	}
	v, overflow := uint256.FromBig(info.Data.Free.Int)
	if overflow {
		return nil, errors.Newf("balance of %s overflows", account)
	}
	return v, nil
}

func (c *Chain) SignTransaction(s core.Signer, genesis core.Hash, era core.Era, call core.Call, nonce uint32) ([]byte, error) {
	c.mu.RLock()
	meta, version := c.meta, c.version
	c.mu.RUnlock()
	if meta == nil {
		return nil, core.ConnectionError(errors.Newf("%s is not connected", c.config.Name))
	}
	index, err := meta.FindCallIndex(call.String())
	if err != nil {
		return nil, errors.Wrapf(err, "%s has no call %s", c.config.Name, call)
	}
	return encodeExtrinsic(s, encodeCall(index, call.Args), signedExtra{
		era:                era,
		nonce:              nonce,
		tip:                c.config.Tip,
		specVersion:        version.SpecVersion,
		transactionVersion: version.TransactionVersion,
		genesis:            genesis,
	})
}

type addresser interface {
	Address() string
}

// nextNonce returns the nonce of the next transaction of s, including
// transactions waiting in the pool.
func (c *Chain) nextNonce(ctx context.Context, s core.Signer) (uint32, error) {
	var nonce uint32
	if a, ok := s.(addresser); ok {
		if err := c.call(ctx, &nonce, methodAccountNextIndex, a.Address()); err != nil {
			return 0, err
		}
	} else {
		info, err := c.accountInfo(ctx, s.AccountID())
		if err != nil {
			return 0, err
		}
		nonce = uint32(info.Nonce)
	}
	if local, ok := c.nonces[s.AccountID()]; ok && local > nonce {
		nonce = local
	}
	return nonce, nil
}

func (c *Chain) SubmitSignedTransaction(ctx context.Context, s core.Signer, build core.TransactionBuilder) (core.TransactionStatus, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	best, err := c.BestHeaderID(ctx)
	if err != nil {
		return core.TransactionStatus{}, err
	}
	nonce, err := c.nextNonce(ctx, s)
	if err != nil {
		return core.TransactionStatus{}, err
	}
	tx, err := build(best, nonce)
	if err != nil {
		return core.TransactionStatus{}, err
	}
	if len(tx) > int(c.config.MaxExtrinsicSize) {
		return core.TransactionStatus{}, errors.Mark(
			errors.Newf("transaction of %d bytes exceeds the limit of %d", len(tx), c.config.MaxExtrinsicSize),
			core.ErrBatchTooLarge,
		)
	}

	var txHash string
	// the submission is not aborted once sent
	if err := c.call(context.WithoutCancel(ctx), &txHash, methodSubmitExtrinsic, encodeHex(tx)); err != nil {
		return core.TransactionStatus{}, err
	}
	hash, err := decodeHash(txHash)
	if err != nil {
		return core.TransactionStatus{}, err
	}
	c.nonces[s.AccountID()] = nonce + 1
	c.logger.DebugContext(ctx, "transaction submitted", "tx_hash", encodeHex(hash[:]), "nonce", nonce, "best", best.Number)
	return core.TransactionStatus{TxHash: hash, Nonce: nonce, Best: best}, nil
}
