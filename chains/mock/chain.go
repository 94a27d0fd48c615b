package mock

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/blake2b"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
	"github.com/datachainlab/grandpa-relayer/log"
	"github.com/datachainlab/grandpa-relayer/messages"
)

type block struct {
	header        *grandpa.Header
	justification []byte
	state         state
	// authority set finalizing the descendants of the block
	setID uint64
}

type bridgedChain struct {
	voters  *grandpa.VoterSet
	best    core.HeaderID
	headers map[core.Hash]*grandpa.Header
	halted  bool
}

// Chain is an in-memory GRANDPA chain with instant finality. Every accepted
// transaction seals a block, which is justified by the local authorities.
// It hosts a GRANDPA pallet and a messages pallet for every bridged peer.
type Chain struct {
	config   ChainConfig
	interval time.Duration
	logger   *log.RelayLogger

	mu         sync.Mutex
	keys       []ed25519.PrivateKey
	pending    []ed25519.PrivateKey
	setID      uint64
	sets       map[uint64][]grandpa.Voter
	blocks     []*block
	byHash     map[core.Hash]core.BlockNumber
	state      state
	bridges    map[string]*bridgedChain
	nonces     map[core.AccountID]uint32
	balances   map[core.AccountID]*uint256.Int
	connected  bool
	syncing    bool
	failures   []error
	reconnects int
	stop       context.CancelFunc
	// channels of the justification subscriptions
	subscribers map[chan []byte]struct{}
}

const justificationsBuffer = 64

var _ core.Chain = (*Chain)(nil)

func NewChain(config ChainConfig) (*Chain, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	for _, l := range config.OutboundLanes {
		if _, err := messages.ParseLaneID(l.Lane); err != nil {
			return nil, err
		}
	}
	c := &Chain{
		config:      config,
		interval:    config.blockInterval(),
		logger:      log.GetLogger().WithModule("chains.mock").WithChain(config.Name),
		sets:        make(map[uint64][]grandpa.Voter),
		byHash:      make(map[core.Hash]core.BlockNumber),
		state:       make(state),
		bridges:     make(map[string]*bridgedChain),
		nonces:      make(map[core.AccountID]uint32),
		balances:    make(map[core.AccountID]*uint256.Int),
		subscribers: make(map[chan []byte]struct{}),
	}
	c.keys = deriveKeys(config.Seed, 0, config.Authorities)
	c.sets[0] = votersOf(c.keys)
	genesis := &grandpa.Header{StateRoot: c.state.root()}
	c.blocks = []*block{{header: genesis, state: c.state.clone()}}
	c.byHash[genesis.Hash()] = 0
	return c, nil
}

func deriveKeys(seed string, generation uint64, n int) []ed25519.PrivateKey {
	keys := make([]ed25519.PrivateKey, n)
	for i := range keys {
		material := blake2b.Sum256([]byte(fmt.Sprintf("%s/%d/%d", seed, generation, i)))
		keys[i] = ed25519.NewKeyFromSeed(material[:])
	}
	return keys
}

func votersOf(keys []ed25519.PrivateKey) []grandpa.Voter {
	voters := make([]grandpa.Voter, len(keys))
	for i, k := range keys {
		copy(voters[i].ID[:], k.Public().(ed25519.PublicKey))
		voters[i].Weight = 1
	}
	return voters
}

func (c *Chain) Name() string {
	return c.config.Name
}

// Init connects to the chain and, if configured, starts producing a block
// every block interval until ctx is done.
func (c *Chain) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	if c.config.ProduceBlocks && c.stop == nil {
		ctx, cancel := context.WithCancel(ctx)
		c.stop = cancel
		go c.produce(ctx)
	}
	return nil
}

// Close stops block production.
func (c *Chain) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

func (c *Chain) produce(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.tick(); err != nil {
				c.logger.Error("failed to produce block", err)
			}
		}
	}
}

func (c *Chain) tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.config.OutboundLanes {
		lane, _ := messages.ParseLaneID(l.Lane)
		for i := uint32(0); i < l.MessagesPerBlock; i++ {
			if _, err := c.sendLocked(l.Target, lane, l.DispatchWeight, 0, uint256.NewInt(l.Fee)); err != nil {
				return err
			}
		}
	}
	_, err := c.produceLocked(nil)
	return err
}

func (c *Chain) Reconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.reconnects++
	return nil
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
	if err := c.lock(ctx); err != nil {
		return core.Hash{}, err
	}
	defer c.mu.Unlock()
	return c.blocks[0].header.Hash(), nil
}

func (c *Chain) BestHeaderID(ctx context.Context) (core.HeaderID, error) {
	if err := c.lock(ctx); err != nil {
		return core.HeaderID{}, err
	}
	defer c.mu.Unlock()
	return c.best().header.ID(), nil
}

func (c *Chain) BestFinalizedHeaderID(ctx context.Context) (core.HeaderID, error) {
	// every block is finalized as soon as it is sealed
	return c.BestHeaderID(ctx)
}

func (c *Chain) HeaderAndJustification(ctx context.Context, number core.BlockNumber) (*grandpa.Header, []byte, error) {
	if err := c.lock(ctx); err != nil {
		return nil, nil, err
	}
	defer c.mu.Unlock()
	if int(number) >= len(c.blocks) {
		return nil, nil, errors.Newf("%s has no header %d", c.config.Name, number)
	}
	b := c.blocks[number]
	header := *b.header
	return &header, b.justification, nil
}

func (c *Chain) IsSynced(ctx context.Context) (bool, error) {
	if err := c.lock(ctx); err != nil {
		return false, err
	}
	defer c.mu.Unlock()
	return !c.syncing, nil
}

func (c *Chain) CallRuntime(ctx context.Context, method string, args []byte, at *core.Hash) ([]byte, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	b, err := c.blockAt(at)
	if err != nil {
		return nil, err
	}
	return c.runtimeCall(method, args, b)
}

// ReadProof proves the whole state of the block, which includes keys.
func (c *Chain) ReadProof(ctx context.Context, keys [][]byte, at core.Hash) ([][]byte, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	b, err := c.blockAt(&at)
	if err != nil {
		return nil, err
	}
	return b.state.nodes(), nil
}

func (c *Chain) RuntimeVersion(ctx context.Context) (core.RuntimeVersion, error) {
	if err := c.lock(ctx); err != nil {
		return core.RuntimeVersion{}, err
	}
	defer c.mu.Unlock()
	return core.RuntimeVersion{SpecName: "mock", SpecVersion: c.config.SpecVersion, TransactionVersion: 1}, nil
}

func (c *Chain) FreeBalance(ctx context.Context, account core.AccountID) (*uint256.Int, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	return new(uint256.Int).Set(c.balance(account)), nil
}

func (c *Chain) SignTransaction(signer core.Signer, genesis core.Hash, era core.Era, call core.Call, nonce uint32) ([]byte, error) {
	return encodeExtrinsic(signer, genesis, era, call, nonce)
}

// SubmitSignedTransaction dispatches the transaction and seals it in a new
// block. A transaction failing dispatch leaves the chain untouched.
func (c *Chain) SubmitSignedTransaction(ctx context.Context, signer core.Signer, build core.TransactionBuilder) (core.TransactionStatus, error) {
	var status core.TransactionStatus
	if err := c.lock(ctx); err != nil {
		return status, err
	}
	defer c.mu.Unlock()

	best := c.best().header.ID()
	account := signer.AccountID()
	nonce := c.nonces[account]
	bz, err := build(best, nonce)
	if err != nil {
		return status, err
	}
	if len(bz) > int(c.config.MaxExtrinsicSize) {
		return status, errors.Wrapf(core.ErrBatchTooLarge, "transaction of %d bytes exceeds %d", len(bz), c.config.MaxExtrinsicSize)
	}
	x, err := decodeExtrinsic(bz)
	if err != nil {
		return status, err
	}
	switch {
	case x.Genesis != c.blocks[0].header.Hash():
		return status, errors.New("transaction is signed for another chain")
	case x.Signer != account:
		return status, errors.Newf("transaction is signed by %s", x.Signer)
	case x.Nonce != nonce:
		return status, errors.Newf("invalid transaction nonce %d, expected %d", x.Nonce, nonce)
	case !x.era().IsValidAt(best.Number + 1):
		return status, errors.Newf("transaction born at %d has expired", x.BirthNumber)
	}
	fee := uint256.NewInt(c.config.TransactionFee)
	balance := c.balance(account)
	if balance.Lt(fee) {
		return status, errors.Newf("%s cannot pay the transaction fee", account)
	}

	draft := c.state.clone()
	commit, err := c.dispatch(draft, x.call())
	if err != nil {
		return status, errors.Wrapf(err, "%s failed", x.call())
	}
	c.state = draft
	commit()
	c.nonces[account]++
	balance.Sub(balance, fee)

	header, err := c.produceLocked([][]byte{bz})
	if err != nil {
		return status, err
	}
	status = core.TransactionStatus{TxHash: blake2b.Sum256(bz), Nonce: nonce, Best: header.ID()}
	c.logger.Debug("transaction included", "call", x.call().String(), "block", header.Number)
	return status, nil
}

// lock acquires the chain lock unless the connection is down.
func (c *Chain) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if len(c.failures) > 0 {
		err := c.failures[0]
		c.failures = c.failures[1:]
		c.mu.Unlock()
		return core.ConnectionError(err)
	}
	if !c.connected {
		c.mu.Unlock()
		return core.ConnectionError(errors.Newf("%s is not connected", c.config.Name))
	}
	return nil
}

func (c *Chain) best() *block {
	return c.blocks[len(c.blocks)-1]
}

func (c *Chain) blockAt(at *core.Hash) (*block, error) {
	if at == nil {
		return c.best(), nil
	}
	n, ok := c.byHash[*at]
	if !ok {
		return nil, errors.Newf("%s has no block %s", c.config.Name, at)
	}
	return c.blocks[n], nil
}

func (c *Chain) balance(account core.AccountID) *uint256.Int {
	b, ok := c.balances[account]
	if !ok {
		b = uint256.NewInt(c.config.InitialBalance)
		c.balances[account] = b
	}
	return b
}

func (c *Chain) produceLocked(extrinsics [][]byte) (*grandpa.Header, error) {
	parent := c.best().header
	header := &grandpa.Header{
		ParentHash: parent.Hash(),
		Number:     parent.Number + 1,
		StateRoot:  c.state.root(),
	}
	h, _ := blake2b.New256(nil)
	for _, x := range extrinsics {
		h.Write(x)
	}
	copy(header.ExtrinsicsRoot[:], h.Sum(nil))

	rotate := c.pending != nil
	if rotate {
		digest, err := grandpa.NewScheduledChangeDigest(grandpa.ScheduledChange{NextAuthorities: votersOf(c.pending)})
		if err != nil {
			return nil, err
		}
		header.Digest = append(header.Digest, digest)
	}
	var justification []byte
	if rotate || header.Number%c.config.JustificationPeriod == 0 {
		var err error
		if justification, err = c.justify(header); err != nil {
			return nil, err
		}
	}
	notification := justification
	if notification == nil && len(c.subscribers) > 0 {
		var err error
		if notification, err = c.justify(header); err != nil {
			return nil, err
		}
	}
	if rotate {
		c.keys, c.pending = c.pending, nil
		c.setID++
		c.sets[c.setID] = votersOf(c.keys)
		c.logger.Info("authority set changed", "set_id", c.setID, "block", header.Number)
	}
	c.blocks = append(c.blocks, &block{header: header, justification: justification, state: c.state.clone(), setID: c.setID})
	c.byHash[header.Hash()] = header.Number
	c.notifyLocked(notification)
	return header, nil
}

// SubscribeJustifications streams a justification of every block produced
// after the call. Disconnect breaks every subscription.
func (c *Chain) SubscribeJustifications(ctx context.Context) (<-chan []byte, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	sub := make(chan []byte, justificationsBuffer)
	c.subscribers[sub] = struct{}{}
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		c.unsubscribeLocked(sub)
	}()
	return sub, nil
}

func (c *Chain) unsubscribeLocked(sub chan []byte) {
	if _, ok := c.subscribers[sub]; ok {
		delete(c.subscribers, sub)
		close(sub)
	}
}

// Subscribers returns the number of open justification subscriptions.
func (c *Chain) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

// notifyLocked sends j to every subscriber. Slow subscribers miss it.
func (c *Chain) notifyLocked(j []byte) {
	if j == nil {
		return
	}
	for sub := range c.subscribers {
		select {
		case sub <- j:
		default:
			c.logger.Debug("subscriber is full, dropping justification")
		}
	}
}

func (c *Chain) justify(header *grandpa.Header) ([]byte, error) {
	target := grandpa.Precommit{TargetHash: header.Hash(), TargetNumber: header.Number}
	j := grandpa.Justification{
		Round:  uint64(header.Number),
		Commit: grandpa.Commit{TargetHash: target.TargetHash, TargetNumber: target.TargetNumber},
	}
	for _, k := range c.keys {
		j.Commit.Precommits = append(j.Commit.Precommits, grandpa.SignPrecommit(k, target, j.Round, c.setID))
	}
	return grandpa.EncodeJustification(&j)
}

func (c *Chain) sendLocked(peer string, lane messages.LaneID, dispatchWeight uint64, size uint32, fee *uint256.Int) (messages.Nonce, error) {
	out, err := c.state.outboundLane(peer, lane)
	if err != nil {
		return 0, err
	}
	if out.OldestUnprunedNonce == 0 {
		out.OldestUnprunedNonce = 1
	}
	out.LatestGeneratedNonce++
	nonce := messages.Nonce(out.LatestGeneratedNonce)
	details := messages.MessageDetails{Nonce: nonce, DispatchWeight: dispatchWeight, Size: size, DeliveryAndDispatchFee: fee}
	if err := c.state.setOutboundMessage(peer, lane, details); err != nil {
		return 0, err
	}
	c.state.setOutboundLane(peer, lane, out)
	return nonce, nil
}

// ProduceBlock seals an empty block.
func (c *Chain) ProduceBlock() (core.HeaderID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	header, err := c.produceLocked(nil)
	if err != nil {
		return core.HeaderID{}, err
	}
	return header.ID(), nil
}

// ProduceBlocks seals n empty blocks.
func (c *Chain) ProduceBlocks(n int) error {
	for i := 0; i < n; i++ {
		if _, err := c.ProduceBlock(); err != nil {
			return err
		}
	}
	return nil
}

// SendMessage queues a message to peer over lane and seals it in a block.
func (c *Chain) SendMessage(peer string, lane messages.LaneID, dispatchWeight uint64, size uint32, fee *uint256.Int) (messages.Nonce, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nonce, err := c.sendLocked(peer, lane, dispatchWeight, size, fee)
	if err != nil {
		return 0, err
	}
	if _, err := c.produceLocked(nil); err != nil {
		return 0, err
	}
	return nonce, nil
}

// ScheduleAuthoritySetChange announces a new set of n authorities in the
// next block, which is the last block finalized by the current set.
func (c *Chain) ScheduleAuthoritySetChange(n int) error {
	if n < 1 {
		return errors.Newf("invalid number of authorities: %d", n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = deriveKeys(c.config.Seed, c.setID+1, n)
	return nil
}

// Authorities returns the current authority set.
func (c *Chain) Authorities() (uint64, []grandpa.Voter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setID, votersOf(c.keys)
}

// BridgedBestFinalized returns the best header of peer imported by the
// GRANDPA pallet.
func (c *Chain) BridgedBestFinalized(peer string) (core.HeaderID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bridges[peer]
	if !ok {
		return core.HeaderID{}, false
	}
	return b.best, true
}

// FailNext makes the next calls fail with the given connection errors.
func (c *Chain) FailNext(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, errs...)
}

// Disconnect drops the connection until the next Reconnect.
func (c *Chain) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	for sub := range c.subscribers {
		c.unsubscribeLocked(sub)
	}
}

func (c *Chain) SetSyncing(syncing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncing = syncing
}

func (c *Chain) Reconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnects
}
