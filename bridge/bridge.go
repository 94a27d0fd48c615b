// Package bridge wires the finality pipelines and lane loops of a configured
// bridge between two chains.
package bridge

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/finality"
	"github.com/datachainlab/grandpa-relayer/log"
	"github.com/datachainlab/grandpa-relayer/messages"
)

// ProgressStore records the progress of every loop of a bridge.
type ProgressStore interface {
	finality.ProgressStore
	messages.ProgressStore
}

// Bridge is a configured bridge. Headers are relayed in both directions,
// messages on every lane of the config.
type Bridge struct {
	Config *config.BridgeConfig
	Source *config.Chain
	Target *config.Chain

	guardInterval time.Duration
	store         ProgressStore
	session       string
	logger        *log.RelayLogger
}

func newBridge(cfg *config.BridgeConfig, source, target *config.Chain, guardInterval time.Duration, store ProgressStore) *Bridge {
	session := uuid.NewString()
	return &Bridge{
		Config:        cfg,
		Source:        source,
		Target:        target,
		guardInterval: guardInterval,
		store:         store,
		session:       session,
		logger:        log.GetLogger().WithModule("bridge").WithBridge(source.Name(), target.Name()).WithSession(session),
	}
}

func (b *Bridge) Name() string {
	return b.Config.Name
}

// Session returns the id attached to the logs of every loop started by b.
func (b *Bridge) Session() string {
	return b.session
}

// Connect connects to both chains.
func (b *Bridge) Connect(ctx context.Context) error {
	for _, c := range []*config.Chain{b.Source, b.Target} {
		if err := c.Init(ctx); err != nil {
			return errors.Wrapf(err, "failed to connect to %s", c.Name())
		}
	}
	return nil
}

// endpoints returns the chains headers or messages are relayed from and to.
func (b *Bridge) endpoints(reverse bool) (source, target *config.Chain) {
	if reverse {
		return b.Target, b.Source
	}
	return b.Source, b.Target
}

// InitHeaders initializes the finality pallet tracking the source chain at
// the target chain, or the other way around if reverse is set.
func (b *Bridge) InitHeaders(ctx context.Context, reverse bool) (*finality.InitializationData, error) {
	source, target := b.endpoints(reverse)
	data, err := finality.InitBridge(ctx, source, target, core.GrandpaPalletName(source.Name()), target.Signer)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to initialize %s at %s", core.GrandpaPalletName(source.Name()), target.Name())
	}
	b.logger.InfoContext(ctx, "bridge initialized",
		"source", source.Name(),
		"target", target.Name(),
		"number", data.Header.Number,
		"set_id", data.SetID,
	)
	return data, nil
}

// HeadersPipeline builds the pipeline relaying finalized headers of one
// chain of the bridge to the other.
func (b *Bridge) HeadersPipeline(reverse bool) (*finality.Pipeline, error) {
	source, target := b.endpoints(reverse)
	h := b.Config.Headers
	stall, err := h.StallTimeoutDuration()
	if err != nil {
		return nil, err
	}
	if stall == 0 {
		stall = core.TransactionStallTimeout(target.Mortality, target.AverageBlockInterval(), core.DefaultStallTimeout)
	}
	reconnect, err := h.ReconnectDelayDuration()
	if err != nil {
		return nil, err
	}
	p := finality.NewPipeline(source.Name(), target.Name(),
		finality.NewChainSource(source),
		finality.NewChainTarget(target, source.Name(), core.GrandpaPalletName(source.Name()), target.Signer, target.Mortality),
		finality.SyncParams{
			Tick:                      finality.DefaultTick(source, target),
			RecentFinalityProofsLimit: h.ProofsLimit(),
			StallTimeout:              stall,
			OnlyMandatoryHeaders:      h.OnlyMandatoryHeaders,
			ReconnectDelay:            reconnect,
		},
	).WithLogger(log.GetLogger().WithModule("finality").WithBridge(source.Name(), target.Name()).WithSession(b.session))
	if b.store != nil {
		p = p.WithProgressStore(b.store)
	}
	return p, nil
}

// LaneLoop builds the loop relaying the messages of a configured lane.
func (b *Bridge) LaneLoop(lane *config.LaneConfig) (*messages.Loop, error) {
	source, target := b.endpoints(lane.Reverse)
	strategy, err := lane.Strategy()
	if err != nil {
		return nil, err
	}
	stall, err := lane.StallTimeoutDuration()
	if err != nil {
		return nil, err
	}
	if stall == 0 {
		stall = core.BidirectionalTransactionStallTimeout(
			source.Mortality,
			target.Mortality,
			source.AverageBlockInterval(),
			target.AverageBlockInterval(),
			core.DefaultStallTimeout,
		)
	}
	reconnect, err := b.Config.Headers.ReconnectDelayDuration()
	if err != nil {
		return nil, err
	}
	limits := lane.Limits
	if limits.MaxSize == 0 {
		limits.MaxSize = uint64(target.MaxExtrinsicSize()) / 3
	}
	l := messages.NewLoop(source.Name(), target.Name(),
		messages.NewChainSource(source, target.Name(), lane.Lane, core.MessagesPalletName(target.Name()), source.Signer, source.Mortality),
		messages.NewChainTarget(target, source.Name(), lane.Lane, core.MessagesPalletName(source.Name()), source.Signer.AccountID(), target.Signer, target.Mortality),
		strategy,
		messages.Params{
			Lane:           lane.Lane,
			Tick:           finality.DefaultTick(source, target),
			ReconnectDelay: reconnect,
			StallTimeout:   stall,
			Limits:         limits,
		},
	).WithLogger(log.GetLogger().WithModule("messages").WithLane(source.Name(), target.Name(), lane.Lane.String()).WithSession(b.session))
	if b.store != nil {
		l = l.WithProgressStore(b.store)
	}
	return l, nil
}

// Guards builds the relay guards of the bridge. Spec versions are read from
// the chains when the guards are built.
func (b *Bridge) Guards(ctx context.Context) ([]core.Guard, error) {
	var guards []core.Guard
	g := b.Config.Guards
	for _, c := range []*config.Chain{b.Source, b.Target} {
		if g.AbortOnSpecVersionChange {
			v, err := c.RuntimeVersion(ctx)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read runtime version of %s", c.Name())
			}
			guards = append(guards, core.NewSpecVersionGuard(c, v.SpecVersion))
		}
		maxDecrease, err := g.MaxBalanceDecrease()
		if err != nil {
			return nil, err
		}
		if maxDecrease != nil {
			guards = append(guards, core.NewBalanceGuard(c, c.Signer.AccountID(), maxDecrease))
		}
	}
	return guards, nil
}

// RelayHeaders relays headers in one direction until ctx is done or the
// pipeline fails.
func (b *Bridge) RelayHeaders(ctx context.Context, reverse bool) error {
	p, err := b.HeadersPipeline(reverse)
	if err != nil {
		return err
	}
	guards, err := b.Guards(ctx)
	if err != nil {
		return err
	}
	return p.RunWithGuards(ctx, b.guardInterval, guards...)
}

// RelayMessages relays the messages of one lane until ctx is done or the
// loop fails.
func (b *Bridge) RelayMessages(ctx context.Context, lane *config.LaneConfig) error {
	l, err := b.LaneLoop(lane)
	if err != nil {
		return err
	}
	guards, err := b.Guards(ctx)
	if err != nil {
		return err
	}
	return l.RunWithGuards(ctx, b.guardInterval, guards...)
}

// Run relays headers in both directions and the messages of every lane until
// ctx is done. A loop failing with a fatal error stops alone while the other
// loops keep relaying. A violated guard stops every loop of the bridge. Run
// returns the guard violation or the joined errors of the failed loops, and
// ctx.Err() if no loop failed.
func (b *Bridge) Run(ctx context.Context) error {
	guards, err := b.Guards(ctx)
	if err != nil {
		return err
	}
	var runs []loopRun
	for _, reverse := range []bool{false, true} {
		p, err := b.HeadersPipeline(reverse)
		if err != nil {
			return err
		}
		source, target := b.endpoints(reverse)
		runs = append(runs, loopRun{name: "headers " + source.Name() + " -> " + target.Name(), run: p.Run})
	}
	for i := range b.Config.Lanes {
		lane := &b.Config.Lanes[i]
		l, err := b.LaneLoop(lane)
		if err != nil {
			return err
		}
		source, target := b.endpoints(lane.Reverse)
		runs = append(runs, loopRun{name: "lane " + lane.Lane.String() + " " + source.Name() + " -> " + target.Name(), run: l.Run})
	}

	b.logger.InfoContext(ctx, "starting bridge", "name", b.Name(), "lanes", len(b.Config.Lanes))
	loopsCtx, stopLoops := context.WithCancel(ctx)
	defer stopLoops()
	guardsCtx, stopGuards := context.WithCancel(ctx)
	defer stopGuards()

	guardErr := make(chan error, 1)
	go func() {
		if len(guards) == 0 {
			guardErr <- nil
			return
		}
		err := core.RunGuards(guardsCtx, b.guardInterval, guards...)
		if guardsCtx.Err() != nil {
			guardErr <- nil
			return
		}
		b.logger.ErrorContext(ctx, "bridge guard violated, stopping every loop", err, "name", b.Name())
		stopLoops()
		guardErr <- err
	}()

	var eg errgroup.Group
	errs := make([]error, len(runs))
	for i, r := range runs {
		i, r := i, r
		eg.Go(func() error {
			err := r.run(loopsCtx)
			if err == nil || (loopsCtx.Err() != nil && errors.Is(err, loopsCtx.Err())) {
				return nil
			}
			b.logger.ErrorContext(ctx, "relay loop stopped", err, "name", b.Name(), "loop", r.name)
			errs[i] = errors.Wrap(err, r.name)
			return nil
		})
	}
	_ = eg.Wait()
	stopGuards()
	if err := <-guardErr; err != nil {
		return err
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return ctx.Err()
}

// loopRun is a named relay loop of a bridge.
type loopRun struct {
	name string
	run  func(ctx context.Context) error
}
