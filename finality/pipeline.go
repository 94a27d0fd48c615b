package finality

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
	"github.com/datachainlab/grandpa-relayer/log"
	"github.com/datachainlab/grandpa-relayer/metrics"
)

var tracer = otel.Tracer("github.com/datachainlab/grandpa-relayer/finality")

// SyncParams configures a finality pipeline.
type SyncParams struct {
	// Tick is the interval between two iterations, usually the larger of
	// the average block intervals of both chains.
	Tick time.Duration
	// RecentFinalityProofsLimit bounds the proofs buffered from the source stream.
	RecentFinalityProofsLimit int
	// StallTimeout is the time the target has to import a submitted header.
	StallTimeout time.Duration
	// OnlyMandatoryHeaders restricts the relay to authority set changes.
	OnlyMandatoryHeaders bool
	// ReconnectDelay is waited before reconnecting a failed client.
	ReconnectDelay time.Duration
}

// DefaultTick returns the larger of the average block intervals of a and b.
func DefaultTick(a, b core.Chain) time.Duration {
	return max(a.AverageBlockInterval(), b.AverageBlockInterval())
}

// ProgressStore records the source headers imported by the target.
type ProgressStore interface {
	SaveFinalityProgress(source, target string, number core.BlockNumber) error
}

type submission struct {
	number core.BlockNumber
	at     time.Time
}

// Pipeline relays finalized headers of a source chain to a target chain.
// It keeps at most one submission in flight.
type Pipeline struct {
	sourceName string
	targetName string
	source     Source
	target     Target
	params     SyncParams
	progress   ProgressStore
	now        func() time.Time
	logger     *log.RelayLogger

	recent *RecentFinalityProofs
	proofs <-chan FinalityProof
	// stopProofs ends the subscription behind proofs
	stopProofs   context.CancelFunc
	submitted    *submission
	lastImported core.BlockNumber
}

func NewPipeline(sourceName, targetName string, source Source, target Target, params SyncParams) *Pipeline {
	return &Pipeline{
		sourceName: sourceName,
		targetName: targetName,
		source:     source,
		target:     target,
		params:     params,
		now:        time.Now,
		logger:     log.GetLogger().WithModule("finality").WithBridge(sourceName, targetName),
		recent:     NewRecentFinalityProofs(params.RecentFinalityProofsLimit),
	}
}

// WithProgressStore makes the pipeline record every imported header.
func (p *Pipeline) WithProgressStore(store ProgressStore) *Pipeline {
	p.progress = store
	return p
}

// WithClock replaces the clock used for stall detection.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// WithLogger replaces the logger of the pipeline.
func (p *Pipeline) WithLogger(logger *log.RelayLogger) *Pipeline {
	p.logger = logger
	return p
}

// clientError is returned by an iteration when a client has to be reconnected.
type clientError struct {
	side string
	r    core.Reconnector
	err  error
}

func (e *clientError) Error() string { return e.side + ": " + e.err.Error() }
func (e *clientError) Unwrap() error { return e.err }

func (p *Pipeline) sourceError(err error) error {
	if core.IsConnectionError(err) {
		return &clientError{side: "source", r: p.source, err: err}
	}
	return err
}

func (p *Pipeline) targetError(err error) error {
	if core.IsConnectionError(err) {
		return &clientError{side: "target", r: p.target, err: err}
	}
	return err
}

// RunWithGuards runs the pipeline next to the relay guards. The first fatal
// error of either stops both.
func (p *Pipeline) RunWithGuards(ctx context.Context, guardInterval time.Duration, guards ...core.Guard) error {
	if len(guards) == 0 {
		return p.Run(ctx)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return core.RunGuards(ctx, guardInterval, guards...)
	})
	eg.Go(func() error {
		return p.Run(ctx)
	})
	return eg.Wait()
}

// Run relays headers until ctx is done or a fatal error occurs.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "starting finality relay", "only_mandatory_headers", p.params.OnlyMandatoryHeaders)
	defer p.unsubscribe()
	for {
		if err := p.iterate(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ce *clientError
			switch {
			case errors.As(err, &ce):
				p.logger.WarnContext(ctx, "connection failed, reconnecting", "side", ce.side, "error", err.Error())
				metrics.RelayLoopReconnectCounter.Add(ctx, 1, p.metricOption(attribute.String("side", ce.side)))
				if ce.side == "source" {
					p.unsubscribe()
				}
				if err := core.Reconnect(ctx, p.logger, ce.r, p.params.ReconnectDelay); err != nil {
					p.logger.WarnContext(ctx, "failed to reconnect", "side", ce.side, "error", err.Error())
				}
			case core.IsFatal(err):
				p.logger.ErrorContext(ctx, "finality relay failed", err, "best_imported", p.lastImported)
				return err
			default:
				p.logger.WarnContext(ctx, "finality relay iteration failed", "error", err.Error())
			}
		}
		if err := p.wait(ctx); err != nil {
			return err
		}
	}
}

// wait sleeps until the next tick while collecting proofs from the source stream.
func (p *Pipeline) wait(ctx context.Context) error {
	timer := time.NewTimer(p.params.Tick)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case proof, ok := <-p.proofs:
			if !ok {
				p.unsubscribe()
				continue
			}
			p.recent.Add(proof)
		}
	}
}

// subscribe opens a finality proofs stream that lives until unsubscribe.
func (p *Pipeline) subscribe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	proofs, err := p.source.FinalityProofs(ctx)
	if err != nil {
		cancel()
		return err
	}
	p.proofs, p.stopProofs = proofs, cancel
	return nil
}

func (p *Pipeline) unsubscribe() {
	if p.stopProofs != nil {
		p.stopProofs()
		p.stopProofs = nil
	}
	p.proofs = nil
}

func (p *Pipeline) metricOption(attrs ...attribute.KeyValue) api.MeasurementOption {
	return api.WithAttributes(append([]attribute.KeyValue{
		metrics.AttributeKeySource.String(p.sourceName),
		metrics.AttributeKeyTarget.String(p.targetName),
	}, attrs...)...)
}

func (p *Pipeline) iterate(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "Pipeline.iterate", core.WithBridgeAttributes(p.sourceName, p.targetName), core.WithPackage(p))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if p.proofs == nil {
		if err := p.subscribe(ctx); err != nil {
			return p.sourceError(errors.Wrap(err, "failed to subscribe to finality proofs"))
		}
	}

	sourceBest, err := p.source.BestFinalizedBlockNumber(ctx)
	if err != nil {
		return p.sourceError(errors.Wrap(err, "failed to read best finalized source header"))
	}
	targetBest, err := p.target.BestFinalizedSourceBlockNumber(ctx)
	if err != nil {
		return p.targetError(errors.Wrap(err, "failed to read best source header at target"))
	}
	span.SetAttributes(
		attribute.Int64("source_best", int64(sourceBest)),
		attribute.Int64("target_best", int64(targetBest)),
	)
	metrics.FinalityBestBlockGauge.Set(int64(sourceBest), p.gaugeAttributes("source")...)
	metrics.FinalityBestBlockGauge.Set(int64(targetBest), p.gaugeAttributes("target")...)

	p.recent.Prune(targetBest)
	p.recordImported(ctx, targetBest)

	if p.submitted != nil {
		if targetBest >= p.submitted.number {
			p.logger.InfoContext(ctx, "header imported by target", "number", p.submitted.number)
			p.submitted = nil
		} else if elapsed := p.now().Sub(p.submitted.at); elapsed > p.params.StallTimeout {
			return errors.Wrapf(core.ErrStalled,
				"target has not imported header %d within %s, best imported is %d",
				p.submitted.number, p.params.StallTimeout, targetBest)
		} else {
			return nil
		}
	}

	if sourceBest <= targetBest {
		return nil
	}

	header, justification, err := p.selectHeader(ctx, targetBest, sourceBest)
	if err != nil {
		return p.sourceError(err)
	}
	if header == nil {
		return nil
	}
	return p.submit(ctx, header, justification)
}

func (p *Pipeline) gaugeAttributes(at string) []attribute.KeyValue {
	return []attribute.KeyValue{
		metrics.AttributeKeySource.String(p.sourceName),
		metrics.AttributeKeyTarget.String(p.targetName),
		metrics.AttributeKeyAt.String(at),
	}
}

func (p *Pipeline) recordImported(ctx context.Context, number core.BlockNumber) {
	if number <= p.lastImported {
		return
	}
	p.lastImported = number
	if p.progress == nil {
		return
	}
	if err := p.progress.SaveFinalityProgress(p.sourceName, p.targetName, number); err != nil {
		p.logger.WarnContext(ctx, "failed to save finality progress", "number", number, "error", err.Error())
	}
}

// selectHeader picks the header to submit among (targetBest, sourceBest].
// The first mandatory header is always selected. Otherwise the newest header
// with a justification wins, unless only mandatory headers are relayed.
func (p *Pipeline) selectHeader(ctx context.Context, targetBest, sourceBest core.BlockNumber) (*grandpa.Header, *grandpa.Justification, error) {
	var (
		selected     *grandpa.Header
		selectedJust *grandpa.Justification
		unjustified  = make(map[core.BlockNumber]*grandpa.Header)
	)
	for n := targetBest + 1; n <= sourceBest && n > targetBest; n++ {
		header, j, err := p.source.HeaderAndFinalityProof(ctx, n)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to read source header %d", n)
		}
		if header.IsMandatory() {
			if j == nil {
				return nil, nil, errors.Newf("mandatory source header %d has no justification yet", n)
			}
			p.logger.InfoContext(ctx, "selected mandatory header", "number", n)
			return header, j, nil
		}
		if p.params.OnlyMandatoryHeaders {
			continue
		}
		if j != nil {
			selected, selectedJust = header, j
			clear(unjustified)
		} else {
			unjustified[n] = header
		}
	}
	if p.params.OnlyMandatoryHeaders {
		return nil, nil, nil
	}

	from := targetBest
	if selected != nil {
		from = selected.Number
	}
	if proof, ok := p.recent.Newest(from, sourceBest, func(fp FinalityProof) bool {
		h, ok := unjustified[fp.Number()]
		return ok && h.Hash() == fp.Justification.Commit.TargetHash
	}); ok {
		selected, selectedJust = unjustified[proof.Number()], proof.Justification
	}
	return selected, selectedJust, nil
}

func (p *Pipeline) submit(ctx context.Context, header *grandpa.Header, justification *grandpa.Justification) error {
	ctx, span := tracer.Start(ctx, "Pipeline.submit", trace.WithAttributes(core.HeaderAttributes("header", header.ID())...))
	defer span.End()

	// an in-flight submission is not aborted by cancellation
	err := p.target.SubmitFinalityProof(context.WithoutCancel(ctx), header, justification)
	switch {
	case err == nil:
		p.logger.InfoContext(ctx, "submitted finality proof", "number", header.Number, "hash", header.Hash().String())
	case errors.Is(err, core.ErrAlreadyIncluded):
		p.logger.InfoContext(ctx, "finality proof is already included", "number", header.Number)
	default:
		span.SetStatus(codes.Error, err.Error())
		return p.targetError(errors.Wrapf(err, "failed to submit finality proof of header %d", header.Number))
	}
	metrics.SubmittedHeadersCounter.Add(ctx, 1, p.metricOption())
	p.submitted = &submission{number: header.Number, at: p.now()}
	return nil
}
