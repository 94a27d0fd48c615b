package messages

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
	"github.com/datachainlab/grandpa-relayer/log"
	"github.com/datachainlab/grandpa-relayer/metrics"
)

var tracer = otel.Tracer("github.com/datachainlab/grandpa-relayer/messages")

// Params configures a lane relay loop.
type Params struct {
	Lane           LaneID
	Tick           time.Duration
	ReconnectDelay time.Duration
	// StallTimeout is the time a submitted transaction has to take effect.
	StallTimeout time.Duration
	Limits       BatchLimits
}

// ProgressStore records the nonces delivered to the target and confirmed at
// the source.
type ProgressStore interface {
	SaveLaneProgress(source, target string, lane LaneID, delivered, confirmed Nonce) error
}

type inflight struct {
	nonces NonceRange
	at     time.Time
}

// Loop relays the messages of one lane and the confirmations of their
// delivery. Each direction keeps at most one transaction in flight.
type Loop struct {
	sourceName string
	targetName string
	source     SourceClient
	target     TargetClient
	params     Params
	strategy   Strategy
	progress   ProgressStore
	now        func() time.Time
	logger     *log.RelayLogger

	delivery     *inflight
	confirmation *inflight
	// batchSize is halved when the target refuses a batch
	batchSize uint64
	delivered Nonce
	confirmed Nonce
}

func NewLoop(sourceName, targetName string, source SourceClient, target TargetClient, strategy Strategy, params Params) *Loop {
	if strategy == nil {
		strategy = NewAltruisticStrategy()
	}
	return &Loop{
		sourceName: sourceName,
		targetName: targetName,
		source:     source,
		target:     target,
		params:     params,
		strategy:   strategy,
		now:        time.Now,
		logger:     log.GetLogger().WithModule("messages").WithLane(sourceName, targetName, params.Lane.String()),
		batchSize:  params.Limits.MaxMessages,
	}
}

// WithProgressStore makes the loop record delivered and confirmed nonces.
func (l *Loop) WithProgressStore(store ProgressStore) *Loop {
	l.progress = store
	return l
}

// WithClock replaces the clock used for stall detection.
func (l *Loop) WithClock(now func() time.Time) *Loop {
	l.now = now
	return l
}

// WithLogger replaces the logger of the loop.
func (l *Loop) WithLogger(logger *log.RelayLogger) *Loop {
	l.logger = logger
	return l
}

// Delivered returns the latest nonce the loop has seen received by the target.
func (l *Loop) Delivered() Nonce {
	return l.delivered
}

// Confirmed returns the latest nonce the loop has seen confirmed at the source.
func (l *Loop) Confirmed() Nonce {
	return l.confirmed
}

type clientError struct {
	side string
	r    core.Reconnector
	err  error
}

func (e *clientError) Error() string { return e.side + ": " + e.err.Error() }
func (e *clientError) Unwrap() error { return e.err }

func (l *Loop) sourceError(err error) error {
	if core.IsConnectionError(err) {
		return &clientError{side: "source", r: l.source, err: err}
	}
	return err
}

func (l *Loop) targetError(err error) error {
	if core.IsConnectionError(err) {
		return &clientError{side: "target", r: l.target, err: err}
	}
	return err
}

// ErrMessageRefused is returned when the target refuses a batch of a single
// message, which no smaller batch can fix.
var ErrMessageRefused = errors.New("message refused by the target chain")

// isFatal reports whether the loop must stop on err. Refused batches of more
// than one message are retried with smaller batches instead.
func isFatal(err error) bool {
	return errors.IsAny(err, core.ErrStalled, core.ErrGuardViolation, ErrMessageRefused)
}

// RunWithGuards runs the loop next to the relay guards. The first fatal error
// of either stops both.
func (l *Loop) RunWithGuards(ctx context.Context, guardInterval time.Duration, guards ...core.Guard) error {
	if len(guards) == 0 {
		return l.Run(ctx)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return core.RunGuards(ctx, guardInterval, guards...)
	})
	eg.Go(func() error {
		return l.Run(ctx)
	})
	return eg.Wait()
}

// Run relays messages until ctx is done or a fatal error occurs.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.InfoContext(ctx, "starting messages relay",
		"max_messages_in_single_batch", l.params.Limits.MaxMessages,
		"max_messages_weight_in_single_batch", l.params.Limits.MaxWeight,
	)
	for {
		if err := l.iterate(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ce *clientError
			switch {
			case errors.As(err, &ce):
				l.logger.WarnContext(ctx, "connection failed, reconnecting", "side", ce.side, "error", err.Error())
				metrics.RelayLoopReconnectCounter.Add(ctx, 1, l.metricOption(attribute.String("side", ce.side)))
				if err := core.Reconnect(ctx, l.logger, ce.r, l.params.ReconnectDelay); err != nil {
					l.logger.WarnContext(ctx, "failed to reconnect", "side", ce.side, "error", err.Error())
				}
			case isFatal(err):
				l.logger.ErrorContext(ctx, "messages relay failed", err, "delivered", l.delivered, "confirmed", l.confirmed)
				return err
			default:
				l.logger.WarnContext(ctx, "messages relay iteration failed", "error", err.Error())
			}
		}
		if err := core.Wait(ctx, l.params.Tick); err != nil {
			return err
		}
	}
}

func (l *Loop) metricOption(attrs ...attribute.KeyValue) api.MeasurementOption {
	return api.WithAttributes(append(l.laneAttributes(), attrs...)...)
}

func (l *Loop) laneAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	return append([]attribute.KeyValue{
		metrics.AttributeKeySource.String(l.sourceName),
		metrics.AttributeKeyTarget.String(l.targetName),
		metrics.AttributeKeyLane.String(l.params.Lane.String()),
	}, attrs...)
}

// laneState is the view of both lane ends taken at the start of an iteration.
type laneState struct {
	source core.ClientState
	target core.ClientState
	// targetReceived is read at the best target header
	targetReceived Nonce
	// sourceConfirmed is read at the best source header
	sourceConfirmed Nonce
	relayers        UnrewardedRelayersState
}

func (l *Loop) iterate(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "Loop.iterate", core.WithBridgeAttributes(l.sourceName, l.targetName), core.WithPackage(l))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	st, err := l.readState(ctx)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.Int64("target_received", int64(st.targetReceived)),
		attribute.Int64("source_confirmed", int64(st.sourceConfirmed)),
	)
	l.recordProgress(ctx, st)

	pendingConfirmation, err := l.confirm(ctx, st)
	if err != nil {
		return err
	}
	if pendingConfirmation && l.params.Limits.NearLimit(st.relayers) {
		l.logger.DebugContext(ctx, "waiting for confirmations before delivering more messages",
			"unrewarded_relayer_entries", st.relayers.UnrewardedRelayerEntries,
			"unconfirmed_messages", st.relayers.TotalMessages,
		)
		return l.checkDeliveryStall(st)
	}
	return l.deliver(ctx, st)
}

func (l *Loop) readState(ctx context.Context) (*laneState, error) {
	var (
		st  laneState
		err error
	)
	if st.source, err = l.source.State(ctx); err != nil {
		return nil, l.sourceError(errors.Wrap(err, "failed to read source state"))
	}
	if st.target, err = l.target.State(ctx); err != nil {
		return nil, l.targetError(errors.Wrap(err, "failed to read target state"))
	}
	if st.sourceConfirmed, err = l.source.LatestConfirmedNonce(ctx, st.source.BestSelf); err != nil {
		return nil, l.sourceError(errors.Wrap(err, "failed to read latest confirmed nonce at source"))
	}
	if st.targetReceived, err = l.target.LatestReceivedNonce(ctx, st.target.BestSelf); err != nil {
		return nil, l.targetError(errors.Wrap(err, "failed to read latest received nonce at target"))
	}
	if st.relayers, err = l.target.UnrewardedRelayersState(ctx, st.target.BestSelf); err != nil {
		return nil, l.targetError(errors.Wrap(err, "failed to read unrewarded relayers state"))
	}
	return &st, nil
}

func (l *Loop) recordProgress(ctx context.Context, st *laneState) {
	metrics.LaneNonceGauge.Set(int64(st.targetReceived), l.laneAttributes(metrics.AttributeKeyKind.String("received"))...)
	metrics.LaneNonceGauge.Set(int64(st.sourceConfirmed), l.laneAttributes(metrics.AttributeKeyKind.String("confirmed"))...)
	metrics.UnrewardedRelayersGauge.Set(int64(st.relayers.UnrewardedRelayerEntries), l.laneAttributes()...)

	if st.targetReceived <= l.delivered && st.sourceConfirmed <= l.confirmed {
		return
	}
	l.delivered = max(l.delivered, st.targetReceived)
	l.confirmed = max(l.confirmed, st.sourceConfirmed)
	if l.progress == nil {
		return
	}
	if err := l.progress.SaveLaneProgress(l.sourceName, l.targetName, l.params.Lane, l.delivered, l.confirmed); err != nil {
		l.logger.WarnContext(ctx, "failed to save lane progress", "delivered", l.delivered, "confirmed", l.confirmed, "error", err.Error())
	}
}

// confirm relays the delivery confirmations the source has not seen yet. It
// reports whether a confirmation is still pending.
func (l *Loop) confirm(ctx context.Context, st *laneState) (bool, error) {
	if l.confirmation != nil {
		if st.sourceConfirmed < l.confirmation.nonces.End {
			return true, l.checkStall("confirmation", l.confirmation, st.sourceConfirmed)
		}
		l.logger.InfoContext(ctx, "delivery confirmed at source", "begin", l.confirmation.nonces.Begin, "end", l.confirmation.nonces.End)
		metrics.ConfirmedMessagesCounter.Add(ctx, int64(l.confirmation.nonces.Len()), l.metricOption())
		l.confirmation = nil
	}

	// the receiving proof must be verifiable by the source
	at := st.source.BestFinalizedPeerAtBestSelf
	received, err := l.target.LatestReceivedNonce(ctx, at)
	if err != nil {
		return false, l.targetError(errors.Wrapf(err, "failed to read received nonce at target header %d", at.Number))
	}
	if received <= st.sourceConfirmed {
		return false, nil
	}
	nonces := NonceRange{Begin: st.sourceConfirmed + 1, End: received}

	ctx, span := tracer.Start(ctx, "Loop.confirm", trace.WithAttributes(core.HeaderAttributes("at", at)...))
	defer span.End()
	span.SetAttributes(
		core.AttributeKeyNonceBegin.Int64(int64(nonces.Begin)),
		core.AttributeKeyNonceEnd.Int64(int64(nonces.End)),
	)

	proof, err := l.target.ProveMessagesReceiving(ctx, at)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return true, l.targetError(errors.Wrapf(err, "failed to prove messages receiving at target header %d", at.Number))
	}
	err = l.source.SubmitMessagesReceivingProof(context.WithoutCancel(ctx), at, proof)
	switch {
	case err == nil:
		l.logger.InfoContext(ctx, "submitted delivery confirmation", "begin", nonces.Begin, "end", nonces.End, "at", at.Number)
	case errors.Is(err, core.ErrAlreadyIncluded):
		l.logger.InfoContext(ctx, "delivery confirmation is already included", "begin", nonces.Begin, "end", nonces.End)
	default:
		span.SetStatus(codes.Error, err.Error())
		return true, l.sourceError(errors.Wrapf(err, "failed to confirm delivery of messages [%d, %d]", nonces.Begin, nonces.End))
	}
	metrics.SubmittedBatchesCounter.Add(ctx, 1, l.metricOption(metrics.AttributeKeyKind.String("confirmation")))
	l.confirmation = &inflight{nonces: nonces, at: l.now()}
	return true, nil
}

func (l *Loop) checkDeliveryStall(st *laneState) error {
	if l.delivery == nil || st.targetReceived >= l.delivery.nonces.End {
		return nil
	}
	return l.checkStall("delivery", l.delivery, st.targetReceived)
}

func (l *Loop) checkStall(kind string, tx *inflight, latest Nonce) error {
	if elapsed := l.now().Sub(tx.at); elapsed > l.params.StallTimeout {
		return errors.Wrapf(core.ErrStalled,
			"%s of messages [%d, %d] has not taken effect within %s, latest nonce is %d",
			kind, tx.nonces.Begin, tx.nonces.End, l.params.StallTimeout, latest)
	}
	return nil
}

// deliver relays the next batch of messages the target has not received.
func (l *Loop) deliver(ctx context.Context, st *laneState) error {
	if l.delivery != nil {
		if st.targetReceived < l.delivery.nonces.End {
			return l.checkStall("delivery", l.delivery, st.targetReceived)
		}
		l.logger.InfoContext(ctx, "messages received by target", "begin", l.delivery.nonces.Begin, "end", l.delivery.nonces.End)
		metrics.DeliveredMessagesCounter.Add(ctx, int64(l.delivery.nonces.Len()), l.metricOption())
		l.delivery = nil
		l.batchSize = l.params.Limits.MaxMessages
	}

	// the messages proof must be verifiable by the target
	at := st.target.BestFinalizedPeerAtBestSelf
	generated, err := l.source.LatestGeneratedNonce(ctx, at)
	if err != nil {
		return l.sourceError(errors.Wrapf(err, "failed to read generated nonce at source header %d", at.Number))
	}
	metrics.LaneNonceGauge.Set(int64(generated), l.laneAttributes(metrics.AttributeKeyKind.String("generated"))...)
	if generated <= st.targetReceived {
		return nil
	}

	candidates := NonceRange{Begin: st.targetReceived + 1, End: min(generated, st.targetReceived+Nonce(l.batchSize))}
	details, err := l.source.GeneratedMessageDetails(ctx, at, candidates)
	if err != nil {
		return l.sourceError(errors.Wrapf(err, "failed to read details of messages [%d, %d]", candidates.Begin, candidates.End))
	}
	limits := l.params.Limits
	limits.MaxMessages = l.batchSize
	n := SelectBatch(details, limits, st.relayers)
	n = min(n, l.strategy.Select(details[:n]))
	if n == 0 {
		l.logger.DebugContext(ctx, "no messages selected for delivery", "begin", candidates.Begin, "end", candidates.End)
		return nil
	}
	batch := details[:n]
	nonces := NonceRange{Begin: batch[0].Nonce, End: batch[n-1].Nonce}

	ctx, span := tracer.Start(ctx, "Loop.deliver", trace.WithAttributes(core.HeaderAttributes("at", at)...))
	defer span.End()
	span.SetAttributes(
		core.AttributeKeyNonceBegin.Int64(int64(nonces.Begin)),
		core.AttributeKeyNonceEnd.Int64(int64(nonces.End)),
	)

	proof, err := l.source.ProveMessages(ctx, at, nonces)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return l.sourceError(errors.Wrapf(err, "failed to prove messages [%d, %d]", nonces.Begin, nonces.End))
	}
	err = l.target.SubmitMessagesProof(context.WithoutCancel(ctx), at, nonces, TotalDispatchWeight(batch), proof)
	switch {
	case err == nil:
		l.logger.InfoContext(ctx, "submitted messages", "begin", nonces.Begin, "end", nonces.End, "at", at.Number)
	case errors.Is(err, core.ErrAlreadyIncluded):
		l.logger.InfoContext(ctx, "messages are already included", "begin", nonces.Begin, "end", nonces.End)
	case errors.IsAny(err, core.ErrBatchTooLarge, core.ErrProofRejected) && n == 1:
		span.SetStatus(codes.Error, err.Error())
		return errors.Mark(errors.Wrapf(err, "target refused message %d", nonces.Begin), ErrMessageRefused)
	case errors.IsAny(err, core.ErrBatchTooLarge, core.ErrProofRejected):
		span.SetStatus(codes.Error, err.Error())
		l.batchSize = max(uint64(n)/2, 1)
		return errors.Wrapf(err, "target refused messages [%d, %d], next batch has at most %d messages",
			nonces.Begin, nonces.End, l.batchSize)
	default:
		span.SetStatus(codes.Error, err.Error())
		return l.targetError(errors.Wrapf(err, "failed to deliver messages [%d, %d]", nonces.Begin, nonces.End))
	}
	metrics.SubmittedBatchesCounter.Add(ctx, 1, l.metricOption(metrics.AttributeKeyKind.String("delivery")))
	l.delivery = &inflight{nonces: nonces, at: l.now()}
	return nil
}
