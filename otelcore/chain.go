package otelcore

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
)

// Chain traces the node calls of the wrapped chain.
type Chain struct {
	core.Chain
	tracer trace.Tracer
}

func NewChain(chain core.Chain, tracer trace.Tracer) core.Chain {
	return &Chain{
		Chain:  chain,
		tracer: tracer,
	}
}

func UnwrapChain(chain core.Chain) (core.Chain, error) {
	c, ok := chain.(*Chain)
	if !ok {
		return nil, fmt.Errorf("chain type is not %T, but %T", &Chain{}, chain)
	}
	return c.Chain, nil
}

func (c *Chain) start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, append(opts, core.WithChainAttributes(c.Name()))...)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Chain) BestHeaderID(ctx context.Context) (id core.HeaderID, err error) {
	ctx, span := c.start(ctx, "Chain.BestHeaderID")
	defer func() { end(span, err) }()

	return c.Chain.BestHeaderID(ctx)
}

func (c *Chain) BestFinalizedHeaderID(ctx context.Context) (id core.HeaderID, err error) {
	ctx, span := c.start(ctx, "Chain.BestFinalizedHeaderID")
	defer func() { end(span, err) }()

	return c.Chain.BestFinalizedHeaderID(ctx)
}

func (c *Chain) HeaderAndJustification(ctx context.Context, number core.BlockNumber) (header *grandpa.Header, justification []byte, err error) {
	ctx, span := c.start(ctx, "Chain.HeaderAndJustification",
		trace.WithAttributes(core.AttributeKeyBlockNumber.Int64(int64(number))),
	)
	defer func() { end(span, err) }()

	return c.Chain.HeaderAndJustification(ctx, number)
}

// SubscribeJustifications traces the subscription request. The stream is
// bound to ctx, not to the span.
func (c *Chain) SubscribeJustifications(ctx context.Context) (ch <-chan []byte, err error) {
	_, span := c.start(ctx, "Chain.SubscribeJustifications")
	defer func() { end(span, err) }()

	return c.Chain.SubscribeJustifications(ctx)
}

func (c *Chain) CallRuntime(ctx context.Context, method string, args []byte, at *core.Hash) (result []byte, err error) {
	opts := []trace.SpanStartOption{trace.WithAttributes(AttributeKeyMethod.String(method))}
	if at != nil {
		opts = append(opts, trace.WithAttributes(core.AttributeKeyBlockHash.String(at.String())))
	}
	ctx, span := c.start(ctx, "Chain.CallRuntime", opts...)
	defer func() { end(span, err) }()

	return c.Chain.CallRuntime(ctx, method, args, at)
}

func (c *Chain) ReadProof(ctx context.Context, keys [][]byte, at core.Hash) (proof [][]byte, err error) {
	ctx, span := c.start(ctx, "Chain.ReadProof",
		trace.WithAttributes(
			core.AttributeKeyBlockHash.String(at.String()),
			AttributeKeyStorageKeys.Int(len(keys)),
		),
	)
	defer func() { end(span, err) }()

	return c.Chain.ReadProof(ctx, keys, at)
}

func (c *Chain) FreeBalance(ctx context.Context, account core.AccountID) (balance *uint256.Int, err error) {
	ctx, span := c.start(ctx, "Chain.FreeBalance")
	defer func() { end(span, err) }()

	return c.Chain.FreeBalance(ctx, account)
}

func (c *Chain) SubmitSignedTransaction(ctx context.Context, signer core.Signer, build core.TransactionBuilder) (status core.TransactionStatus, err error) {
	ctx, span := c.start(ctx, "Chain.SubmitSignedTransaction",
		trace.WithAttributes(AttributeKeySigner.String(signer.AccountID().String())),
	)
	defer func() {
		if err == nil {
			span.SetAttributes(
				AttributeKeyNonce.Int64(int64(status.Nonce)),
				AttributeKeyTxHash.String(status.TxHash.String()),
			)
		}
		end(span, err)
	}()

	return c.Chain.SubmitSignedTransaction(ctx, signer, build)
}
