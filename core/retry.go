package core

import (
	"context"
	"time"

	retry "github.com/avast/retry-go"

	"github.com/datachainlab/grandpa-relayer/log"
)

var (
	rtyAttNum = uint(5)
	rtyAtt    = retry.Attempts(rtyAttNum)
	rtyDel    = retry.Delay(time.Millisecond * 400)
	rtyErr    = retry.LastErrorOnly(true)
)

// Reconnector is implemented by every client that can re-establish its
// connection to a node.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// Retry runs fn until it succeeds, returns an error that is not a connection
// error or the attempts are exhausted.
func Retry(ctx context.Context, logger *log.RelayLogger, op string, fn func() error) error {
	return retry.Do(fn, rtyAtt, rtyDel, rtyErr, retry.Context(ctx),
		retry.RetryIf(IsConnectionError),
		retry.OnRetry(func(n uint, err error) {
			logger.InfoContext(ctx,
				"retrying",
				"op", op,
				"try", n+1,
				"try_limit", rtyAttNum,
				"error", err.Error(),
			)
		}))
}

// Reconnect waits delay and then reconnects r, retrying on failure.
func Reconnect(ctx context.Context, logger *log.RelayLogger, r Reconnector, delay time.Duration) error {
	if err := Wait(ctx, delay); err != nil {
		return err
	}
	return retry.Do(func() error {
		return r.Reconnect(ctx)
	}, rtyAtt, retry.Delay(delay), rtyErr, retry.Context(ctx), retry.OnRetry(func(n uint, err error) {
		logger.WarnContext(ctx,
			"failed to reconnect",
			"try", n+1,
			"try_limit", rtyAttNum,
			"error", err.Error(),
		)
	}))
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
