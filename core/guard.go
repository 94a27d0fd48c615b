package core

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/datachainlab/grandpa-relayer/log"
)

// Guard is a safety check run periodically next to a relay loop. A Guard
// returns an error marked with ErrGuardViolation when the relay must stop.
type Guard interface {
	Name() string
	Check(ctx context.Context) error
}

// RunGuards checks every guard each interval until ctx is done or a guard is
// violated. Other check failures are logged and retried on the next tick.
func RunGuards(ctx context.Context, interval time.Duration, guards ...Guard) error {
	logger := log.GetLogger().WithModule("core.guard")
	eg, ctx := errgroup.WithContext(ctx)
	for _, g := range guards {
		g := g
		eg.Go(func() error {
			for {
				if err := g.Check(ctx); err != nil {
					if errors.Is(err, ErrGuardViolation) {
						logger.ErrorContext(ctx, "relay guard violated", err, "guard", g.Name())
						return err
					}
					logger.WarnContext(ctx, "relay guard check failed", "guard", g.Name(), "error", err.Error())
				}
				if err := Wait(ctx, interval); err != nil {
					return err
				}
			}
		})
	}
	return eg.Wait()
}

// SpecVersionGuard aborts the relay when the runtime of chain is upgraded.
type SpecVersionGuard struct {
	chain    Chain
	expected uint32
}

func NewSpecVersionGuard(chain Chain, expected uint32) *SpecVersionGuard {
	return &SpecVersionGuard{chain: chain, expected: expected}
}

func (g *SpecVersionGuard) Name() string {
	return "spec-version:" + g.chain.Name()
}

func (g *SpecVersionGuard) Check(ctx context.Context) error {
	v, err := g.chain.RuntimeVersion(ctx)
	if err != nil {
		return err
	}
	if v.SpecVersion != g.expected {
		return errors.Mark(
			errors.Newf("%s runtime spec version has changed from %d to %d", g.chain.Name(), g.expected, v.SpecVersion),
			ErrGuardViolation,
		)
	}
	return nil
}

const balanceWindow = 24 * time.Hour

type balanceSample struct {
	at      time.Time
	balance *uint256.Int
}

// BalanceGuard aborts the relay when the free balance of the relayer account
// decreased by more than maxDecrease within the last 24 hours.
type BalanceGuard struct {
	chain       Chain
	account     AccountID
	maxDecrease *uint256.Int
	now         func() time.Time

	mu      sync.Mutex
	samples []balanceSample
}

func NewBalanceGuard(chain Chain, account AccountID, maxDecreasePerDay *uint256.Int) *BalanceGuard {
	return &BalanceGuard{
		chain:       chain,
		account:     account,
		maxDecrease: maxDecreasePerDay,
		now:         time.Now,
	}
}

// WithClock replaces the clock of the guard.
func (g *BalanceGuard) WithClock(now func() time.Time) *BalanceGuard {
	g.now = now
	return g
}

func (g *BalanceGuard) Name() string {
	return "balance:" + g.chain.Name() + ":" + g.account.String()
}

func (g *BalanceGuard) Check(ctx context.Context) error {
	balance, err := g.chain.FreeBalance(ctx, g.account)
	if err != nil {
		return err
	}
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-balanceWindow)
	drop := 0
	for drop < len(g.samples) && g.samples[drop].at.Before(cutoff) {
		drop++
	}
	g.samples = append(g.samples[drop:], balanceSample{at: now, balance: balance})

	baseline := g.samples[0].balance
	if !baseline.Gt(balance) {
		return nil
	}
	decrease := new(uint256.Int).Sub(baseline, balance)
	if decrease.Gt(g.maxDecrease) {
		return errors.Mark(
			errors.Newf("balance of %s at %s decreased by %s within a day, the limit is %s",
				g.account, g.chain.Name(), decrease.Dec(), g.maxDecrease.Dec()),
			ErrGuardViolation,
		)
	}
	return nil
}
