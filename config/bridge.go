package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/holiman/uint256"

	"github.com/datachainlab/grandpa-relayer/messages"
)

// BridgeConfig describes a bridge between two chains. Headers are relayed in
// both directions, messages on every configured lane.
type BridgeConfig struct {
	Name    string        `json:"name" yaml:"name" validate:"required"`
	Source  string        `json:"source" yaml:"source" validate:"required"`
	Target  string        `json:"target" yaml:"target" validate:"required,nefield=Source"`
	Headers HeadersConfig `json:"headers" yaml:"headers"`
	Lanes   []LaneConfig  `json:"lanes,omitempty" yaml:"lanes,omitempty" validate:"dive"`
	Guards  GuardsConfig  `json:"guards" yaml:"guards"`
}

type HeadersConfig struct {
	OnlyMandatoryHeaders      bool   `json:"only_mandatory_headers" yaml:"only_mandatory_headers"`
	RecentFinalityProofsLimit int    `json:"recent_finality_proofs_limit,omitempty" yaml:"recent_finality_proofs_limit,omitempty" validate:"min=0"`
	StallTimeout              string `json:"stall_timeout,omitempty" yaml:"stall_timeout,omitempty"`
	ReconnectDelay            string `json:"reconnect_delay,omitempty" yaml:"reconnect_delay,omitempty"`
}

// LaneConfig configures the relay of one lane. A zero
// max_messages_size_in_single_batch is a third of the maximal extrinsic
// size of the target chain.
type LaneConfig struct {
	Lane messages.LaneID `json:"lane" yaml:"lane"`
	// Reverse relays messages from the target chain of the bridge to its source.
	Reverse        bool                 `json:"reverse,omitempty" yaml:"reverse,omitempty"`
	RelayerMode    string               `json:"relayer_mode,omitempty" yaml:"relayer_mode,omitempty" validate:"omitempty,oneof=altruistic rational"`
	CostPerMessage string               `json:"cost_per_message,omitempty" yaml:"cost_per_message,omitempty"`
	CostPerWeight  string               `json:"cost_per_weight,omitempty" yaml:"cost_per_weight,omitempty"`
	Limits         messages.BatchLimits `json:"limits" yaml:"limits"`
	StallTimeout   string               `json:"stall_timeout,omitempty" yaml:"stall_timeout,omitempty"`
}

type GuardsConfig struct {
	AbortOnSpecVersionChange     bool   `json:"abort_on_spec_version_change,omitempty" yaml:"abort_on_spec_version_change,omitempty"`
	MaximalBalanceDecreasePerDay string `json:"maximal_balance_decrease_per_day,omitempty" yaml:"maximal_balance_decrease_per_day,omitempty"`
}

const (
	defaultRecentFinalityProofsLimit = 4096
	defaultReconnectDelay            = 10 * time.Second
)

var DefaultLaneLimits = messages.BatchLimits{
	MaxMessages:            32,
	MaxWeight:              500_000,
	MaxSize:                512 * 1024,
	MaxUnrewardedEntries:   8,
	MaxUnconfirmedAtTarget: 128,
}

func (b *BridgeConfig) Validate() error {
	if _, err := b.Headers.StallTimeoutDuration(); err != nil {
		return errors.Wrapf(err, "bridge %s", b.Name)
	}
	if _, err := b.Headers.ReconnectDelayDuration(); err != nil {
		return errors.Wrapf(err, "bridge %s", b.Name)
	}
	if _, err := b.Guards.MaxBalanceDecrease(); err != nil {
		return errors.Wrapf(err, "bridge %s", b.Name)
	}
	seen := make(map[messages.LaneID]map[bool]struct{})
	for _, l := range b.Lanes {
		if seen[l.Lane] == nil {
			seen[l.Lane] = make(map[bool]struct{})
		}
		if _, ok := seen[l.Lane][l.Reverse]; ok {
			return errors.Newf("bridge %s: duplicate lane %s", b.Name, l.Lane)
		}
		seen[l.Lane][l.Reverse] = struct{}{}
		if err := l.Validate(); err != nil {
			return errors.Wrapf(err, "bridge %s: lane %s", b.Name, l.Lane)
		}
	}
	return nil
}

// Lane returns the lane config with the given id and direction.
func (b *BridgeConfig) Lane(id messages.LaneID, reverse bool) (*LaneConfig, error) {
	for i := range b.Lanes {
		if b.Lanes[i].Lane == id && b.Lanes[i].Reverse == reverse {
			return &b.Lanes[i], nil
		}
	}
	return nil, errors.Newf("lane %s is not configured on bridge %s", id, b.Name)
}

// Endpoints returns the chains messages of l are relayed from and to.
func (b *BridgeConfig) Endpoints(l *LaneConfig) (source, target string) {
	if l.Reverse {
		return b.Target, b.Source
	}
	return b.Source, b.Target
}

func (h HeadersConfig) StallTimeoutDuration() (time.Duration, error) {
	return parseDuration(h.StallTimeout, 0)
}

func (h HeadersConfig) ReconnectDelayDuration() (time.Duration, error) {
	return parseDuration(h.ReconnectDelay, defaultReconnectDelay)
}

func (h HeadersConfig) ProofsLimit() int {
	if h.RecentFinalityProofsLimit == 0 {
		return defaultRecentFinalityProofsLimit
	}
	return h.RecentFinalityProofsLimit
}

func (l LaneConfig) Validate() error {
	limits := l.Limits
	if limits.MaxSize == 0 {
		// filled in from the target chain
		limits.MaxSize = 1
	}
	if err := limits.Validate(); err != nil {
		return err
	}
	if _, err := l.Strategy(); err != nil {
		return err
	}
	_, err := l.StallTimeoutDuration()
	return err
}

func (l LaneConfig) StallTimeoutDuration() (time.Duration, error) {
	return parseDuration(l.StallTimeout, 0)
}

// Strategy builds the delivery strategy of the lane.
func (l LaneConfig) Strategy() (messages.Strategy, error) {
	mode, err := messages.ParseRelayerMode(l.RelayerMode)
	if err != nil {
		return nil, err
	}
	if mode == messages.RelayerModeAltruistic {
		return messages.NewAltruisticStrategy(), nil
	}
	perMessage, err := parseAmount(l.CostPerMessage)
	if err != nil {
		return nil, errors.Wrap(err, "invalid cost_per_message")
	}
	perWeight, err := parseAmount(l.CostPerWeight)
	if err != nil {
		return nil, errors.Wrap(err, "invalid cost_per_weight")
	}
	return messages.NewRationalStrategy(perMessage, perWeight), nil
}

// MaxBalanceDecrease returns nil if the balance guard is disabled.
func (g GuardsConfig) MaxBalanceDecrease() (*uint256.Int, error) {
	if g.MaximalBalanceDecreasePerDay == "" {
		return nil, nil
	}
	v, err := parseAmount(g.MaximalBalanceDecreasePerDay)
	return v, errors.Wrap(err, "invalid maximal_balance_decrease_per_day")
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(s)
}
