package mock

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/datachainlab/grandpa-relayer/core"
)

// ConfigType is the "@type" of mock chain configs.
const ConfigType = "/relayer.chains.mock.config.ChainConfig"

const (
	defaultAuthorities          = 4
	defaultBlockInterval        = time.Second
	defaultMaxExtrinsicSize     = 1 << 20
	defaultMaxExtrinsicWeight   = 1_000_000
	defaultMaxUnrewardedEntries = 8
	defaultMaxUnconfirmed       = 128
	defaultInitialBalance       = 1_000_000_000
)

var validate = validator.New()

// OutboundLaneConfig makes the chain send messages over a lane in every
// produced block.
type OutboundLaneConfig struct {
	Lane             string `json:"lane" yaml:"lane" validate:"required"`
	Target           string `json:"target" yaml:"target" validate:"required,alphanum"`
	MessagesPerBlock uint32 `json:"messages_per_block" yaml:"messages_per_block"`
	DispatchWeight   uint64 `json:"dispatch_weight" yaml:"dispatch_weight"`
	Fee              uint64 `json:"fee" yaml:"fee"`
}

// ChainConfig configures an in-memory chain.
type ChainConfig struct {
	Name                        string               `json:"name" yaml:"name" validate:"required,alphanum"`
	Seed                        string               `json:"seed" yaml:"seed"`
	Authorities                 int                  `json:"authorities" yaml:"authorities" validate:"omitempty,min=1,max=64"`
	BlockInterval               string               `json:"block_interval,omitempty" yaml:"block_interval,omitempty"`
	JustificationPeriod         uint32               `json:"justification_period,omitempty" yaml:"justification_period,omitempty"`
	MaxExtrinsicSize            uint32               `json:"max_extrinsic_size,omitempty" yaml:"max_extrinsic_size,omitempty"`
	MaxExtrinsicWeight          uint64               `json:"max_extrinsic_weight,omitempty" yaml:"max_extrinsic_weight,omitempty"`
	MaxUnrewardedRelayerEntries uint64               `json:"max_unrewarded_relayer_entries,omitempty" yaml:"max_unrewarded_relayer_entries,omitempty"`
	MaxUnconfirmedMessages      uint64               `json:"max_unconfirmed_messages,omitempty" yaml:"max_unconfirmed_messages,omitempty"`
	SpecVersion                 uint32               `json:"spec_version,omitempty" yaml:"spec_version,omitempty"`
	TransactionFee              uint64               `json:"transaction_fee,omitempty" yaml:"transaction_fee,omitempty"`
	InitialBalance              uint64               `json:"initial_balance,omitempty" yaml:"initial_balance,omitempty"`
	ProduceBlocks               bool                 `json:"produce_blocks,omitempty" yaml:"produce_blocks,omitempty"`
	OutboundLanes               []OutboundLaneConfig `json:"outbound_lanes,omitempty" yaml:"outbound_lanes,omitempty" validate:"dive"`
}

var _ core.ChainConfig = (*ChainConfig)(nil)

func (c ChainConfig) Build() (core.Chain, error) {
	return NewChain(c)
}

func (c ChainConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrapf(err, "invalid mock chain config %s", c.Name)
	}
	if c.BlockInterval != "" {
		if _, err := time.ParseDuration(c.BlockInterval); err != nil {
			return errors.Wrap(err, "invalid block_interval")
		}
	}
	return nil
}

func (c ChainConfig) withDefaults() ChainConfig {
	if c.Authorities == 0 {
		c.Authorities = defaultAuthorities
	}
	if c.Seed == "" {
		c.Seed = c.Name
	}
	if c.JustificationPeriod == 0 {
		c.JustificationPeriod = 1
	}
	if c.MaxExtrinsicSize == 0 {
		c.MaxExtrinsicSize = defaultMaxExtrinsicSize
	}
	if c.MaxExtrinsicWeight == 0 {
		c.MaxExtrinsicWeight = defaultMaxExtrinsicWeight
	}
	if c.MaxUnrewardedRelayerEntries == 0 {
		c.MaxUnrewardedRelayerEntries = defaultMaxUnrewardedEntries
	}
	if c.MaxUnconfirmedMessages == 0 {
		c.MaxUnconfirmedMessages = defaultMaxUnconfirmed
	}
	if c.SpecVersion == 0 {
		c.SpecVersion = 1
	}
	if c.InitialBalance == 0 {
		c.InitialBalance = defaultInitialBalance
	}
	return c
}

func (c ChainConfig) blockInterval() time.Duration {
	if d, err := time.ParseDuration(c.BlockInterval); err == nil && d > 0 {
		return d
	}
	return defaultBlockInterval
}
