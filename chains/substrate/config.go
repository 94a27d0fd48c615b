package substrate

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/datachainlab/grandpa-relayer/core"
)

// ConfigType is the "@type" of substrate chain configs.
const ConfigType = "/relayer.chains.substrate.config.ChainConfig"

const (
	defaultBlockInterval      = 6 * time.Second
	defaultTimeout            = 30 * time.Second
	defaultMaxExtrinsicSize   = 3_932_160
	defaultMaxExtrinsicWeight = 1_500_000_000_000
	defaultHeaderCacheSize    = 1024
)

var validate = validator.New()

// ChainConfig configures a connection to a Substrate node.
type ChainConfig struct {
	// Name is the chain name used in runtime API method names.
	Name    string `json:"name" yaml:"name" validate:"required,alphanum"`
	RPCAddr string `json:"rpc_addr" yaml:"rpc_addr" validate:"required,uri"`

	BlockInterval      string `json:"block_interval,omitempty" yaml:"block_interval,omitempty"`
	Timeout            string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxExtrinsicSize   uint32 `json:"max_extrinsic_size,omitempty" yaml:"max_extrinsic_size,omitempty"`
	MaxExtrinsicWeight uint64 `json:"max_extrinsic_weight,omitempty" yaml:"max_extrinsic_weight,omitempty"`
	HeaderCacheSize    int    `json:"header_cache_size,omitempty" yaml:"header_cache_size,omitempty" validate:"min=0"`
	Tip                uint64 `json:"tip,omitempty" yaml:"tip,omitempty"`
}

var _ core.ChainConfig = (*ChainConfig)(nil)

func (c ChainConfig) Build() (core.Chain, error) {
	return NewChain(c)
}

func (c ChainConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid substrate chain config")
	}
	if _, err := parseDuration(c.BlockInterval, defaultBlockInterval); err != nil {
		return errors.Wrap(err, "invalid block_interval")
	}
	if _, err := parseDuration(c.Timeout, defaultTimeout); err != nil {
		return errors.Wrap(err, "invalid timeout")
	}
	return nil
}

func (c ChainConfig) withDefaults() ChainConfig {
	if c.MaxExtrinsicSize == 0 {
		c.MaxExtrinsicSize = defaultMaxExtrinsicSize
	}
	if c.MaxExtrinsicWeight == 0 {
		c.MaxExtrinsicWeight = defaultMaxExtrinsicWeight
	}
	if c.HeaderCacheSize == 0 {
		c.HeaderCacheSize = defaultHeaderCacheSize
	}
	return c
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
