package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v2"

	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/otelcore"
	"github.com/datachainlab/grandpa-relayer/signer"
)

const envPrefix = "GRLY"

var (
	validate = validator.New()
	tracer   = otel.Tracer("github.com/datachainlab/grandpa-relayer/chains")
)

type Config struct {
	Global  GlobalConfig   `json:"global" yaml:"global"`
	Chains  []ChainEntry   `json:"chains" yaml:"chains" validate:"dive"`
	Bridges []BridgeConfig `json:"bridges" yaml:"bridges" validate:"dive"`

	// ConfigPath is the file the config was loaded from.
	ConfigPath string `json:"-" yaml:"-"`

	// cache
	chains map[string]*Chain
	order  []string
}

type GlobalConfig struct {
	Timeout       string       `json:"timeout" yaml:"timeout"`
	Logger        LoggerConfig `json:"logger" yaml:"logger"`
	CheckpointDir string       `json:"checkpoint_dir,omitempty" yaml:"checkpoint_dir,omitempty"`
	GuardInterval string       `json:"guard_interval,omitempty" yaml:"guard_interval,omitempty"`
}

type LoggerConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=DEBUG INFO WARN ERROR"`
	Format string `json:"format" yaml:"format" validate:"oneof=text json"`
	Output string `json:"output" yaml:"output" validate:"oneof=stdout stderr"`
}

// ChainEntry is a chain config tagged with its "@type" and the key used to
// sign transactions on the chain.
type ChainEntry struct {
	Chain  json.RawMessage `json:"chain" yaml:"chain" validate:"required"`
	Signer signer.Config   `json:"signer" yaml:"signer"`
	// Mortality is the number of blocks a transaction stays valid for.
	// Transactions are immortal if it is unset.
	Mortality *uint32 `json:"transactions_mortality,omitempty" yaml:"transactions_mortality,omitempty" validate:"omitempty,min=4"`
}

// Chain is a configured chain together with its relayer key.
type Chain struct {
	core.Chain
	Signer    core.Signer
	Mortality *uint32
}

func DefaultConfig(configPath string) Config {
	return Config{
		Global:     newDefaultGlobalConfig(),
		Chains:     []ChainEntry{},
		Bridges:    []BridgeConfig{},
		ConfigPath: configPath,
	}
}

// newDefaultGlobalConfig returns a global config with defaults set
func newDefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Timeout:       "10s",
		Logger:        LoggerConfig{Level: "INFO", Format: "json", Output: "stderr"},
		GuardInterval: "1m",
	}
}

// Load reads the config file at path. Values can be overridden by
// environment variables such as GRLY_GLOBAL_TIMEOUT.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	settings := v.AllSettings()
	bz, err := json.Marshal(settings)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert config")
	}
	cfg := DefaultConfig(path)
	if err := json.Unmarshal(bz, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config %s", path)
	}
	cfg.ConfigPath = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config back to ConfigPath as YAML, or as JSON if the file
// has a .json extension.
func (c *Config) Save() error {
	out, err := c.Marshal(filepath.Ext(c.ConfigPath) == ".json")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.ConfigPath), 0o700); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	return errors.Wrap(os.WriteFile(c.ConfigPath, out, 0o600), "failed to write config")
}

// Marshal encodes the config as YAML or JSON.
func (c *Config) Marshal(asJSON bool) ([]byte, error) {
	bz, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	if asJSON {
		return bz, nil
	}
	// JSON is a subset of YAML
	var generic interface{}
	if err := yaml.Unmarshal(bz, &generic); err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return yaml.Marshal(generic)
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if _, err := c.Global.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Global.GuardIntervalDuration(); err != nil {
		return errors.Wrap(err, "invalid global.guard_interval")
	}
	names := make(map[string]struct{}, len(c.Bridges))
	for i := range c.Bridges {
		b := &c.Bridges[i]
		if _, ok := names[b.Name]; ok {
			return errors.Newf("duplicate bridge %s", b.Name)
		}
		names[b.Name] = struct{}{}
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (g GlobalConfig) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(g.Timeout)
	return d, errors.Wrapf(err, "invalid global.timeout %q", g.Timeout)
}

func (g GlobalConfig) GuardIntervalDuration() (time.Duration, error) {
	return parseDuration(g.GuardInterval, time.Minute)
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", s)
	}
	return d, nil
}

// InitChains builds every configured chain and its signer. Chains are not
// connected until Init is called on them.
func (c *Config) InitChains(registry *core.ChainConfigRegistry) error {
	chains := make(map[string]*Chain, len(c.Chains))
	order := make([]string, 0, len(c.Chains))
	for i, entry := range c.Chains {
		chain, err := buildChain(registry, entry)
		if err != nil {
			return errors.Wrapf(err, "chains[%d]", i)
		}
		if _, ok := chains[chain.Name()]; ok {
			return errors.Newf("duplicate chain %s", chain.Name())
		}
		chains[chain.Name()] = chain
		order = append(order, chain.Name())
	}
	for _, b := range c.Bridges {
		for _, name := range []string{b.Source, b.Target} {
			if _, ok := chains[name]; !ok {
				return errors.Newf("bridge %s refers to unknown chain %s", b.Name, name)
			}
		}
	}
	c.chains = chains
	c.order = order
	return nil
}

func buildChain(registry *core.ChainConfigRegistry, entry ChainEntry) (*Chain, error) {
	cfg, err := registry.Unmarshal(entry.Chain)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	chain, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	chain = otelcore.NewChain(chain, tracer)
	s, err := entry.Signer.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "signer of %s", chain.Name())
	}
	return &Chain{Chain: chain, Signer: s, Mortality: entry.Mortality}, nil
}

// GetChain returns a chain built by InitChains.
func (c *Config) GetChain(name string) (*Chain, error) {
	chain, ok := c.chains[name]
	if !ok {
		return nil, errors.Newf("chain %s is not configured", name)
	}
	return chain, nil
}

// ChainNames returns the names of the built chains in config order.
func (c *Config) ChainNames() []string {
	return append([]string(nil), c.order...)
}

// AddChain adds a chain config and builds the chain.
func (c *Config) AddChain(registry *core.ChainConfigRegistry, cfg core.ChainConfig, s signer.Config, mortality *uint32) error {
	raw, err := registry.Marshal(cfg)
	if err != nil {
		return err
	}
	entry := ChainEntry{Chain: raw, Signer: s, Mortality: mortality}
	chain, err := buildChain(registry, entry)
	if err != nil {
		return err
	}
	if c.chains == nil {
		c.chains = make(map[string]*Chain)
	}
	if _, ok := c.chains[chain.Name()]; ok {
		return errors.Newf("chain %s already exists in config", chain.Name())
	}
	c.Chains = append(c.Chains, entry)
	c.chains[chain.Name()] = chain
	c.order = append(c.order, chain.Name())
	return nil
}

// AddBridge adds a bridge between two configured chains.
func (c *Config) AddBridge(b BridgeConfig) error {
	if _, err := c.GetBridge(b.Name); err == nil {
		return errors.Newf("bridge %s already exists in config", b.Name)
	}
	if err := validate.Struct(b); err != nil {
		return errors.Wrap(err, "invalid bridge config")
	}
	if err := b.Validate(); err != nil {
		return err
	}
	for _, name := range []string{b.Source, b.Target} {
		if _, err := c.GetChain(name); err != nil {
			return err
		}
	}
	c.Bridges = append(c.Bridges, b)
	return nil
}

func (c *Config) GetBridge(name string) (*BridgeConfig, error) {
	for i := range c.Bridges {
		if c.Bridges[i].Name == name {
			return &c.Bridges[i], nil
		}
	}
	return nil, errors.Newf("bridge %s is not configured", name)
}
