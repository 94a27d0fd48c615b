package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/datachainlab/grandpa-relayer/chains/mock"
	mockmodule "github.com/datachainlab/grandpa-relayer/chains/mock/module"
	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/messages"
	"github.com/datachainlab/grandpa-relayer/signer"
)

const testConfig = `
global:
  timeout: 5s
  logger:
    level: DEBUG
    format: text
    output: stderr
chains:
  - chain:
      "@type": /relayer.chains.mock.config.ChainConfig
      name: Millau
      block_interval: 10ms
    signer:
      type: ed25519
      secret: "0x0101010101010101010101010101010101010101010101010101010101010101"
    transactions_mortality: 64
  - chain:
      "@type": /relayer.chains.mock.config.ChainConfig
      name: Rialto
    signer:
      type: sr25519
      secret: //Alice
bridges:
  - name: millau-rialto
    source: Millau
    target: Rialto
    headers:
      only_mandatory_headers: true
      stall_timeout: 2m
    lanes:
      - lane: "0x00000000"
        relayer_mode: rational
        cost_per_message: "100"
        limits:
          max_messages_in_single_batch: 8
          max_messages_weight_in_single_batch: 1000
          max_messages_size_in_single_batch: 4096
          max_unrewarded_relayer_entries_at_target: 4
          max_unconfirmed_nonces_at_target: 16
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	timeout, err := cfg.Global.TimeoutDuration()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, timeout)
	require.Equal(t, "DEBUG", cfg.Global.Logger.Level)
	require.Len(t, cfg.Chains, 2)
	require.EqualValues(t, 64, *cfg.Chains[0].Mortality)
	require.Nil(t, cfg.Chains[1].Mortality)

	b, err := cfg.GetBridge("millau-rialto")
	require.NoError(t, err)
	require.True(t, b.Headers.OnlyMandatoryHeaders)
	stall, err := b.Headers.StallTimeoutDuration()
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, stall)
	require.Equal(t, 4096, b.Headers.ProofsLimit())

	lane, err := b.Lane(messages.LaneID{}, false)
	require.NoError(t, err)
	require.EqualValues(t, 8, lane.Limits.MaxMessages)
	strategy, err := lane.Strategy()
	require.NoError(t, err)
	require.Equal(t, messages.RelayerModeRational, strategy.(*messages.MixStrategy).Mode())
	source, target := b.Endpoints(lane)
	require.Equal(t, "Millau", source)
	require.Equal(t, "Rialto", target)

	_, err = b.Lane(messages.LaneID{}, true)
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GRLY_GLOBAL_TIMEOUT", "30s")
	cfg, err := config.Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	require.Equal(t, "30s", cfg.Global.Timeout)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"logger level": `
global:
  timeout: 5s
  logger: {level: TRACE, format: text, output: stderr}
`,
		"timeout": `
global:
  timeout: soon
  logger: {level: INFO, format: text, output: stderr}
`,
		"same endpoints": `
global:
  timeout: 5s
  logger: {level: INFO, format: text, output: stderr}
bridges:
  - {name: b, source: Millau, target: Millau}
`,
		"lane limits": `
global:
  timeout: 5s
  logger: {level: INFO, format: text, output: stderr}
bridges:
  - name: b
    source: Millau
    target: Rialto
    lanes:
      - lane: "0x00000000"
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestInitChains(t *testing.T) {
	ctx := config.NewContext(mockmodule.Module{})
	cfg, err := config.Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.InitChains(ctx.Registry))
	require.Equal(t, []string{"Millau", "Rialto"}, cfg.ChainNames())

	millau, err := cfg.GetChain("Millau")
	require.NoError(t, err)
	require.Equal(t, "Millau", millau.Name())
	require.Equal(t, 10*time.Millisecond, millau.AverageBlockInterval())
	require.NotNil(t, millau.Signer)
	_, err = cfg.GetChain("Unknown")
	require.Error(t, err)

	cfg.Bridges[0].Target = "Unknown"
	require.Error(t, cfg.InitChains(ctx.Registry))
}

func TestAddChainAndBridge(t *testing.T) {
	ctx := config.NewContext(mockmodule.Module{})
	path := filepath.Join(t.TempDir(), "config", "config.yaml")
	cfg := config.DefaultConfig(path)
	s := signer.Config{Type: signer.TypeSr25519, Secret: "//Alice"}

	require.NoError(t, cfg.AddChain(ctx.Registry, &mock.ChainConfig{Name: "Millau"}, s, nil))
	require.NoError(t, cfg.AddChain(ctx.Registry, &mock.ChainConfig{Name: "Rialto"}, s, nil))
	require.Error(t, cfg.AddChain(ctx.Registry, &mock.ChainConfig{Name: "Rialto"}, s, nil))

	bridge := config.BridgeConfig{
		Name:   "millau-rialto",
		Source: "Millau",
		Target: "Rialto",
		Lanes:  []config.LaneConfig{{Lane: messages.LaneID{0, 0, 0, 1}, Limits: config.DefaultLaneLimits}},
	}
	require.NoError(t, cfg.AddBridge(bridge))
	require.Error(t, cfg.AddBridge(bridge))
	require.Error(t, cfg.AddBridge(config.BridgeConfig{Name: "other", Source: "Millau", Target: "Unknown"}))

	require.NoError(t, cfg.Save())
	loaded, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Chains, 2)
	require.Len(t, loaded.Bridges, 1)
	require.Equal(t, messages.LaneID{0, 0, 0, 1}, loaded.Bridges[0].Lanes[0].Lane)
	require.NoError(t, loaded.InitChains(ctx.Registry))
	require.Equal(t, []string{"Millau", "Rialto"}, loaded.ChainNames())
}
