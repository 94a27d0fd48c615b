package core_test

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachainlab/grandpa-relayer/core"
)

type testChainConfig struct {
	Name string `json:"name"`
	RPC  string `json:"rpc_addr"`
}

func (c *testChainConfig) Build() (core.Chain, error) { return nil, errors.New("not buildable") }

func (c *testChainConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is empty")
	}
	return nil
}

func TestChainConfigRegistry(t *testing.T) {
	r := core.NewChainConfigRegistry()
	r.Register("/test.ChainConfig", &testChainConfig{})
	assert.Equal(t, []string{"/test.ChainConfig"}, r.TypeNames())
	assert.Panics(t, func() { r.Register("/test.ChainConfig", &testChainConfig{}) })

	bz, err := r.Marshal(&testChainConfig{Name: "Betanet", RPC: "ws://localhost:9944"})
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(bz, &fields))
	assert.Equal(t, "/test.ChainConfig", fields["@type"])
	assert.Equal(t, "Betanet", fields["name"])

	cfg, err := r.Unmarshal(bz)
	require.NoError(t, err)
	assert.Equal(t, &testChainConfig{Name: "Betanet", RPC: "ws://localhost:9944"}, cfg)
	assert.NoError(t, cfg.Validate())

	_, err = r.Unmarshal([]byte(`{"@type":"/unknown.ChainConfig"}`))
	assert.ErrorContains(t, err, "unknown chain config type")

	_, err = r.Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}
