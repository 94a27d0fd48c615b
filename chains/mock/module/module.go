package module

import (
	"github.com/spf13/cobra"

	"github.com/datachainlab/grandpa-relayer/chains/mock"
	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/core"
)

type Module struct{}

var _ config.ModuleI = (*Module)(nil)

// Name returns the name of the module
func (Module) Name() string {
	return "mock"
}

// RegisterChainConfigs registers the in-memory chain config.
func (Module) RegisterChainConfigs(registry *core.ChainConfigRegistry) {
	registry.Register(mock.ConfigType, &mock.ChainConfig{})
}

// GetCmd returns nil: mock chains live only inside the relayer process.
func (Module) GetCmd(ctx *config.Context) *cobra.Command {
	return nil
}
