package module

import (
	"github.com/spf13/cobra"

	"github.com/datachainlab/grandpa-relayer/chains/substrate"
	"github.com/datachainlab/grandpa-relayer/chains/substrate/cmd"
	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/core"
)

type Module struct{}

var _ config.ModuleI = (*Module)(nil)

// Name returns the name of the module
func (Module) Name() string {
	return "substrate"
}

// RegisterChainConfigs registers the substrate chain config.
func (Module) RegisterChainConfigs(registry *core.ChainConfigRegistry) {
	registry.Register(substrate.ConfigType, &substrate.ChainConfig{})
}

// GetCmd returns the command
func (Module) GetCmd(ctx *config.Context) *cobra.Command {
	return cmd.SubstrateCmd(ctx)
}
