package config

import (
	"github.com/spf13/cobra"

	"github.com/datachainlab/grandpa-relayer/core"
)

// ModuleI defines an interface of Module
type ModuleI interface {
	// Name returns the name of the module
	Name() string

	// RegisterChainConfigs registers the chain config types of the module.
	RegisterChainConfigs(registry *core.ChainConfigRegistry)

	// GetCmd returns the command of the module, or nil if it has none.
	GetCmd(ctx *Context) *cobra.Command
}
