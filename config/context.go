package config

import "github.com/datachainlab/grandpa-relayer/core"

type Context struct {
	Modules  []ModuleI
	Registry *core.ChainConfigRegistry
	Config   *Config
}

// NewContext creates a context with the chain configs of modules registered.
func NewContext(modules ...ModuleI) *Context {
	registry := core.NewChainConfigRegistry()
	for _, m := range modules {
		m.RegisterChainConfigs(registry)
	}
	return &Context{Modules: modules, Registry: registry}
}
