package coreutil

import (
	"fmt"

	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/otelcore"
)

// UnwrapChain finds the first struct value in the Chain field that matches the specified
// type argument.
//
// In the following example, UnwrapChain returns the *mock.Chain built for a configured chain:
//
//	chain, err := coreutil.UnwrapChain[*mock.Chain](configuredChain)
func UnwrapChain[C core.Chain](c core.Chain) (C, error) {
	chain := c
	for {
		switch unwrapped := chain.(type) {
		case C:
			return unwrapped, nil
		case *config.Chain:
			chain = unwrapped.Chain
		case *otelcore.Chain:
			chain = unwrapped.Chain
		default:
			var zero C
			return zero, fmt.Errorf("failed to unwrap chain: expected=%T, actual=%T", zero, unwrapped)
		}
	}
}
