package cmd

import (
	"github.com/spf13/cobra"

	"github.com/datachainlab/grandpa-relayer/config"
)

func SubstrateCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "substrate",
		Short: "manage substrate chains and relayer keys",
	}

	cmd.AddCommand(
		keysCmd(ctx),
		runtimeCmd(ctx),
	)

	return cmd
}
