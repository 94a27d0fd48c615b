package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datachainlab/grandpa-relayer/config"
)

func runtimeCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "runtime [chain-name]",
		Short: "show the runtime version of a chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			if err := c.Init(cmd.Context()); err != nil {
				return err
			}
			v, err := c.RuntimeVersion(cmd.Context())
			if err != nil {
				return err
			}
			bz, err := json.Marshal(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
}
