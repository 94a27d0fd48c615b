package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/datachainlab/grandpa-relayer/config"
)

func chainsCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chains",
		Short: "manage chain configurations",
		RunE:  noCommand,
	}

	cmd.AddCommand(
		chainsAddCmd(ctx),
		chainsListCmd(ctx),
	)

	return cmd
}

func chainsAddCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [file]",
		Args:  cobra.ExactArgs(1),
		Short: "Add a chain to the configuration file from a JSON or YAML file holding its chain and signer configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var entry config.ChainEntry
			if err := readFile(args[0], &entry); err != nil {
				return err
			}
			cc, err := ctx.Registry.Unmarshal(entry.Chain)
			if err != nil {
				return err
			}
			if err := ctx.Config.AddChain(ctx.Registry, cc, entry.Signer, entry.Mortality); err != nil {
				return err
			}
			if err := ctx.Config.Save(); err != nil {
				return err
			}
			names := ctx.Config.ChainNames()
			c, err := ctx.Config.GetChain(names[len(names)-1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (relayer account %s)\n", c.Name(), c.Signer.AccountID())
			return nil
		},
	}
	return cmd
}

type chainSummary struct {
	Name                  string  `json:"name" yaml:"name"`
	Account               string  `json:"account" yaml:"account"`
	TransactionsMortality *uint32 `json:"transactions_mortality,omitempty" yaml:"transactions_mortality,omitempty"`
	BlockInterval         string  `json:"block_interval" yaml:"block_interval"`
}

func chainsListCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "Returns chain configuration data",
		RunE: func(cmd *cobra.Command, args []string) error {
			var chains []chainSummary
			for _, name := range ctx.Config.ChainNames() {
				c, err := ctx.Config.GetChain(name)
				if err != nil {
					return err
				}
				chains = append(chains, chainSummary{
					Name:                  c.Name(),
					Account:               c.Signer.AccountID().String(),
					TransactionsMortality: c.Mortality,
					BlockInterval:         c.AverageBlockInterval().String(),
				})
			}

			switch {
			case isJSON(cmd):
				return printJSON(cmd, chains)
			case isYAML(cmd):
				out, err := yaml.Marshal(chains)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
			default:
				for i, c := range chains {
					fmt.Fprintf(cmd.OutOrStdout(), "%2d: %-20s -> account(%s) interval(%s)\n", i, c.Name, c.Account, c.BlockInterval)
				}
			}
			return nil
		},
	}
	return jsonFlag(yamlFlag(cmd))
}
