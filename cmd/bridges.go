package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/datachainlab/grandpa-relayer/config"
)

func bridgesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bridges",
		Aliases: []string{"br"},
		Short:   "manage bridge configurations",
		Long: `
A bridge connects two configured chains. Finalized headers are relayed in
both directions, and messages on each configured lane.`,
		RunE: noCommand,
	}

	cmd.AddCommand(
		bridgesAddCmd(ctx),
		bridgesListCmd(ctx),
		bridgesShowCmd(ctx),
	)

	return cmd
}

func bridgesAddCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [file]",
		Args:  cobra.ExactArgs(1),
		Short: "Add a bridge to the configuration file from a JSON or YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var b config.BridgeConfig
			if err := readFile(args[0], &b); err != nil {
				return err
			}
			if err := ctx.Config.AddBridge(b); err != nil {
				return err
			}
			if err := ctx.Config.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added bridge %s: %s <-> %s\n", b.Name, b.Source, b.Target)
			return nil
		},
	}
	return cmd
}

func bridgesListCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "print out configured bridges",
		RunE: func(cmd *cobra.Command, args []string) error {
			bridges := ctx.Config.Bridges
			switch {
			case isJSON(cmd):
				return printJSON(cmd, bridges)
			case isYAML(cmd):
				out, err := yaml.Marshal(bridges)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
			default:
				for i, b := range bridges {
					fmt.Fprintf(cmd.OutOrStdout(), "%2d: %-20s -> %s <-> %s lanes(%d)\n", i, b.Name, b.Source, b.Target, len(b.Lanes))
				}
			}
			return nil
		},
	}
	return jsonFlag(yamlFlag(cmd))
}

func bridgesShowCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [bridge-name]",
		Args:  cobra.ExactArgs(1),
		Short: "print the config of a bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.Config.GetBridge(args[0])
			if err != nil {
				return err
			}
			if isYAML(cmd) {
				out, err := yaml.Marshal(b)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
				return nil
			}
			return printJSON(cmd, b)
		},
	}
	return yamlFlag(cmd)
}
