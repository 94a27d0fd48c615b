package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cosmos/go-bip39"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/signer"
)

const (
	flagKeyType = "type"
	flagNetwork = "network"
)

func keysCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "manage relayer keys",
	}

	cmd.AddCommand(
		keysGenerateCmd(),
		keysShowCmd(ctx),
	)

	return cmd
}

func keysGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate a new mnemonic and print the account it derives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entropy, err := bip39.NewEntropy(256)
			if err != nil {
				return errors.Wrap(err, "failed to generate entropy")
			}
			mnemonic, err := bip39.NewMnemonic(entropy)
			if err != nil {
				return errors.Wrap(err, "failed to generate mnemonic")
			}
			sc := signer.Config{
				Type:    viper.GetString(flagKeyType),
				Secret:  mnemonic,
				Network: uint8(viper.GetUint(flagNetwork)),
			}
			s, err := sc.Build()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mnemonic: %s\naccount: %s\n", mnemonic, s.AccountID())
			if a, ok := s.(*signer.Sr25519); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "address: %s\n", a.Address())
			}
			return nil
		},
	}
	return keyFlags(cmd)
}

func keysShowCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show [chain-name]",
		Short: "show the relayer account of a configured chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Signer.AccountID())
			if a, ok := c.Signer.(*signer.Sr25519); ok {
				fmt.Fprintln(cmd.OutOrStdout(), a.Address())
			}
			return nil
		},
	}
}

func keyFlags(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagKeyType, signer.TypeSr25519, "key type (sr25519|ed25519)")
	cmd.Flags().Uint8(flagNetwork, 42, "SS58 network prefix of the printed address")
	if err := viper.BindPFlag(flagKeyType, cmd.Flags().Lookup(flagKeyType)); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag(flagNetwork, cmd.Flags().Lookup(flagNetwork)); err != nil {
		panic(err)
	}
	return cmd
}
