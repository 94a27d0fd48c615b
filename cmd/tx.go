package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datachainlab/grandpa-relayer/bridge"
	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/messages"
)

// transactions command
func txCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "bridge transaction commands",
		Long: strings.TrimSpace(`Commands to initialize bridges and to relay headers or messages
in the foreground. Use the service command to relay everything at once.`,
		),
		RunE: noCommand,
	}

	cmd.AddCommand(
		initBridgeCmd(ctx),
		relayHeadersCmd(ctx),
		relayMessagesCmd(ctx),
	)

	return cmd
}

// connectedBridge looks up and connects the named bridge. Loops started by
// tx commands do not record their progress.
func connectedBridge(cmd *cobra.Command, ctx *config.Context, name string) (*bridge.Bridge, error) {
	r, err := bridge.NewRegistry(ctx.Config, nil)
	if err != nil {
		return nil, err
	}
	b, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if err := b.Connect(cmd.Context()); err != nil {
		return nil, err
	}
	return b, nil
}

func initBridgeCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-bridge [bridge-name]",
		Short: "initialize the finality pallet tracking the source chain at the target chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cancel, err := applyTimeout(cmd, ctx)
			defer cancel()
			if err != nil {
				return err
			}
			reverse, err := getReverse(cmd)
			if err != nil {
				return err
			}
			b, err := connectedBridge(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			data, err := b.InitHeaders(cmd.Context(), reverse)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized with header %s, authority set %d of %d voters\n",
				data.Header.ID(), data.SetID, len(data.Authorities))
			return nil
		},
	}
	return reverseFlag(cmd, "initialize the pallet tracking the target chain at the source chain")
}

func relayHeadersCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-headers [bridge-name]",
		Short: "relay finalized headers from the source chain to the target chain until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reverse, err := getReverse(cmd)
			if err != nil {
				return err
			}
			b, err := connectedBridge(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			return ignoreCanceled(cmd, b.RelayHeaders(cmd.Context(), reverse))
		},
	}
	return reverseFlag(cmd, "relay headers of the target chain to the source chain")
}

func relayMessagesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-messages [bridge-name] [lane-id]",
		Short: "relay the messages of a configured lane until interrupted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reverse, err := getReverse(cmd)
			if err != nil {
				return err
			}
			lane, err := messages.ParseLaneID(args[1])
			if err != nil {
				return err
			}
			b, err := connectedBridge(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			lc, err := b.Config.Lane(lane, reverse)
			if err != nil {
				return err
			}
			return ignoreCanceled(cmd, b.RelayMessages(cmd.Context(), lc))
		},
	}
	return reverseFlag(cmd, "relay the lane from the target chain to the source chain")
}
