package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/core"
	"github.com/datachainlab/grandpa-relayer/grandpa"
	"github.com/datachainlab/grandpa-relayer/internal/checkpoint"
	"github.com/datachainlab/grandpa-relayer/messages"
)

// queryCmd represents the query command
func queryCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query",
		Aliases: []string{"q"},
		Short:   "query bridge state of the configured chains",
		RunE:    noCommand,
	}

	cmd.AddCommand(
		queryBestFinalizedCmd(ctx),
		queryIsKnownHeaderCmd(ctx),
		queryLaneCmd(ctx),
		queryProgressCmd(ctx),
	)

	return cmd
}

func connectedChain(cmd *cobra.Command, ctx *config.Context, name string) (*config.Chain, error) {
	c, err := ctx.Config.GetChain(name)
	if err != nil {
		return nil, err
	}
	if err := c.Init(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

func queryBestFinalizedCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "best-finalized [chain-name] [bridged-chain-name]",
		Short: "query the best finalized header of the bridged chain known to the chain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cancel, err := applyTimeout(cmd, ctx)
			defer cancel()
			if err != nil {
				return err
			}
			c, err := connectedChain(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			id, err := core.QueryBestFinalized(cmd.Context(), c, args[1], nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}
}

func queryIsKnownHeaderCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "is-known-header [chain-name] [bridged-chain-name] [hash]",
		Short: "query whether the chain knows the finalized header of the bridged chain",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cancel, err := applyTimeout(cmd, ctx)
			defer cancel()
			if err != nil {
				return err
			}
			hash, err := grandpa.HashFromHex(args[2])
			if err != nil {
				return err
			}
			c, err := connectedChain(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			known, err := core.QueryIsKnownHeader(cmd.Context(), c, args[1], hash)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), known)
			return nil
		},
	}
}

type laneState struct {
	Lane                     string `json:"lane"`
	Source                   string `json:"source"`
	Target                   string `json:"target"`
	LatestGenerated          uint64 `json:"latest_generated_nonce"`
	LatestReceivedAtSource   uint64 `json:"latest_received_nonce_at_source"`
	LatestReceived           uint64 `json:"latest_received_nonce"`
	LatestConfirmedAtTarget  uint64 `json:"latest_confirmed_nonce_at_target"`
	UnrewardedRelayerEntries uint64 `json:"unrewarded_relayer_entries"`
	MessagesInOldestEntry    uint64 `json:"messages_in_oldest_entry"`
}

func queryLaneCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lane [bridge-name] [lane-id]",
		Short: "query the nonces of a lane at both of its chains",
		Args:  cobra.ExactArgs(2),
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
			lane, err := messages.ParseLaneID(args[1])
			if err != nil {
				return err
			}
			b, err := ctx.Config.GetBridge(args[0])
			if err != nil {
				return err
			}
			sourceName, targetName := b.Source, b.Target
			if reverse {
				sourceName, targetName = targetName, sourceName
			}
			source, err := connectedChain(cmd, ctx, sourceName)
			if err != nil {
				return err
			}
			target, err := connectedChain(cmd, ctx, targetName)
			if err != nil {
				return err
			}
			return printLaneState(cmd, lane, source, target)
		},
	}
	return reverseFlag(cmd, "query the lane from the target chain to the source chain")
}

func printLaneState(cmd *cobra.Command, lane messages.LaneID, source, target *config.Chain) error {
	c := cmd.Context()
	src := messages.NewChainSource(source, target.Name(), lane, core.MessagesPalletName(target.Name()), source.Signer, source.Mortality)
	dst := messages.NewChainTarget(target, source.Name(), lane, core.MessagesPalletName(source.Name()), source.Signer.AccountID(), target.Signer, target.Mortality)

	srcAt, err := source.BestHeaderID(c)
	if err != nil {
		return err
	}
	dstAt, err := target.BestHeaderID(c)
	if err != nil {
		return err
	}
	st := laneState{Lane: lane.String(), Source: source.Name(), Target: target.Name()}
	generated, err := src.LatestGeneratedNonce(c, srcAt)
	if err != nil {
		return err
	}
	receivedAtSource, err := src.LatestConfirmedNonce(c, srcAt)
	if err != nil {
		return err
	}
	received, err := dst.LatestReceivedNonce(c, dstAt)
	if err != nil {
		return err
	}
	confirmed, err := dst.LatestConfirmedNonce(c, dstAt)
	if err != nil {
		return err
	}
	relayers, err := dst.UnrewardedRelayersState(c, dstAt)
	if err != nil {
		return err
	}
	st.LatestGenerated = uint64(generated)
	st.LatestReceivedAtSource = uint64(receivedAtSource)
	st.LatestReceived = uint64(received)
	st.LatestConfirmedAtTarget = uint64(confirmed)
	st.UnrewardedRelayerEntries = relayers.UnrewardedRelayerEntries
	st.MessagesInOldestEntry = relayers.MessagesInOldestEntry
	return printJSON(cmd, st)
}

func queryProgressCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [chain-name chain-name]",
		Short: "print the progress recorded by the relay service, optionally between two chains",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCheckpointStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			finality, err := store.Finality()
			if err != nil {
				return err
			}
			lanes, err := store.Lanes()
			if err != nil {
				return err
			}
			if len(args) == 2 {
				var fs []checkpoint.FinalityProgress
				for _, f := range finality {
					if pairOf(f.Source, f.Target, args[0], args[1]) {
						fs = append(fs, f)
					}
				}
				finality = fs
				lanes = checkpoint.Involving(lanes, args[0], args[1])
			}
			w := cmd.OutOrStdout()
			for _, f := range finality {
				fmt.Fprintf(w, "headers %s -> %s: #%d at %s\n", f.Source, f.Target, f.Number, f.UpdatedAt.Format(time.RFC3339))
			}
			for _, l := range lanes {
				fmt.Fprintf(w, "lane %s %s -> %s: delivered %d confirmed %d at %s\n",
					l.Lane, l.Source, l.Target, l.Delivered, l.Confirmed, l.UpdatedAt.Format(time.RFC3339))
			}
			if len(finality) == 0 && len(lanes) == 0 {
				fmt.Fprintln(w, "no progress recorded")
			}
			return nil
		},
	}
}

func pairOf(source, target, a, b string) bool {
	return (source == a && target == b) || (source == b && target == a)
}
