package cmd

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/datachainlab/grandpa-relayer/bridge"
	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/internal/checkpoint"
	"github.com/datachainlab/grandpa-relayer/internal/telemetry"
	"github.com/datachainlab/grandpa-relayer/log"
	"github.com/datachainlab/grandpa-relayer/metrics"
)

func serviceCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Relay Service Commands",
		Long:  "Commands to manage the relay service",
	}
	cmd.AddCommand(
		startCmd(ctx),
	)
	return cmd
}

func startCmd(ctx *config.Context) *cobra.Command {
	const defaultPrometheusAddr = "localhost:2223"

	cmd := &cobra.Command{
		Use:   "start [bridge-name...]",
		Short: "relay headers and messages of the given bridges, or of every configured bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr := viper.GetString(flagPrometheusAddr); addr != "" {
				if err := setupPrometheus(cmd.Context(), addr); err != nil {
					return err
				}
			}
			store, err := openCheckpointStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			r, err := bridge.NewRegistry(ctx.Config, store)
			if err != nil {
				return err
			}
			logger := log.GetLogger().WithModule("service")
			logger.InfoContext(cmd.Context(), "starting relay service", "bridges", args)
			return ignoreCanceled(cmd, r.Run(cmd.Context(), args...))
		},
	}
	cmd.Flags().String(flagPrometheusAddr, defaultPrometheusAddr, "host address to which the prometheus exporter listens, empty to disable")
	if err := bindFlags(cmd.Flags(), flagPrometheusAddr); err != nil {
		panic(err)
	}
	return cmd
}

// setupPrometheus replaces the global meter provider with one read by a
// Prometheus exporter served on addr, and recreates the instruments on it.
func setupPrometheus(ctx context.Context, addr string) error {
	exporter, err := telemetry.NewPrometheusExporter(addr)
	if err != nil {
		return err
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)))
	if err := metrics.InitializeMetrics(); err != nil {
		return errors.Wrap(err, "failed to re-initialize the metrics subsystem with prometheus exporter")
	}
	log.GetLogger().WithModule("service").InfoContext(ctx, "serving prometheus metrics", "addr", addr)
	return nil
}

// openCheckpointStore opens the progress store at the configured checkpoint
// directory, defaulting to a directory under the home.
func openCheckpointStore(ctx *config.Context) (*checkpoint.Store, error) {
	dir := ctx.Config.Global.CheckpointDir
	if dir == "" {
		dir = filepath.Join(homePath, "checkpoints")
	}
	return checkpoint.Open(dir)
}

// ignoreCanceled drops the error of a loop stopped by an interrupt.
func ignoreCanceled(cmd *cobra.Command, err error) error {
	if errors.Is(err, context.Canceled) && cmd.Context().Err() != nil {
		return nil
	}
	return err
}
