package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/internal/telemetry"
	"github.com/datachainlab/grandpa-relayer/log"
	"github.com/datachainlab/grandpa-relayer/metrics"
)

var (
	homePath    string
	defaultHome = os.ExpandEnv("$HOME/.grly")
)

const (
	appName    = "grly"
	configPath = "config/config.yaml"
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(modules ...config.ModuleI) error {
	// rootCmd represents the base command when called without any subcommands
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "This application relays GRANDPA finality and bridge messages between Substrate chains",
	}
	cobra.EnableCommandSorting = false
	rootCmd.SilenceUsage = true

	ctx := config.NewContext(modules...)

	rootCmd.PersistentFlags().StringVar(&homePath, flagHome, defaultHome, "set home directory")
	rootCmd.PersistentFlags().Bool(flagEnableTelemetry, false, "enable telemetry")
	if err := bindFlags(rootCmd.PersistentFlags(), flagHome, flagEnableTelemetry); err != nil {
		return err
	}

	var shutdownOTel func(context.Context) error
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// reads `homeDir/config/config.yaml` into `ctx.Config` before each command
		if err := initConfig(ctx); err != nil {
			return err
		}
		enableTelemetry := viper.GetBool(flagEnableTelemetry)
		if enableTelemetry {
			shutdown, err := telemetry.SetupOTelSDK(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "failed to set up the OpenTelemetry SDK")
			}
			shutdownOTel = shutdown
		}
		l := ctx.Config.Global.Logger
		if err := log.InitLogger(l.Level, l.Format, l.Output, enableTelemetry); err != nil {
			return err
		}
		return metrics.InitializeMetrics()
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		if shutdownOTel == nil {
			return nil
		}
		return shutdownOTel(context.WithoutCancel(cmd.Context()))
	}

	rootCmd.AddCommand(
		configCmd(ctx),
		chainsCmd(ctx),
		bridgesCmd(ctx),
		txCmd(ctx),
		queryCmd(ctx),
		serviceCmd(ctx),
		modulesCmd(ctx),
	)
	for _, m := range modules {
		if c := m.GetCmd(ctx); c != nil {
			rootCmd.AddCommand(c)
		}
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(sigCtx)
}

// initConfig reads the config file under the home directory, or falls back
// to the default config if there is none.
func initConfig(ctx *config.Context) error {
	cfgPath := filepath.Join(homePath, configPath)
	if _, err := os.Stat(cfgPath); err != nil {
		if !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to stat %s", cfgPath)
		}
		def := config.DefaultConfig(cfgPath)
		ctx.Config = &def
		return nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	// ensure config has the built chains used for all chain operations
	if err := cfg.InitChains(ctx.Registry); err != nil {
		return errors.Wrap(err, "failed to build the chains of the config")
	}
	ctx.Config = cfg
	return nil
}

// applyTimeout bounds the context of a one-shot command by global.timeout.
func applyTimeout(cmd *cobra.Command, ctx *config.Context) (context.CancelFunc, error) {
	timeout, err := ctx.Config.Global.TimeoutDuration()
	if err != nil {
		return func() {}, err
	}
	c, cancel := context.WithTimeout(cmd.Context(), timeout)
	cmd.SetContext(c)
	return cancel, nil
}

func noCommand(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}
