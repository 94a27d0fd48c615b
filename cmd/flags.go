package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	flagHome            = "home"
	flagEnableTelemetry = "enable-telemetry"
	flagJSON            = "json"
	flagYAML            = "yaml"
	flagReverse         = "reverse"
	flagPrometheusAddr  = "prometheus-addr"
)

// bindFlags binds the named flags of fs to viper keys of the same name.
func bindFlags(fs *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			return errors.Newf("flag %s is not defined", name)
		}
		if err := viper.BindPFlag(name, f); err != nil {
			return errors.Wrapf(err, "failed to bind flag %s", name)
		}
	}
	return nil
}

// Output and direction flags are read from the command rather than bound to
// viper, as several commands define them.

func yamlFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().BoolP(flagYAML, "y", false, "output using yaml")
	return cmd
}

func jsonFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().BoolP(flagJSON, "j", false, "returns the response in json format")
	return cmd
}

func isJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool(flagJSON)
	return v
}

func isYAML(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool(flagYAML)
	return v
}

func reverseFlag(cmd *cobra.Command, usage string) *cobra.Command {
	cmd.Flags().BoolP(flagReverse, "r", false, usage)
	return cmd
}

func getReverse(cmd *cobra.Command) (bool, error) {
	return cmd.Flags().GetBool(flagReverse)
}

// readFile decodes a JSON or YAML file into v using the json tags of v.
func readFile(path string, v interface{}) error {
	r := viper.New()
	r.SetConfigFile(path)
	if err := r.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	bz, err := json.Marshal(r.AllSettings())
	if err != nil {
		return errors.Wrapf(err, "failed to convert %s", path)
	}
	return errors.Wrapf(json.Unmarshal(bz, v), "failed to decode %s", path)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	return nil
}
