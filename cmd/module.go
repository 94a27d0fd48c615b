package cmd

import (
	"io"
	"reflect"
	"runtime/debug"
	"slices"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/datachainlab/grandpa-relayer/config"
	"github.com/datachainlab/grandpa-relayer/core"
)

func modulesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "show the chain modules linked into the relayer",
		RunE:  noCommand,
	}
	cmd.AddCommand(showModulesCmd(ctx))
	return cmd
}

func showModulesCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "list every chain module with its Go module, chain config types and key command",
		RunE: func(cmd *cobra.Command, args []string) error {
			bi, ok := debug.ReadBuildInfo()
			if !ok {
				return errors.New("could not read build info")
			}
			infos, err := describeModules(bi, ctx)
			if err != nil {
				return err
			}
			renderModules(cmd.OutOrStdout(), infos)
			return nil
		},
	}
}

// moduleInfo describes a chain module linked into the binary.
type moduleInfo struct {
	Name        string
	Path        string
	Version     string
	ConfigTypes []string
	// Command is the name of the subcommand of the module, empty if it has none.
	Command string
}

func describeModules(bi *debug.BuildInfo, ctx *config.Context) ([]moduleInfo, error) {
	infos := make([]moduleInfo, 0, len(ctx.Modules))
	for _, m := range ctx.Modules {
		path, version, err := lookupGoModule(bi, m)
		if err != nil {
			return nil, err
		}
		registry := core.NewChainConfigRegistry()
		m.RegisterChainConfigs(registry)
		info := moduleInfo{
			Name:        m.Name(),
			Path:        path,
			Version:     version,
			ConfigTypes: registry.TypeNames(),
		}
		if c := m.GetCmd(ctx); c != nil {
			info.Command = c.Name()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func renderModules(w io.Writer, infos []moduleInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Module", "Go module", "Version", "Chain config types", "Command"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, info := range infos {
		command := info.Command
		if command == "" {
			command = "-"
		}
		table.Append([]string{info.Name, info.Path, info.Version, strings.Join(info.ConfigTypes, ", "), command})
	}
	table.Render()
}

// lookupGoModule finds the Go module that provides the package of m.
func lookupGoModule(bi *debug.BuildInfo, m config.ModuleI) (path, version string, err error) {
	if bi == nil {
		return "", "", errors.New("build info is unavailable")
	}
	pkgPath := reflect.TypeOf(m).PkgPath()
	if bi.Main.Path != "" && strings.HasPrefix(pkgPath, bi.Main.Path) {
		return bi.Main.Path, bi.Main.Version, nil
	}
	i := slices.IndexFunc(bi.Deps, func(dm *debug.Module) bool {
		return strings.HasPrefix(pkgPath, dm.Path)
	})
	if i == -1 {
		return "", "", errors.Newf("could not find the Go module of %s (%s)", m.Name(), pkgPath)
	}
	return bi.Deps[i].Path, bi.Deps[i].Version, nil
}
