package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/prysmsh/tpsdk/internal/output"
	"github.com/prysmsh/tpsdk/internal/plugin"
)

func newPluginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage definition providers",
	}
	cmd.AddCommand(newPluginListCommand(), newPluginInfoCommand())
	return cmd
}

func newPluginListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List builtin and installed providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := MustApp()
			infos := a.Providers.List()
			w := a.Writer(cmd)
			if w.Format() != output.FormatTable {
				return w.Render(infos, nil)
			}
			printProviders(w.Out(), infos)
			if len(infos) == 1 {
				fmt.Fprintf(w.Out(), "\nExternal providers are discovered from %s and $PATH (tpsdk-provider-* binaries).\n", a.Config.PluginDir())
			}
			return nil
		},
	}
}

func printProviders(out io.Writer, infos []plugin.Info) {
	bold := color.New(color.Bold)
	for _, p := range infos {
		kindColor := color.New(color.FgCyan)
		if p.Kind == plugin.KindExternal {
			kindColor = color.New(color.FgYellow)
		}
		bold.Fprintf(out, "  %s", p.Name)
		fmt.Fprint(out, " ")
		kindColor.Fprintf(out, "(%s)", p.Kind)
		fmt.Fprintln(out)
		if p.Path != "" {
			fmt.Fprintf(out, "    Path: %s\n", p.Path)
		}
	}
}

type providerInfo struct {
	plugin.Info
	PluginID   string `json:"pluginId"`
	PluginName string `json:"pluginName"`
	Version    int    `json:"version"`
	Summary    string `json:"summary"`
}

func newPluginInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "info <name>",
		Short:             "Show the plugin a provider describes",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := MustApp()
			var info *plugin.Info
			for _, i := range a.Providers.List() {
				if i.Name == args[0] {
					info = &i
					break
				}
			}
			if info == nil {
				return fmt.Errorf("provider %q: %w", args[0], plugin.ErrNotFound)
			}
			d, err := describeProvider(cmd.Context(), a, info.Name)
			if err != nil {
				return err
			}
			pi := providerInfo{
				Info:       *info,
				PluginID:   d.ID,
				PluginName: d.Name,
				Version:    d.Version,
				Summary:    summarize(d),
			}
			return a.Writer(cmd).Render(pi, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Provider:\t%s (%s)\n", pi.Name, pi.Kind)
				if pi.Path != "" {
					fmt.Fprintf(tw, "Path:\t%s\n", pi.Path)
				}
				fmt.Fprintf(tw, "Plugin:\t%s (%s)\n", pi.PluginName, pi.PluginID)
				fmt.Fprintf(tw, "Version:\t%d\n", pi.Version)
				fmt.Fprintf(tw, "Entities:\t%s\n", pi.Summary)
			})
		},
	}
}
