package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/prysmsh/tpsdk/internal/output"
	"github.com/prysmsh/tpsdk/internal/style"
	"github.com/prysmsh/tpsdk/pkg/definition"
)

func newDescribeCommand() *cobra.Command {
	var src source
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Show the entities of a plugin definition",
		Long: `Print a definition's categories, actions, events, states, connectors and
settings. With --format json or yaml the whole description document is printed.`,
		Example: `  tpsdk describe --plugin example
  tpsdk describe -f entry.tp --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := MustApp()
			if !cmd.Flags().Changed("file") && !cmd.Flags().Changed("plugin") {
				src.provider = "example"
			}
			d, err := src.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			return runDescribe(a.Writer(cmd), d)
		},
	}
	src.addFlags(cmd)
	return cmd
}

type entityRow struct {
	Kind, ID, Name, Detail string
}

func runDescribe(w *output.Writer, d *definition.Description) error {
	if w.Format() == output.FormatTable {
		w.Println(style.Title.Render(d.Name) + style.MutedStyle.Render(fmt.Sprintf("%s v%d (api %d)", d.ID, d.Version, d.API)))
	}
	return w.Render(d, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "KIND\tID\tNAME\tDETAIL")
		for _, r := range entityRows(d) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Kind, r.ID, r.Name, r.Detail)
		}
	})
}

func entityRows(d *definition.Description) []entityRow {
	var rows []entityRow
	for _, c := range d.Categories {
		rows = append(rows, entityRow{"category", c.ID, c.Name, fmt.Sprintf("%d entities", c.Len())})
		for _, a := range c.Actions {
			detail := string(a.Type)
			if len(a.Data) > 0 {
				detail += " " + dataList(a.Data)
			}
			if a.HasHoldFunctionality {
				detail += " hold"
			}
			rows = append(rows, entityRow{"action", a.ID, a.Name, detail})
		}
		for _, e := range c.Events {
			detail := string(e.ValueType)
			if e.ValueStateID != "" {
				detail += " on " + e.ValueStateID
			}
			rows = append(rows, entityRow{"event", e.ID, e.Name, detail})
		}
		for _, s := range c.States {
			detail := string(s.Kind)
			if len(s.Choices) > 0 {
				detail += " [" + strings.Join(s.Choices, "|") + "]"
			}
			rows = append(rows, entityRow{"state", s.ID, s.Description, detail})
		}
		for _, cn := range c.Connectors {
			rows = append(rows, entityRow{"connector", cn.ID, cn.Name, dataList(cn.Data)})
		}
	}
	for _, s := range d.Settings {
		detail := string(s.Kind)
		if s.Default != "" {
			detail += " = " + s.Default
		}
		rows = append(rows, entityRow{"setting", s.Name, s.Name, detail})
	}
	return rows
}

func dataList(data []definition.Data) string {
	parts := make([]string, len(data))
	for i, f := range data {
		parts[i] = f.ID + ":" + string(f.Format.Kind())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
