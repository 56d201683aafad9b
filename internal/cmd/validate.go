package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/prysmsh/tpsdk/internal/output"
	"github.com/prysmsh/tpsdk/pkg/definition"
	"github.com/prysmsh/tpsdk/pkg/validate"
)

type violationRow struct {
	Rule    string `json:"rule"`
	Kind    string `json:"kind"`
	Entity  string `json:"entity"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

type validationReport struct {
	PluginID   string         `json:"pluginId"`
	Valid      bool           `json:"valid"`
	Violations []violationRow `json:"violations"`
}

func newValidateCommand() *cobra.Command {
	var (
		src      source
		failFast bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a plugin definition against every rule",
		Example: `  tpsdk validate -f entry.tp
  tpsdk validate --plugin example --fail-fast`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := MustApp()
			d, err := src.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			_, err = runValidate(a.Writer(cmd), d, failFast)
			return err
		},
	}
	src.addFlags(cmd)
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first violation")
	return cmd
}

// runValidate validates d and reports the outcome on w. The returned
// error is the validation error itself when d is invalid.
func runValidate(w *output.Writer, d *definition.Description, failFast bool) (*validate.Model, error) {
	var opts []validate.Option
	if failFast {
		opts = append(opts, validate.FailFast())
	}
	m, err := validate.Validate(d, opts...)

	report := validationReport{PluginID: d.ID, Valid: err == nil, Violations: []violationRow{}}
	var verr *validate.Error
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			report.Violations = append(report.Violations, violationRow{
				Rule: string(v.Rule), Kind: string(v.Kind), Entity: v.Entity, ID: v.ID, Message: v.Message,
			})
		}
	} else if err != nil {
		return nil, err
	}

	if report.Valid && w.Format() == output.FormatTable {
		w.Success("%s is valid: %s", d.ID, summarize(d))
		return m, nil
	}
	rerr := w.Render(report, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "RULE\tKIND\tENTITY\tID\tMESSAGE")
		for _, v := range report.Violations {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Rule, v.Kind, v.Entity, v.ID, v.Message)
		}
	})
	if rerr != nil {
		return nil, rerr
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %d violation(s): %w", d.ID, len(report.Violations), validate.ErrInvalid)
	}
	return m, nil
}

func summarize(d *definition.Description) string {
	return fmt.Sprintf("%d categories, %d actions, %d events, %d states, %d connectors, %d settings",
		len(d.Categories), len(d.Actions()), len(d.Events()), len(d.States()), len(d.Connectors()), len(d.Settings))
}
