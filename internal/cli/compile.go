package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/me/galahad/internal/form"
	"github.com/spf13/cobra"
)

func newCompileCmd() *cobra.Command {
	var ff formFlags
	var specOnly bool

	cmd := &cobra.Command{
		Use:   "compile [tool-file]",
		Short: "Compile a tool schema into a form spec",
		Long: `Compile reads a Galaxy tool schema (a .json/.yaml file, or --tool to fetch it
from Galaxy), flattens it and prints the form spec, display groups, values
and visibility as JSON.

Values given with --set are entered in order; a parameter that refreshes on
change recompiles the form the way a renderer would.`,
		Example: `  galahad compile bowtie2.json
  galahad compile --tool bowtie2 --set "library|type=paired" --spec-only`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, release, err := openForm(cmd.Context(), args, &ff)
			if err != nil {
				return err
			}
			defer release()

			if specOnly {
				return writeJSON(cmd.OutOrStdout(), f.Compiled().Spec)
			}
			return writeJSON(cmd.OutOrStdout(), f.Snapshot())
		},
	}

	ff.register(cmd)
	cmd.Flags().BoolVar(&specOnly, "spec-only", false, "Print only the parameter spec")
	return cmd
}

// visibilityRow is one line of the visibility report.
type visibilityRow struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Visible    bool   `json:"visible"`
	Controller string `json:"controller,omitempty"`
	When       string `json:"when,omitempty"`
	Value      any    `json:"value"`
}

func newVisibilityCmd() *cobra.Command {
	var ff formFlags
	var output string
	var hiddenOnly bool

	cmd := &cobra.Command{
		Use:   "visibility [tool-file]",
		Short: "Show which parameters are visible for the given values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, release, err := openForm(cmd.Context(), args, &ff)
			if err != nil {
				return err
			}
			defer release()

			w := cmd.OutOrStdout()
			table, err := tableOutput(w, output)
			if err != nil {
				return err
			}
			rows := visibilityRows(f.Snapshot(), hiddenOnly)
			if !table {
				return writeJSON(w, rows)
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PARAM\tVISIBLE\tWHEN\tVALUE")
			for _, r := range rows {
				when := "-"
				if r.Controller != "" {
					when = r.Controller + " = " + r.When
				}
				fmt.Fprintf(tw, "%s\t%v\t%s\t%v\n", r.Path, r.Visible, when, form.FormValue(r.Value))
			}
			return tw.Flush()
		},
	}

	ff.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "auto", "Output format: auto, table, json")
	cmd.Flags().BoolVar(&hiddenOnly, "hidden", false, "List only hidden parameters")
	return cmd
}

func visibilityRows(snap form.Snapshot, hiddenOnly bool) []visibilityRow {
	rows := make([]visibilityRow, 0, len(snap.Params))
	for _, p := range snap.Params {
		visible := snap.Visibility[p.Name]
		if hiddenOnly && visible {
			continue
		}
		rows = append(rows, visibilityRow{
			Name:       p.Name,
			Path:       p.Path,
			Visible:    visible,
			Controller: p.ConditionalParam,
			When:       p.ConditionalDisplay,
			Value:      snap.Values[p.Name],
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Visible && !rows[j].Visible })
	return rows
}
