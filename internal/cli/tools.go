package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	var all bool
	var query string
	var output string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools installed on the Galaxy server",
		Long: `List the Galaxy server's tools. Only the newest version of each tool is
shown unless --all is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			table, err := tableOutput(w, output)
			if err != nil {
				return err
			}

			tools, err := client.ListTools(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tools: %s", galaxy.UserMessage(err))
			}
			if !all {
				tools = galaxy.LatestTools(tools)
			}
			galaxy.SortTools(tools)
			tools = filterTools(tools, query)

			if !table {
				return writeJSON(w, tools)
			}
			if len(tools) == 0 {
				fmt.Fprintln(w, "No tools found.")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tVERSION\tSECTION")
			for _, t := range tools {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Version, t.PanelSection)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%s tools\n", humanize.Comma(int64(len(tools))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Show every installed version")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive filter on ID, name and description")
	cmd.Flags().StringVarP(&output, "output", "o", "auto", "Output format: auto, table, json")
	return cmd
}

func filterTools(tools []galaxy.ToolSummary, query string) []galaxy.ToolSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tools
	}
	out := make([]galaxy.ToolSummary, 0, len(tools))
	for _, t := range tools {
		if strings.Contains(strings.ToLower(t.ID), q) ||
			strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}
