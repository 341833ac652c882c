package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/galahad/pkg/model"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the tool schema cache",
	}
	cmd.AddCommand(newCacheListCmd(), newCachePurgeCmd())
	return cmd
}

func newCacheListCmd() *cobra.Command {
	var output string
	opts := model.DefaultListOptions()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached tool schemas, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			table, err := tableOutput(w, output)
			if err != nil {
				return err
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			entries, total, err := st.ListSchemas(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("list schemas: %w", err)
			}
			if !table {
				return writeJSON(w, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "Cache is empty.")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOOL\tVERSION\tNAME\tCONTEXT\tSIZE\tFETCHED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ToolID, e.ToolVersion, e.Name, e.ContextHash,
					humanize.Bytes(uint64(e.Size)), humanize.Time(e.FetchedAt))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(entries) < total {
				fmt.Fprintf(w, "\n(%d of %d shown)\n", len(entries), total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "auto", "Output format: auto, table, json")
	cmd.Flags().IntVar(&opts.Limit, "limit", opts.Limit, "Maximum entries to list")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Filter on tool ID or name")
	return cmd
}

func newCachePurgeCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete cached tool schemas",
		Long:  "Delete every cached schema, or with --older-than only those fetched before that age.",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			var cutoff time.Time
			if olderThan > 0 {
				cutoff = time.Now().Add(-olderThan)
			}
			n, err := st.Purge(cmd.Context(), cutoff)
			if err != nil {
				return fmt.Errorf("purge cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %s cached %s\n", humanize.Comma(n), plural(n, "schema"))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only purge entries older than this (e.g. 168h)")
	return cmd
}

func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
