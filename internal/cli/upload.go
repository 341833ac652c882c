package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	var history string
	var ext string
	var dbkey string
	var wait bool
	var pollInterval time.Duration
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload local files into a Galaxy history",
		Long: `Upload sends local files to Galaxy and prints the new dataset IDs, which can
be given to data parameters with --set.

Without --history the files go to the configured history, or else to the
most recently used one.`,
		Example: `  galahad upload reads_1.fq reads_2.fq --ext fastqsanger
  galahad upload genome.fa --history f2db41e1fa331b3e --wait`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if history == "" {
				history = cfg.Galaxy.HistoryID
			}
			if history == "" {
				h, err := client.MostRecentHistory(ctx)
				if err != nil {
					return fmt.Errorf("find history: %s", galaxy.UserMessage(err))
				}
				history = h.ID
				logger.Debug("using most recent history", "id", h.ID, "name", h.Name)
			}

			var uploaded []galaxy.Dataset
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				d, err := client.UploadDataset(ctx, galaxy.UploadInput{
					HistoryID: history,
					Name:      filepath.Base(path),
					Data:      data,
					Ext:       ext,
					DBKey:     dbkey,
				})
				if err != nil {
					return fmt.Errorf("upload %s: %s", path, galaxy.UserMessage(err))
				}
				fmt.Fprintf(out, "Uploaded %s (%s) to history %s as %s\n",
					d.Name, humanize.Bytes(uint64(len(data))), history, d.ID)
				uploaded = append(uploaded, *d)
			}

			if !wait {
				return nil
			}
			return waitOutputs(ctx, cmd, uploaded, pollInterval, timeout)
		},
	}

	cmd.Flags().StringVar(&history, "history", "", "Target history ID")
	cmd.Flags().StringVar(&ext, "ext", "", "Galaxy datatype (default: detect)")
	cmd.Flags().StringVar(&dbkey, "dbkey", "", "Genome build")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until every dataset is ready")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 5*time.Second, "Dataset polling interval with --wait")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Give up waiting after this long")
	return cmd
}
