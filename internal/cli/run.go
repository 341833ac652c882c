package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var ff formFlags
	var dryRun bool
	var wait bool
	var pollInterval time.Duration
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run [tool-file]",
		Short: "Fill in a tool form and run the job on Galaxy",
		Long: `Run opens a form for the tool, enters the --set values in order, builds the
job inputs from the visible parameters and submits them to Galaxy.

Without --history the most recently used history receives the outputs.`,
		Example: `  galahad run --tool cat1 --set input1=f2db41e1fa331b3e --wait
  galahad run --tool cat1 --set input1=f2db41e1fa331b3e --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			f, release, err := openForm(ctx, args, &ff)
			if err != nil {
				return err
			}
			defer release()

			inputs := f.JobInputs()
			if dryRun {
				return writeJSON(out, inputs)
			}

			ref := f.Tool()
			if ref.ID == "" {
				return errors.New("the tool file has no id; pass --tool")
			}
			if ref.HistoryID == "" {
				h, err := client.MostRecentHistory(ctx)
				if err != nil {
					return fmt.Errorf("find history: %s", galaxy.UserMessage(err))
				}
				ref.HistoryID = h.ID
				logger.Debug("using most recent history", "id", h.ID, "name", h.Name)
			}

			res, err := client.RunTool(ctx, galaxy.RunInput{Tool: ref, Inputs: inputs})
			if err != nil {
				return fmt.Errorf("run %s: %s", ref, galaxy.UserMessage(err))
			}
			fmt.Fprintf(out, "Submitted %s to history %s\n", ref, ref.HistoryID)
			for _, j := range res.Jobs {
				fmt.Fprintf(out, "  job     %s  %s\n", j.ID, j.State)
			}
			for _, o := range res.Outputs {
				fmt.Fprintf(out, "  output  %s  %s  %s\n", o.ID, o.Name, o.State)
			}
			if !wait {
				return nil
			}
			return waitOutputs(ctx, cmd, res.Outputs, pollInterval, timeout)
		},
	}

	ff.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the job inputs instead of submitting")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for every output dataset to finish")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 15*time.Second, "Dataset polling interval with --wait")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Hour, "Give up waiting after this long")
	return cmd
}

func waitOutputs(ctx context.Context, cmd *cobra.Command, outputs []galaxy.Dataset, poll, timeout time.Duration) error {
	out := cmd.OutOrStdout()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	failed := 0
	for _, o := range outputs {
		d, err := client.WaitForDataset(ctx, o.ID, poll)
		if err != nil {
			return fmt.Errorf("wait for %s: %w", o.ID, err)
		}
		fmt.Fprintf(out, "%s: %s (%s)\n", d.Name, d.State, humanize.Bytes(uint64(max(d.FileSize, 0))))
		if d.State != galaxy.DatasetOK {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d outputs did not finish ok", failed, len(outputs))
	}
	return nil
}
