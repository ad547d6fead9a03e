package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vidbatch/internal/batch"
	"vidbatch/internal/daemon"
	"vidbatch/internal/encoding"
	"vidbatch/internal/logging"
)

const progressPollInterval = 250 * time.Millisecond

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var resolution int
	var fps int

	cmd := &cobra.Command{
		Use:   "convert [dir]",
		Short: "Convert every video under a directory to MP4",
		Long: "Scan a directory, probe each video, then convert them one at a time.\n" +
			"The first Ctrl-C stops after the current file; a second aborts it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := encoding.Target{Resolution: resolution, FPS: fps}
			if target.Resolution == 0 {
				target.Resolution = cfg.Encoder.DefaultResolution
			}
			if target.FPS == 0 {
				target.FPS = cfg.Encoder.DefaultFPS
			}
			if err := target.Validate(); err != nil {
				return err
			}
			root := ""
			if len(args) == 1 {
				root = args[0]
			}

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			d, _, err := ctx.newSessionDaemon()
			if err != nil {
				return err
			}
			if err := d.Start(runCtx); err != nil {
				return err
			}
			defer d.Close()

			out := cmd.OutOrStdout()
			if _, err := d.Scan(runCtx, root); err != nil {
				return err
			}
			d.WaitForProbes()
			printFiles(out, d.Files())

			if _, err := d.StartBatch(target); err != nil {
				return err
			}
			fmt.Fprintf(out, "Converting to %dp at %d fps\n", target.Resolution, target.FPS)

			signals := make(chan os.Signal, 2)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(signals)

			state := followBatch(runCtx, d, out, signals, cancel)
			printBatchSummary(out, state, d.Results())
			if runCtx.Err() != nil {
				return context.Canceled
			}
			if state.Failed > 0 {
				return fmt.Errorf("%d of %d files failed; see %s", state.Failed, state.Total, sessionLogPath(cfg))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&resolution, "resolution", "r", 0, "Output height in pixels (default from config)")
	cmd.Flags().IntVarP(&fps, "fps", "f", 0, "Output frame rate, 5-60 (default from config)")
	return cmd
}

// followBatch prints progress until the batch loop exits. The first signal
// requests a cooperative stop; the second cancels the session context, which
// terminates the running encode.
func followBatch(ctx context.Context, d *daemon.Daemon, out io.Writer, signals <-chan os.Signal, abort context.CancelFunc) batch.State {
	done := make(chan struct{})
	go func() {
		d.WaitForBatch()
		close(done)
	}()

	sampler := logging.NewProgressSampler(10)
	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()
	interrupts := 0

	for {
		select {
		case <-done:
			return d.BatchState()
		case <-signals:
			interrupts++
			if interrupts == 1 {
				d.StopBatch()
				fmt.Fprintln(out, "Stopping after the current file (Ctrl-C again to abort)")
				continue
			}
			fmt.Fprintln(out, "Aborting")
			abort()
		case <-ticker.C:
			state := d.BatchState()
			if state.Running && sampler.ShouldLog(state.ProgressPercent, state.CurrentFile) {
				fmt.Fprintf(out, "[%3.0f%%] %d/%d %s\n", state.ProgressPercent, state.Attempted()+1, state.Total, state.CurrentFile)
			}
		case <-ctx.Done():
			<-done
			return d.BatchState()
		}
	}
}

func printBatchSummary(out io.Writer, state batch.State, results []encoding.Result) {
	if len(results) > 0 {
		rows := make([][]string, 0, len(results))
		for _, result := range results {
			rows = append(rows, []string{
				result.SourceName,
				result.OutputName,
				formatBytes(result.InputBytes),
				formatBytes(result.OutputBytes),
				formatPercent(result.ReductionPercent),
				result.Elapsed.Round(time.Second).String(),
			})
		}
		fmt.Fprintln(out, renderTable([]column{
			left("Source"), left("Output"), right("Input"), right("Output size"), right("Reduction"), right("Time"),
		}, rows))
	}
	fmt.Fprintf(out, "Batch %s: %d succeeded, %d failed, %d skipped\n",
		state.Phase, state.Completed, state.Failed, state.Remaining())
}
