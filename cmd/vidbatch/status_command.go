package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"vidbatch/internal/api"
	"vidbatch/internal/config"
	"vidbatch/internal/deps"
	"vidbatch/internal/preflight"
)

const (
	requiredEncoder     = "libx264"
	daemonStatusTimeout = time.Second
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, directories and the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := false

			writeSection(out, "Dependencies", colorize)
			statuses := preflight.CheckSystemDeps(cfg)
			statuses = append(statuses, deps.CheckFFmpegEncoder(cmd.Context(), cfg.FFmpegBinary(), requiredEncoder))
			for _, status := range statuses {
				kind := statusOK
				if !status.Available {
					kind = statusError
					failed = true
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, status.Detail, colorize))
			}

			writeSection(out, "Directories", colorize)
			for _, result := range preflight.RunAll(cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failed = true
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			writeSection(out, "Daemon", colorize)
			if status, err := fetchDaemonStatus(cmd.Context(), cfg); err != nil {
				fmt.Fprintln(out, renderStatusLine("API", statusInfo, "not running at "+cfg.Paths.APIBind, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("API", statusOK, fmt.Sprintf("pid %d at %s", status.PID, cfg.Paths.APIBind), colorize))
				fmt.Fprintln(out, renderStatusLine("Files", statusInfo, fmt.Sprintf("%d", status.Files), colorize))
				fmt.Fprintln(out, renderStatusLine("Batch", statusInfo, describeBatch(status.Batch), colorize))
			}

			if failed {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}
}

func writeSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func describeBatch(state api.BatchState) string {
	if state.Phase == "" || state.Phase == "idle" {
		return "idle"
	}
	detail := fmt.Sprintf("%s, %d/%d done, %d failed, %.0f%%", state.Phase, state.Completed, state.Total, state.Failed, state.ProgressPercent)
	if state.CurrentFile != "" {
		detail += ", converting " + state.CurrentFile
	}
	return detail
}

// fetchDaemonStatus queries a `vidbatch serve` process on the configured bind.
func fetchDaemonStatus(ctx context.Context, cfg *config.Config) (api.DaemonStatus, error) {
	reqCtx, cancel := context.WithTimeout(ctx, daemonStatusTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+cfg.Paths.APIBind+"/api/status", nil)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return api.DaemonStatus{}, fmt.Errorf("daemon status: unexpected %s", resp.Status)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return api.DaemonStatus{}, fmt.Errorf("decode daemon status: %w", err)
	}
	return status, nil
}
