package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vidbatch/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var clearAll bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if clearAll {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d history entries\n", removed)
				return nil
			}

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No conversions recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.CompletedAt.Local().Format("2006-01-02 15:04"),
					entry.SourceName,
					entry.OutputName,
					fmt.Sprintf("%dp/%dfps", entry.Resolution, entry.FPS),
					formatBytes(entry.InputBytes),
					formatBytes(entry.OutputBytes),
					formatPercent(entry.ReductionPercent),
					entry.Elapsed.Round(time.Second).String(),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				right("ID"), left("Completed"), left("Source"), left("Output"), left("Target"),
				right("Input"), right("Output size"), right("Reduction"), right("Time"),
			}, rows))
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Showing %d of %d conversions\n", len(entries), total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Maximum entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete every history entry")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
