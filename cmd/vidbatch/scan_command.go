package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"vidbatch/internal/catalog"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "Discover and probe the videos under a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			d, _, err := ctx.newSessionDaemon()
			if err != nil {
				return err
			}
			if err := d.Start(cmd.Context()); err != nil {
				return err
			}
			defer d.Close()

			if _, err := d.Scan(cmd.Context(), root); err != nil {
				return err
			}
			d.WaitForProbes()
			printFiles(cmd.OutOrStdout(), d.Files())
			return nil
		},
	}
}

func printFiles(out io.Writer, files []catalog.SourceFile) {
	if len(files) == 0 {
		fmt.Fprintln(out, "No video files found")
		return
	}
	rows := make([][]string, 0, len(files))
	for i, file := range files {
		resolution := file.Resolution()
		if resolution == "" {
			resolution = "-"
		}
		fps := "-"
		if file.FPS > 0 {
			fps = strconv.FormatFloat(file.FPS, 'f', 2, 64)
		}
		duration := file.Duration
		if duration == "" {
			duration = catalog.UnknownDuration
		}
		status := string(file.Status)
		if file.Error != "" {
			status += ": " + file.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			file.Name,
			formatBytes(file.SizeBytes),
			duration,
			resolution,
			fps,
			status,
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		right("#"), left("File"), right("Size"), right("Duration"), left("Resolution"), right("FPS"), left("Status"),
	}, rows))
}
