package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const encoderListTimeout = 10 * time.Second

// CheckFFmpegEncoder reports whether the ffmpeg binary was built with the
// named video encoder (for example "libx264"). It parses the output of
// `ffmpeg -hide_banner -encoders`.
func CheckFFmpegEncoder(ctx context.Context, ffmpegBinary, encoder string) Status {
	result := Status{
		Name:        "FFmpeg " + encoder,
		Command:     strings.TrimSpace(ffmpegBinary),
		Description: "Video encoder used for every conversion",
	}
	if result.Command == "" {
		result.Detail = "command not configured"
		return result
	}
	if _, err := exec.LookPath(result.Command); err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", result.Command)
		return result
	}

	checkCtx, cancel := context.WithTimeout(ctx, encoderListTimeout)
	defer cancel()
	out, err := exec.CommandContext(checkCtx, result.Command, "-hide_banner", "-encoders").Output() //nolint:gosec
	if err != nil {
		result.Detail = fmt.Sprintf("list encoders failed: %v", err)
		return result
	}
	if !hasEncoder(out, encoder) {
		result.Detail = fmt.Sprintf("ffmpeg was built without %s", encoder)
		return result
	}
	result.Available = true
	return result
}

// hasEncoder scans ffmpeg's encoder table. Each row is "<flags> <name> <description>".
func hasEncoder(output []byte, encoder string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[1] == encoder && strings.HasPrefix(fields[0], "V") {
			return true
		}
	}
	return false
}
