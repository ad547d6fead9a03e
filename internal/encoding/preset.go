package encoding

import (
	"fmt"
	"strconv"

	"vidbatch/internal/services"
)

const (
	MinFPS        = 5
	MaxFPS        = 60
	MaxResolution = 4320

	videoCodec   = "libx264"
	videoProfile = "high"
	videoLevel   = "4.1"
	audioCodec   = "aac"
	audioBitrate = "128k"
	pixelFormat  = "yuv420p"
	moveFlags    = "+faststart"
)

// Target is the requested output height and frame rate for a batch.
type Target struct {
	Resolution int `json:"resolution"`
	FPS        int `json:"fps"`
}

// Validate rejects heights outside 1..MaxResolution and frame rates outside
// MinFPS..MaxFPS.
func (t Target) Validate() error {
	if t.Resolution <= 0 || t.Resolution > MaxResolution {
		return services.Wrap(
			services.ErrValidation,
			"encoding",
			"validate target",
			fmt.Sprintf("resolution %d must be between 1 and %d", t.Resolution, MaxResolution),
			nil,
		)
	}
	if t.FPS < MinFPS || t.FPS > MaxFPS {
		return services.Wrap(
			services.ErrValidation,
			"encoding",
			"validate target",
			fmt.Sprintf("fps %d must be between %d and %d", t.FPS, MinFPS, MaxFPS),
			nil,
		)
	}
	return nil
}

// Params is the resolved ffmpeg parameter set for one encode.
type Params struct {
	Tier         string
	Scale        string
	FPS          int
	VideoBitrate string
	MaxRate      string
	BufSize      string
}

type ladderRung struct {
	scale   string
	bitrate string
	maxRate string
	bufSize string
}

var ladder = map[int]ladderRung{
	1080: {scale: "scale=1920:-2", bitrate: "2500k", maxRate: "3000k", bufSize: "5000k"},
	720:  {scale: "scale=1280:-2", bitrate: "1800k", maxRate: "2000k", bufSize: "3600k"},
	480:  {scale: "scale=854:-2", bitrate: "1000k", maxRate: "1200k", bufSize: "2000k"},
}

// SelectParams returns the parameter set for the given height and frame rate.
// 1080, 720 and 480 use fixed width-locked rungs; any other height scales to
// that height with the low bitrate rung.
func SelectParams(resolution, fps int) Params {
	if rung, ok := ladder[resolution]; ok {
		return Params{
			Tier:         strconv.Itoa(resolution),
			Scale:        rung.scale,
			FPS:          fps,
			VideoBitrate: rung.bitrate,
			MaxRate:      rung.maxRate,
			BufSize:      rung.bufSize,
		}
	}
	return Params{
		Tier:         "generic",
		Scale:        fmt.Sprintf("scale=-2:%d", resolution),
		FPS:          fps,
		VideoBitrate: "500k",
		MaxRate:      "600k",
		BufSize:      "1000k",
	}
}

// Args renders the full ffmpeg argument list for input and output.
func (p Params) Args(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vf", p.Scale,
		"-r", strconv.Itoa(p.FPS),
		"-c:v", videoCodec,
		"-profile:v", videoProfile,
		"-level", videoLevel,
		"-b:v", p.VideoBitrate,
		"-maxrate", p.MaxRate,
		"-bufsize", p.BufSize,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-pix_fmt", pixelFormat,
		"-movflags", moveFlags,
		output,
	}
}
