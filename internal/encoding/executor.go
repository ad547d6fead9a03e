package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidbatch/internal/catalog"
	"vidbatch/internal/fileutil"
	"vidbatch/internal/logging"
	"vidbatch/internal/services"
)

// stderrTailLines is how much ffmpeg output is logged on failure.
const stderrTailLines = 20

// Request is one file to convert.
type Request struct {
	Source catalog.SourceFile
	Target Target
}

// Result describes a finished conversion. It is never mutated after it is
// returned.
type Result struct {
	SourceID         string        `json:"source_id"`
	SourcePath       string        `json:"source_path"`
	SourceName       string        `json:"source_name"`
	OutputPath       string        `json:"output_path"`
	OutputName       string        `json:"output_name"`
	InputBytes       int64         `json:"input_bytes"`
	OutputBytes      int64         `json:"output_bytes"`
	ReductionPercent float64       `json:"reduction_percent"`
	Resolution       int           `json:"resolution"`
	FPS              int           `json:"fps"`
	Elapsed          time.Duration `json:"elapsed"`
	CompletedAt      time.Time     `json:"completed_at"`
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Binary    string
	OutputDir string
	WorkDir   string
	Runner    Runner
}

// Executor runs one ffmpeg encode at a time on behalf of the batch loop.
type Executor struct {
	binary    string
	outputDir string
	workDir   string
	runner    Runner
	names     *nameReservations
	logger    *slog.Logger
}

// NewExecutor builds an executor. A nil Runner falls back to ExecRunner.
func NewExecutor(opts ExecutorOptions, logger *slog.Logger) *Executor {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Executor{
		binary:    binary,
		outputDir: opts.OutputDir,
		workDir:   opts.WorkDir,
		runner:    runner,
		names:     newNameReservations(),
		logger:    logging.NewComponentLogger(logger, "encoder"),
	}
}

// Transcode converts req.Source and returns the result once the output file
// sits in the output directory. The encode itself has no deadline; only ctx
// cancellation stops it.
func (e *Executor) Transcode(ctx context.Context, req Request) (Result, error) {
	src := req.Source
	logger := e.logger.With(
		logging.String(logging.FieldFileID, src.ID),
		logging.String(logging.FieldFileName, src.Name),
	)

	info, err := os.Stat(src.Path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "encoding", "stat source", "Source file is not readable", err)
	}
	inputBytes := info.Size()

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "encoding", "prepare output", "Failed to create output directory", err)
	}
	if err := os.MkdirAll(e.workDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "encoding", "prepare work dir", "Failed to create work directory", err)
	}

	finalPath, err := e.names.reserve(e.outputDir, OutputName(src.Path, req.Target))
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "encoding", "reserve output", "Failed to choose output name", err)
	}
	partial := filepath.Join(e.workDir, "partial-"+uuid.NewString()+".mp4")

	fail := func(err error) (Result, error) {
		e.names.release(finalPath)
		if rmErr := fileutil.RemoveIfExists(partial); rmErr != nil {
			logger.Warn("partial output cleanup failed",
				logging.String("partial", partial),
				logging.Error(rmErr),
			)
		}
		return Result{}, err
	}

	params := SelectParams(req.Target.Resolution, req.Target.FPS)
	args := params.Args(src.Path, partial)
	logger.Info("encode started",
		logging.String(logging.FieldEventType, "encode_started"),
		logging.String("tier", params.Tier),
		logging.Int("resolution", req.Target.Resolution),
		logging.Int("fps", req.Target.FPS),
		logging.String("output", filepath.Base(finalPath)),
	)
	logger.Debug("ffmpeg command", logging.String("binary", e.binary), logging.Any("args", args))

	started := time.Now()
	proc, runErr := e.runner.Run(ctx, e.binary, args)
	stderrTail := lastLines(proc.Stderr, stderrTailLines)
	switch {
	case runErr != nil:
		e.logFailure(logger, "ffmpeg did not run to completion", proc, stderrTail, runErr)
		return fail(services.Wrap(services.ErrExternalTool, "encoding", "ffmpeg", "Encoder failed to run", runErr))
	case proc.ExitCode != 0:
		exitErr := fmt.Errorf("exit status %d", proc.ExitCode)
		e.logFailure(logger, "ffmpeg exited with an error", proc, stderrTail, exitErr)
		return fail(services.Wrap(services.ErrExternalTool, "encoding", "ffmpeg", "Encoder exited with non-zero status", exitErr))
	}

	outInfo, err := os.Stat(partial)
	if err != nil || outInfo.Size() == 0 {
		if err == nil {
			err = errors.New("output file is empty")
		}
		e.logFailure(logger, "ffmpeg produced no output", proc, stderrTail, err)
		return fail(services.Wrap(services.ErrExternalTool, "encoding", "ffmpeg", "Encoder produced no output", err))
	}

	if err := fileutil.MoveFile(partial, finalPath); err != nil {
		return fail(services.Wrap(services.ErrTransient, "encoding", "finalize output", "Failed to move encoded artifact into output directory", err))
	}

	result := Result{
		SourceID:         src.ID,
		SourcePath:       src.Path,
		SourceName:       src.Name,
		OutputPath:       finalPath,
		OutputName:       filepath.Base(finalPath),
		InputBytes:       inputBytes,
		OutputBytes:      outInfo.Size(),
		ReductionPercent: ReductionPercent(inputBytes, outInfo.Size()),
		Resolution:       req.Target.Resolution,
		FPS:              req.Target.FPS,
		Elapsed:          time.Since(started),
		CompletedAt:      time.Now().UTC(),
	}
	logger.Info("encode complete",
		logging.String(logging.FieldEventType, "encode_complete"),
		logging.String("output", result.OutputName),
		logging.Int64("input_bytes", result.InputBytes),
		logging.Int64("output_bytes", result.OutputBytes),
		logging.Float64("reduction_percent", result.ReductionPercent),
		logging.Duration("elapsed", result.Elapsed.Round(time.Second)),
	)
	return result, nil
}

func (e *Executor) logFailure(logger *slog.Logger, msg string, proc ProcessResult, stderrTail string, err error) {
	logging.ErrorWithContext(logger, msg, "encode_failed",
		logging.Int("exit_code", proc.ExitCode),
		logging.String("stderr_tail", stderrTail),
		logging.String(logging.FieldErrorCode, services.ErrorCode(services.ErrExternalTool)),
		logging.String(logging.FieldErrorHint, "check the ffmpeg output above and that the source file plays"),
		logging.Error(err),
	)
}

// ReductionPercent returns how much smaller output is than input, as a
// percentage rounded to two decimals. Zero input yields 0.
func ReductionPercent(inputBytes, outputBytes int64) float64 {
	if inputBytes <= 0 {
		return 0
	}
	pct := float64(inputBytes-outputBytes) * 100 / float64(inputBytes)
	return math.Round(pct*100) / 100
}
