package probe

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"vidbatch/internal/catalog"
	"vidbatch/internal/logging"
	"vidbatch/internal/services"
)

const (
	defaultWorkers = 4
	defaultTimeout = 30 * time.Second
)

// Metadata is what probing extracts from a media file.
type Metadata struct {
	DurationSeconds float64
	FPS             float64
	Width           int
	Height          int
}

// Prober annotates catalog entries with ffprobe metadata on a bounded pool.
// The worker bound is shared by every scheduled pass.
type Prober struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	slots   *semaphore.Weighted

	wg sync.WaitGroup
}

// Options tunes the probe pool.
type Options struct {
	Binary  string
	Workers int
	Timeout time.Duration
}

// New constructs a prober. Zero options fall back to ffprobe on PATH, four
// workers and a 30 second per-file timeout.
func New(opts Options, logger *slog.Logger) *Prober {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Prober{
		binary:  opts.Binary,
		timeout: opts.Timeout,
		logger:  logging.NewComponentLogger(logger, "probe"),
		slots:   semaphore.NewWeighted(int64(opts.Workers)),
	}
}

// Probe reads metadata for one file. It fails when ffprobe fails, when the
// file has no video stream, or when the duration is malformed.
func (p *Prober) Probe(ctx context.Context, path string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := inspectMedia(ctx, p.binary, path)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrProbe, "probe", "ffprobe", "inspect failed", err)
	}
	video, ok := result.VideoStream()
	if !ok {
		return Metadata{}, services.Wrap(services.ErrProbe, "probe", "streams", "no video stream", nil)
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration < 0 {
		return Metadata{}, services.Wrap(services.ErrProbe, "probe", "duration", "malformed duration", nil)
	}
	return Metadata{
		DurationSeconds: duration,
		FPS:             video.FrameRate(),
		Width:           video.Width,
		Height:          video.Height,
	}, nil
}

// Schedule probes files in the background and returns immediately. Each
// entry moves to probing, then to ready or probe_failed. Failures are logged
// and recorded on the entry; they are never returned. Entries that were
// replaced in the catalog meanwhile are skipped.
func (p *Prober) Schedule(ctx context.Context, cat *catalog.Catalog, files []catalog.SourceFile) {
	if len(files) == 0 {
		return
	}
	pending := append([]catalog.SourceFile(nil), files...)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		group, groupCtx := errgroup.WithContext(ctx)
		for _, file := range pending {
			if err := p.slots.Acquire(groupCtx, 1); err != nil {
				break
			}
			group.Go(func() error {
				defer p.slots.Release(1)
				p.probeEntry(groupCtx, cat, file)
				return nil
			})
		}
		_ = group.Wait()
		p.logger.Debug("probe pass finished", logging.Int("files", len(pending)))
	}()
}

// Wait blocks until every scheduled probe pass has finished.
func (p *Prober) Wait() {
	p.wg.Wait()
}

func (p *Prober) probeEntry(ctx context.Context, cat *catalog.Catalog, file catalog.SourceFile) {
	logger := p.logger.With(logging.String(logging.FieldFileID, file.ID), logging.String(logging.FieldFileName, file.Name))

	if err := cat.Advance(file.ID, catalog.StatusProbing, nil); err != nil {
		logSkip(logger, err)
		return
	}

	meta, err := p.Probe(ctx, file.Path)
	if err != nil {
		logging.WarnWithContext(logger, "probe failed; file stays convertible with unknown metadata", "probe_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorCode, services.ErrorCode(err)),
			logging.String(logging.FieldErrorHint, "verify the file plays and ffprobe is installed"),
			logging.String(logging.FieldImpact, "duration and frame rate shown as unknown"),
		)
		advanceErr := cat.Advance(file.ID, catalog.StatusProbeFailed, func(f *catalog.SourceFile) {
			f.Duration = catalog.UnknownDuration
			f.DurationSeconds = 0
			f.FPS = 0
			f.Width = 0
			f.Height = 0
			f.Error = err.Error()
		})
		if advanceErr != nil {
			logSkip(logger, advanceErr)
		}
		return
	}

	advanceErr := cat.Advance(file.ID, catalog.StatusReady, func(f *catalog.SourceFile) {
		f.DurationSeconds = meta.DurationSeconds
		f.Duration = catalog.FormatDuration(meta.DurationSeconds)
		f.FPS = meta.FPS
		f.Width = meta.Width
		f.Height = meta.Height
		f.Error = ""
	})
	if advanceErr != nil {
		logSkip(logger, advanceErr)
		return
	}
	logger.Debug("probe complete",
		logging.String("duration", catalog.FormatDuration(meta.DurationSeconds)),
		logging.Float64("fps", meta.FPS),
		logging.Int("width", meta.Width),
		logging.Int("height", meta.Height),
	)
}

func logSkip(logger *slog.Logger, err error) {
	if errors.Is(err, catalog.ErrUnknownFile) {
		logger.Debug("probe result dropped; file no longer listed", logging.Error(err))
		return
	}
	logger.Debug("probe result dropped", logging.Error(err))
}
