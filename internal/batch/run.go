package batch

import (
	"context"
	"time"

	"vidbatch/internal/catalog"
	"vidbatch/internal/encoding"
	"vidbatch/internal/logging"
	"vidbatch/internal/services"
)

func (c *Controller) run(ctx context.Context, batchID string, jobs []catalog.SourceFile, target encoding.Target) {
	defer c.wg.Done()
	logger := c.logger.With(logging.String(logging.FieldBatchID, batchID))
	started := time.Now()

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("files", len(jobs)),
		logging.Int("resolution", target.Resolution),
		logging.Int("fps", target.FPS),
	)

	cancelled := false
	for idx, file := range jobs {
		if c.cancelRequested() {
			cancelled = true
			break
		}
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		c.setCurrent(file)
		fileCtx := services.WithFileID(ctx, file.ID)
		logger.Info("converting file",
			logging.String(logging.FieldEventType, "file_started"),
			logging.String(logging.FieldFileID, file.ID),
			logging.String(logging.FieldFileName, file.Name),
			logging.Int("index", idx+1),
			logging.Int("total", len(jobs)),
		)

		result, err := c.transcoder.Transcode(fileCtx, encoding.Request{Source: file, Target: target})
		if err != nil {
			progress := c.recordFailure()
			logger.Error("file conversion failed; continuing with next file",
				logging.String(logging.FieldEventType, "file_failed"),
				logging.String(logging.FieldFileID, file.ID),
				logging.String(logging.FieldFileName, file.Name),
				logging.String(logging.FieldErrorCode, services.ErrorCode(err)),
				logging.Float64(logging.FieldProgressPercent, progress),
				logging.Error(err),
			)
			if c.hooks.OnFailure != nil {
				c.hooks.OnFailure(fileCtx, batchID, file, err)
			}
			continue
		}

		progress := c.recordResult(result)
		logger.Info("file converted",
			logging.String(logging.FieldEventType, "file_completed"),
			logging.String(logging.FieldFileID, file.ID),
			logging.String(logging.FieldFileName, file.Name),
			logging.String("output", result.OutputName),
			logging.Float64("reduction_percent", result.ReductionPercent),
			logging.Float64(logging.FieldProgressPercent, progress),
		)
		if c.hooks.OnResult != nil {
			c.hooks.OnResult(fileCtx, batchID, result)
		}
	}

	final := c.finish(cancelled)
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.String("phase", string(final.Phase)),
		logging.Int("succeeded", final.Completed),
		logging.Int("failed", final.Failed),
		logging.Int("skipped", final.Remaining()),
		logging.Duration("elapsed", time.Since(started).Round(time.Second)),
	)
	if c.hooks.OnFinish != nil {
		c.hooks.OnFinish(final)
	}
}

func (c *Controller) cancelRequested() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.CancelRequested
}

func (c *Controller) setCurrent(file catalog.SourceFile) {
	c.mu.Lock()
	c.state.CurrentFile = file.Name
	c.state.CurrentFileID = file.ID
	c.mu.Unlock()
}

func (c *Controller) recordResult(result encoding.Result) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
	c.state.Completed++
	c.state.ProgressPercent = runningProgress(c.state.Attempted(), c.state.Total)
	return c.state.ProgressPercent
}

func (c *Controller) recordFailure() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Failed++
	c.state.ProgressPercent = runningProgress(c.state.Attempted(), c.state.Total)
	return c.state.ProgressPercent
}

func (c *Controller) finish(cancelled bool) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Running = false
	c.state.CurrentFile = ""
	c.state.CurrentFileID = ""
	c.state.ProgressPercent = finalProgress(c.state.Completed)
	c.state.FinishedAt = time.Now().UTC()
	if cancelled {
		c.state.Phase = PhaseCancelled
	} else {
		c.state.Phase = PhaseCompleted
	}
	return c.state
}
