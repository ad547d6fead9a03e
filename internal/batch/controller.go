package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidbatch/internal/catalog"
	"vidbatch/internal/encoding"
	"vidbatch/internal/logging"
	"vidbatch/internal/services"
)

var (
	// ErrNoFiles is returned when Start is called with an empty job list.
	ErrNoFiles = fmt.Errorf("%w: no files to convert", services.ErrValidation)
	// ErrAlreadyRunning is returned when Start is called while a batch is active.
	ErrAlreadyRunning = fmt.Errorf("%w: a batch is already in progress", services.ErrAlreadyRunning)
)

// Transcoder converts a single file. encoding.Executor satisfies it.
type Transcoder interface {
	Transcode(ctx context.Context, req encoding.Request) (encoding.Result, error)
}

// Hooks receive batch events on the loop goroutine. Any field may be nil.
type Hooks struct {
	OnResult  func(ctx context.Context, batchID string, result encoding.Result)
	OnFailure func(ctx context.Context, batchID string, file catalog.SourceFile, err error)
	OnFinish  func(state State)
}

// Controller owns the batch state and the single worker goroutine.
type Controller struct {
	transcoder Transcoder
	hooks      Hooks
	logger     *slog.Logger

	mu      sync.RWMutex
	state   State
	results []encoding.Result
	wg      sync.WaitGroup
}

// NewController constructs an idle controller.
func NewController(transcoder Transcoder, hooks Hooks, logger *slog.Logger) *Controller {
	return &Controller{
		transcoder: transcoder,
		hooks:      hooks,
		logger:     logging.NewComponentLogger(logger, "batch"),
		state:      State{Phase: PhaseIdle},
	}
}

// Start launches a batch over files and returns immediately with the initial
// state. The batch outlives the request that started it; ctx should be the
// process lifetime context. A running batch rejects the start before the
// target or file list is checked.
func (c *Controller) Start(ctx context.Context, files []catalog.SourceFile, target encoding.Target) (State, error) {
	c.mu.Lock()
	if c.state.Running {
		snapshot := c.state
		c.mu.Unlock()
		logging.WarnWithContext(c.logger, "batch start rejected; a batch is already running", "batch_start_rejected",
			logging.String(logging.FieldBatchID, snapshot.BatchID),
			logging.String(logging.FieldErrorCode, services.ErrorCode(ErrAlreadyRunning)),
			logging.String(logging.FieldErrorHint, "wait for the current batch or stop it first"),
			logging.String(logging.FieldImpact, "request ignored"),
		)
		return snapshot, ErrAlreadyRunning
	}
	if err := target.Validate(); err != nil {
		snapshot := c.state
		c.mu.Unlock()
		return snapshot, err
	}
	if len(files) == 0 {
		snapshot := c.state
		c.mu.Unlock()
		return snapshot, ErrNoFiles
	}

	jobs := append([]catalog.SourceFile(nil), files...)
	c.state = State{
		BatchID:   uuid.NewString(),
		Phase:     PhaseRunning,
		Target:    target,
		Total:     len(jobs),
		Running:   true,
		StartedAt: time.Now().UTC(),
	}
	c.results = nil
	snapshot := c.state
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(services.WithBatchID(ctx, snapshot.BatchID), snapshot.BatchID, jobs, target)

	return snapshot, nil
}

// Stop requests cooperative cancellation. The in-flight file finishes; no
// further files start. Stop on an idle controller is a no-op that returns the
// current state.
func (c *Controller) Stop() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Running && !c.state.CancelRequested {
		c.state.CancelRequested = true
		c.logger.Info("batch stop requested",
			logging.String(logging.FieldBatchID, c.state.BatchID),
			logging.String(logging.FieldEventType, "batch_stop_requested"),
			logging.String("current_file", c.state.CurrentFile),
		)
	}
	return c.state
}

// Wait blocks until the active batch loop, if any, exits.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// State returns a copy of the current batch state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Results returns a copy of the results recorded by the latest batch.
func (c *Controller) Results() []encoding.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]encoding.Result(nil), c.results...)
}

// Running reports whether a batch loop is active.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Running
}
