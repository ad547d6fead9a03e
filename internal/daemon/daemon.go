package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"vidbatch/internal/batch"
	"vidbatch/internal/catalog"
	"vidbatch/internal/config"
	"vidbatch/internal/deps"
	"vidbatch/internal/discovery"
	"vidbatch/internal/encoding"
	"vidbatch/internal/history"
	"vidbatch/internal/logging"
	"vidbatch/internal/preflight"
	"vidbatch/internal/probe"
	"vidbatch/internal/services"
)

// retentionSchedule is the cron spec for log pruning.
const retentionSchedule = "@daily"

// Daemon coordinates the session services and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	hub    *logging.StreamHub
	runner encoding.Runner

	catalog    *catalog.Catalog
	scanner    *discovery.Scanner
	prober     *probe.Prober
	controller *batch.Controller
	history    *history.Store

	lockPath string
	lock     *flock.Flock
	cron     *cron.Cron

	mu             sync.RWMutex
	api            *apiServer
	executor       *encoding.Executor
	workDir        string
	sessionResults []encoding.Result

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Batch        batch.State
	Files        int
	FileCounts   map[catalog.Status]int
	Dependencies []deps.Status
	LockFilePath string
	HistoryPath  string
	WorkDir      string
	OutputDir    string
}

// Option configures optional Daemon behavior.
type Option func(*Daemon)

// WithRunner replaces the process runner used for ffmpeg (used in tests).
func WithRunner(runner encoding.Runner) Option {
	return func(d *Daemon) {
		d.runner = runner
	}
}

// New constructs a daemon with initialized dependencies. Nothing touches the
// filesystem until Start.
func New(cfg *config.Config, logger *slog.Logger, hub *logging.StreamHub, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if hub == nil {
		hub = logging.NewStreamHub(cfg.Logging.TailSize)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		hub:      hub,
		catalog:  catalog.New(),
		scanner:  discovery.NewScanner(logger),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.prober = probe.New(probe.Options{
		Binary:  cfg.FFprobeBinary(),
		Workers: cfg.Probe.Workers,
		Timeout: time.Duration(cfg.Probe.TimeoutSeconds) * time.Second,
	}, logger)
	d.controller = batch.NewController(sessionTranscoder{d: d}, batch.Hooks{
		OnResult:  d.handleResult,
		OnFailure: d.handleFailure,
	}, logger)
	return d, nil
}

// Start acquires the instance lock, prepares the work directory, opens the
// history store and schedules log retention.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return services.Wrap(services.ErrAlreadyRunning, "daemon", "start", "daemon already running", nil)
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "ensure directories", "Failed to create vidbatch directories", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrAlreadyRunning, "daemon", "lock", "another vidbatch instance is already running", nil)
	}

	workDir, err := os.MkdirTemp(d.cfg.Paths.WorkDir, "run-*")
	if err != nil {
		_ = d.lock.Unlock()
		return services.Wrap(services.ErrConfiguration, "daemon", "work dir", "Failed to create work directory", err)
	}

	if d.cfg.History.Enabled {
		store, err := history.Open(d.cfg.HistoryPath())
		if err != nil {
			logging.WarnWithContext(d.logger, "history unavailable; conversions will not be recorded", "history_open_failed",
				logging.Error(err),
				logging.String("path", d.cfg.HistoryPath()),
				logging.String(logging.FieldErrorHint, "delete the history database or run vidbatch history --clear"),
				logging.String(logging.FieldImpact, "history disabled for this session"),
			)
		} else {
			d.history = store
		}
	}

	d.mu.Lock()
	d.workDir = workDir
	d.executor = encoding.NewExecutor(encoding.ExecutorOptions{
		Binary:    d.cfg.FFmpegBinary(),
		OutputDir: d.cfg.Paths.OutputDir,
		WorkDir:   workDir,
		Runner:    d.runner,
	}, d.logger)
	d.mu.Unlock()

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startRetention()
	d.running.Store(true)
	d.logger.Info("vidbatch daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("work_dir", workDir),
		logging.String("output_dir", d.cfg.Paths.OutputDir),
	)
	return nil
}

// Close stops accepting work, waits for in-flight work, removes the work
// directory and releases the lock. A running encode is terminated.
func (d *Daemon) Close() error {
	if !d.running.Swap(false) {
		return nil
	}

	d.mu.RLock()
	srv := d.api
	d.mu.RUnlock()
	srv.stop()

	d.controller.Stop()
	if d.cancel != nil {
		d.cancel()
	}
	d.controller.Wait()
	d.prober.Wait()
	d.stopRetention()

	d.mu.Lock()
	workDir := d.workDir
	d.workDir = ""
	d.executor = nil
	d.api = nil
	d.mu.Unlock()
	if workDir != "" {
		if err := os.RemoveAll(workDir); err != nil {
			d.logger.Warn("work directory cleanup failed", logging.String("work_dir", workDir), logging.Error(err))
		}
	}

	var closeErr error
	if d.history != nil {
		closeErr = d.history.Close()
		d.history = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("vidbatch daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return closeErr
}

// Running reports whether Start has succeeded and Close has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// WorkDir returns the per-session work directory.
func (d *Daemon) WorkDir() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.workDir
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	historyPath := ""
	if d.history != nil {
		historyPath = d.history.Path()
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Batch:        d.controller.State(),
		Files:        d.catalog.Len(),
		FileCounts:   d.catalog.Counts(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
		LockFilePath: d.lockPath,
		HistoryPath:  historyPath,
		WorkDir:      d.WorkDir(),
		OutputDir:    d.cfg.Paths.OutputDir,
	}
}

func (d *Daemon) startRetention() {
	if d.cfg.Logging.RetentionDays <= 0 {
		return
	}
	d.pruneLogs()
	d.cron = cron.New()
	if _, err := d.cron.AddFunc(retentionSchedule, d.pruneLogs); err != nil {
		d.logger.Warn("log retention schedule rejected", logging.Error(err))
		d.cron = nil
		return
	}
	d.cron.Start()
}

func (d *Daemon) stopRetention() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
	d.cron = nil
}

func (d *Daemon) pruneLogs() {
	removed := logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays, logging.LogDirTargets(d.cfg.Paths.LogDir)...)
	if removed > 0 {
		d.logger.Info("old logs pruned", logging.Int("removed", removed), logging.Int("retention_days", d.cfg.Logging.RetentionDays))
	}
}

// sessionTranscoder forwards to the executor created by Start.
type sessionTranscoder struct {
	d *Daemon
}

func (t sessionTranscoder) Transcode(ctx context.Context, req encoding.Request) (encoding.Result, error) {
	t.d.mu.RLock()
	executor := t.d.executor
	t.d.mu.RUnlock()
	if executor == nil {
		return encoding.Result{}, services.Wrap(services.ErrConfiguration, "daemon", "transcode", "daemon is not running", nil)
	}
	return executor.Transcode(ctx, req)
}
