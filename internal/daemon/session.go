package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidbatch/internal/batch"
	"vidbatch/internal/catalog"
	"vidbatch/internal/config"
	"vidbatch/internal/discovery"
	"vidbatch/internal/encoding"
	"vidbatch/internal/logging"
	"vidbatch/internal/preflight"
	"vidbatch/internal/services"
	"vidbatch/internal/textutil"
)

// uploadDirName is the subdirectory of the input directory that receives uploads.
const uploadDirName = "uploads"

func (d *Daemon) requireRunning(op string) error {
	if !d.running.Load() {
		return services.Wrap(services.ErrConfiguration, "daemon", op, "daemon is not running", nil)
	}
	return nil
}

// Scan replaces the catalog with the video files under root and schedules
// probing in the background. An empty root scans the configured input
// directory. The returned list reflects the catalog before any probe result.
func (d *Daemon) Scan(ctx context.Context, root string) ([]catalog.SourceFile, error) {
	if err := d.requireRunning("scan"); err != nil {
		return nil, err
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = d.cfg.Paths.InputDir
	}
	expanded, err := config.ExpandPath(root)
	if err != nil {
		return nil, &discovery.InvalidPathError{Path: root, Reason: "cannot expand path", Err: err}
	}

	files, err := d.scanner.Scan(ctx, expanded)
	if err != nil {
		return nil, err
	}
	stored := d.catalog.Replace(files)
	d.prober.Schedule(d.ctx, d.catalog, stored)
	d.logger.Info("scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.String("root", expanded),
		logging.Int("files", len(stored)),
	)
	return stored, nil
}

// Files returns the current catalog.
func (d *Daemon) Files() []catalog.SourceFile {
	return d.catalog.Snapshot()
}

// WaitForProbes blocks until every scheduled probe has finished.
func (d *Daemon) WaitForProbes() {
	d.prober.Wait()
}

// StartBatch converts every file in the catalog to target on the background
// worker. The output directory must be writable. The batch runs under the
// daemon's lifetime context, not the caller's.
func (d *Daemon) StartBatch(target encoding.Target) (batch.State, error) {
	if err := d.requireRunning("start batch"); err != nil {
		return d.controller.State(), err
	}
	// A running batch is reported by the controller ahead of other checks.
	if !d.controller.Running() {
		if check := preflight.CheckDirectoryAccess("Output directory", d.cfg.Paths.OutputDir); !check.Passed {
			return d.controller.State(), services.Wrap(services.ErrConfiguration, "daemon", "preflight", check.Detail, nil)
		}
	}
	return d.controller.Start(d.ctx, d.catalog.Snapshot(), target)
}

// StopBatch requests cooperative cancellation of the running batch.
func (d *Daemon) StopBatch() batch.State {
	return d.controller.Stop()
}

// WaitForBatch blocks until the running batch, if any, finishes.
func (d *Daemon) WaitForBatch() {
	d.controller.Wait()
}

// BatchState returns the current batch progress.
func (d *Daemon) BatchState() batch.State {
	return d.controller.State()
}

// Results returns every conversion completed during this session, oldest first.
func (d *Daemon) Results() []encoding.Result {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]encoding.Result(nil), d.sessionResults...)
}

// Logs returns the newest limit log events. Non-positive limits use the
// configured tail size.
func (d *Daemon) Logs(limit int) []logging.LogEvent {
	if limit <= 0 {
		limit = d.cfg.Logging.TailSize
	}
	events, _ := d.hub.Tail(limit)
	return events
}

// LogsSince returns up to limit events newer than sequence since, plus the
// cursor to pass on the next call. With wait set it blocks until an event
// arrives or ctx ends; an expired wait is not an error.
func (d *Daemon) LogsSince(ctx context.Context, since uint64, limit int, wait bool) ([]logging.LogEvent, uint64, error) {
	if limit <= 0 {
		limit = d.cfg.Logging.TailSize
	}
	events, next, err := d.hub.Fetch(ctx, since, limit, wait)
	if len(events) > 0 || errors.Is(err, context.DeadlineExceeded) {
		return events, next, nil
	}
	return events, next, err
}

// ResolveOutput maps a download name to a file inside the output directory.
// Names with path separators or parent references are rejected.
func (d *Daemon) ResolveOutput(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", services.Wrap(services.ErrNotFound, "daemon", "resolve output", fmt.Sprintf("no output named %q", name), nil)
	}
	path := filepath.Join(d.cfg.Paths.OutputDir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "daemon", "resolve output", fmt.Sprintf("no output named %q", name), nil)
		}
		return "", services.Wrap(services.ErrTransient, "daemon", "resolve output", "stat output", err)
	}
	if !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrNotFound, "daemon", "resolve output", fmt.Sprintf("%q is not a file", name), nil)
	}
	return path, nil
}

// Upload stores content under <input_dir>/uploads, appends it to the catalog
// and schedules a probe. Existing files are never overwritten.
func (d *Daemon) Upload(filename string, content io.Reader) (catalog.SourceFile, error) {
	if err := d.requireRunning("upload"); err != nil {
		return catalog.SourceFile{}, err
	}
	base := textutil.SanitizeFileName(filepath.Base(strings.TrimSpace(filename)))
	if base == "" || !discovery.IsVideoFile(base) {
		return catalog.SourceFile{}, services.Wrap(services.ErrValidation, "daemon", "upload",
			fmt.Sprintf("unsupported file %q; expected one of %s", filename, strings.Join(discovery.Extensions(), ", ")), nil)
	}
	if strings.TrimSpace(d.cfg.Paths.InputDir) == "" {
		return catalog.SourceFile{}, services.Wrap(services.ErrConfiguration, "daemon", "upload", "paths.input_dir is not set", nil)
	}
	dir := filepath.Join(d.cfg.Paths.InputDir, uploadDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return catalog.SourceFile{}, services.Wrap(services.ErrConfiguration, "daemon", "upload", "Failed to create upload directory", err)
	}

	path, err := encoding.UniqueOutputPath(dir, base)
	if err != nil {
		return catalog.SourceFile{}, services.Wrap(services.ErrTransient, "daemon", "upload", "Failed to choose upload name", err)
	}
	size, err := writeExclusive(path, content)
	if err != nil {
		return catalog.SourceFile{}, services.Wrap(services.ErrTransient, "daemon", "upload", "Failed to store upload", err)
	}

	added, err := d.catalog.Append(catalog.SourceFile{
		Name:         filepath.Base(path),
		Path:         path,
		SizeBytes:    size,
		Status:       catalog.StatusDiscovered,
		DiscoveredAt: time.Now().UTC(),
	})
	if err != nil {
		return catalog.SourceFile{}, services.Wrap(services.ErrTransient, "daemon", "upload", "Failed to list upload", err)
	}
	d.prober.Schedule(d.ctx, d.catalog, added)
	d.logger.Info("upload stored",
		logging.String(logging.FieldEventType, "upload_stored"),
		logging.String(logging.FieldFileID, added[0].ID),
		logging.String(logging.FieldFileName, added[0].Name),
		logging.Int64("size_bytes", size),
	)
	return added[0], nil
}

func writeExclusive(path string, content io.Reader) (int64, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	written, copyErr := io.Copy(file, content)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return 0, errors.Join(copyErr, closeErr)
	}
	return written, nil
}

func (d *Daemon) handleResult(ctx context.Context, batchID string, result encoding.Result) {
	d.mu.Lock()
	d.sessionResults = append(d.sessionResults, result)
	d.mu.Unlock()

	if d.history == nil {
		return
	}
	if _, err := d.history.Record(ctx, batchID, result); err != nil {
		logging.WarnWithContext(d.logger, "history record failed", "history_record_failed",
			logging.String(logging.FieldBatchID, batchID),
			logging.String(logging.FieldFileName, result.SourceName),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database under state_dir"),
			logging.String(logging.FieldImpact, "conversion succeeded but is missing from history"),
		)
	}
}

func (d *Daemon) handleFailure(_ context.Context, _ string, file catalog.SourceFile, err error) {
	advanceErr := d.catalog.Advance(file.ID, catalog.StatusError, func(f *catalog.SourceFile) {
		f.Error = err.Error()
	})
	if advanceErr != nil {
		d.logger.Debug("catalog entry not marked failed", logging.String(logging.FieldFileID, file.ID), logging.Error(advanceErr))
	}
}
