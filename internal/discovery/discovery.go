package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidbatch/internal/catalog"
	"vidbatch/internal/logging"
	"vidbatch/internal/services"
)

// videoExtensions lists the recognised container extensions (lowercase, with leading dot).
var videoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".flv":  true,
}

// IsVideoFile reports whether name carries one of the recognised video
// extensions, ignoring case.
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// Extensions returns the recognised extensions without the leading dot.
func Extensions() []string {
	return []string{"mp4", "avi", "mov", "mkv", "webm", "flv"}
}

// InvalidPathError reports a scan root that is missing or not a directory.
type InvalidPathError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidPathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid scan root %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid scan root %q: %s", e.Path, e.Reason)
}

// Unwrap exposes the underlying filesystem error.
func (e *InvalidPathError) Unwrap() error { return e.Err }

// Is lets callers match the error with services.ErrInvalidPath.
func (e *InvalidPathError) Is(target error) bool { return target == services.ErrInvalidPath }

// Scanner walks a directory tree for video files.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner constructs a scanner that logs skipped subtrees to logger.
func NewScanner(logger *slog.Logger) *Scanner {
	return &Scanner{logger: logging.NewComponentLogger(logger, "discovery")}
}

// Scan walks root recursively and returns a SourceFile in status discovered
// for every video file, in lexical walk order. Unreadable subdirectories are
// skipped; only a bad root fails the scan.
func (s *Scanner) Scan(ctx context.Context, root string) ([]catalog.SourceFile, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, &InvalidPathError{Path: root, Reason: "path is empty"}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &InvalidPathError{Path: root, Reason: "cannot resolve", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &InvalidPathError{Path: abs, Reason: "does not exist", Err: err}
	}
	// WalkDir does not descend into a symlinked root.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, &InvalidPathError{Path: abs, Reason: "cannot resolve", Err: err}
	}
	abs = resolved
	if !info.IsDir() {
		return nil, &InvalidPathError{Path: abs, Reason: "not a directory"}
	}

	now := time.Now().UTC()
	var files []catalog.SourceFile
	skipped := 0
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == abs {
				return walkErr
			}
			skipped++
			logging.WarnWithContext(s.logger, "skipping unreadable path", "discovery_skip",
				logging.String("path", path),
				logging.Error(walkErr),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "files below this path are not listed"),
			)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsVideoFile(d.Name()) {
			return nil
		}
		fileInfo, err := d.Info()
		if err != nil {
			skipped++
			s.logger.Debug("stat failed; file skipped", logging.String("path", path), logging.Error(err))
			return nil
		}
		if !fileInfo.Mode().IsRegular() {
			return nil
		}
		files = append(files, catalog.SourceFile{
			Name:         d.Name(),
			Path:         path,
			SizeBytes:    fileInfo.Size(),
			Duration:     catalog.UnknownDuration,
			Status:       catalog.StatusDiscovered,
			DiscoveredAt: now,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &InvalidPathError{Path: abs, Reason: "walk failed", Err: err}
	}

	s.logger.Info("scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.String("root", abs),
		logging.Int("files", len(files)),
		logging.Int("skipped", skipped),
	)
	return files, nil
}
