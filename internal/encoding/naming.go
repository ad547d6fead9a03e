package encoding

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vidbatch/internal/textutil"
)

// maxNameAttempts bounds the counter suffix search.
const maxNameAttempts = 10000

// OutputName derives "<stem>_<res>p_<fps>fps.mp4" from the source path.
func OutputName(sourcePath string, target Target) string {
	return fmt.Sprintf("%s_%dp_%dfps.mp4", textutil.FileStem(sourcePath), target.Resolution, target.FPS)
}

// nameReservations tracks output paths handed out but not yet written so two
// encodes in the same session never pick the same name.
type nameReservations struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

func newNameReservations() *nameReservations {
	return &nameReservations{claimed: make(map[string]struct{})}
}

// reserve returns the first free path for name in dir, appending _1, _2, ...
// before the extension when the plain name is taken on disk or already
// claimed.
func (r *nameReservations) reserve(dir, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		candidate := name
		if attempt > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
		}
		path := filepath.Join(dir, candidate)
		if _, taken := r.claimed[path]; taken {
			continue
		}
		_, err := os.Lstat(path)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		r.claimed[path] = struct{}{}
		return path, nil
	}
	return "", fmt.Errorf("no free output name for %s after %d attempts", name, maxNameAttempts)
}

func (r *nameReservations) release(path string) {
	r.mu.Lock()
	delete(r.claimed, path)
	r.mu.Unlock()
}

// UniqueOutputPath returns the first path in dir for name that does not exist
// yet, using the same suffix scheme as the executor.
func UniqueOutputPath(dir, name string) (string, error) {
	return newNameReservations().reserve(dir, name)
}
