package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrUnknownFile reports an update for an id no longer in the catalog,
	// typically because a newer scan replaced the list.
	ErrUnknownFile = errors.New("catalog: unknown file")
	// ErrInvalidTransition reports an attempt to move a file's status backwards.
	ErrInvalidTransition = errors.New("catalog: invalid status transition")
)

// Catalog is the shared, concurrency-safe list of discovered files. Readers
// receive copies; writers address entries by id.
type Catalog struct {
	mu    sync.RWMutex
	files []SourceFile
	index map[string]int
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Replace swaps in a new file list, preserving its order. Entries without an
// id are assigned one. The stored copies are returned.
func (c *Catalog) Replace(files []SourceFile) []SourceFile {
	next := make([]SourceFile, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		if file.ID == "" {
			file.ID = uuid.NewString()
		}
		if file.Status == "" {
			file.Status = StatusDiscovered
		}
		next[i] = file
		index[file.ID] = i
	}

	c.mu.Lock()
	c.files = next
	c.index = index
	c.mu.Unlock()

	return append([]SourceFile(nil), next...)
}

// Append adds files after the existing entries and returns the stored copies.
// Ids already present are rejected without modifying the catalog.
func (c *Catalog) Append(files ...SourceFile) ([]SourceFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := make([]SourceFile, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	for _, file := range files {
		if file.ID == "" {
			file.ID = uuid.NewString()
		}
		if _, dup := c.index[file.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %s", file.ID)
		}
		if _, dup := seen[file.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %s", file.ID)
		}
		seen[file.ID] = struct{}{}
		if file.Status == "" {
			file.Status = StatusDiscovered
		}
		added = append(added, file)
	}
	for _, file := range added {
		c.index[file.ID] = len(c.files)
		c.files = append(c.files, file)
	}
	return append([]SourceFile(nil), added...), nil
}

// Snapshot returns a copy of the current list in discovery order.
func (c *Catalog) Snapshot() []SourceFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]SourceFile(nil), c.files...)
}

// Get returns a copy of the entry with the given id.
func (c *Catalog) Get(id string) (SourceFile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.index[id]
	if !ok {
		return SourceFile{}, false
	}
	return c.files[idx], true
}

// Len reports the number of files in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// Advance moves the entry with the given id to next and applies mutate to it
// under the catalog lock. The id, path and status fields are restored after
// mutate runs so callers cannot rewrite identity.
func (c *Catalog) Advance(id string, next Status, mutate func(*SourceFile)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, id)
	}
	current := c.files[idx]
	if !current.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}

	updated := current
	if mutate != nil {
		mutate(&updated)
	}
	updated.ID = current.ID
	updated.Path = current.Path
	updated.Status = next
	c.files[idx] = updated
	return nil
}

// Counts tallies files by status.
func (c *Catalog) Counts() map[Status]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[Status]int, len(statusRank))
	for _, file := range c.files {
		counts[file.Status]++
	}
	return counts
}
