package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a held lock is polled.
const lockRetryDelay = 100 * time.Millisecond

// FileLocker is a cross-process lock backed by a lock file, used around
// index creation for file-based engines.
type FileLocker struct {
	path string
}

// NewFileLocker creates a locker for the lock file <dir>/.<name>.lock.
func NewFileLocker(dir, name string) *FileLocker {
	return &FileLocker{path: filepath.Join(dir, "."+name+".lock")}
}

// Path returns the path to the lock file.
func (l *FileLocker) Path() string {
	return l.path
}

// Lock blocks until the lock is acquired or ctx ends.
func (l *FileLocker) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(l.path)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire lock %s", l.path)
	}
	return fl.Unlock, nil
}
