package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"zestsync/internal/services"
)

// InstanceLock is the single-instance guard for a state directory.
type InstanceLock struct {
	path string
	lock *flock.Flock
}

// AcquireInstanceLock takes the lock at path without blocking.
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrAlreadyInProgress, "server", "lock", "zestsync is already running for "+filepath.Dir(path), nil)
	}
	return &InstanceLock{path: path, lock: lock}, nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string { return l.path }

// Release unlocks the file.
func (l *InstanceLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
