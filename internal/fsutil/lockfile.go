package fsutil

import (
	"context"
	"time"

	"github.com/gofrs/flock"
	"github.com/sourcepkg/pkgexec/internal/errors"
)

// DefaultLockRetryDelay is how often a busy lock is retried.
const DefaultLockRetryDelay = 200 * time.Millisecond

// Lockfile is an advisory lock on a file next to the data it protects.
type Lockfile struct {
	*flock.Flock
}

func NewLockfile(filename string) *Lockfile {
	return &Lockfile{flock.New(filename)}
}

// Lock waits until the lock is acquired or ctx is done.
func (lockfile *Lockfile) Lock(ctx context.Context) error {
	locked, err := lockfile.TryLockContext(ctx, DefaultLockRetryDelay)
	if err != nil {
		return errors.WithStackTraceAndPrefix(err, "lock %s", lockfile.Path())
	}

	if !locked {
		return errors.Errorf("unable to lock %s", lockfile.Path())
	}

	return nil
}

// TryLock acquires the lock without waiting. It returns an error if another process holds it.
func (lockfile *Lockfile) TryLock() error {
	locked, err := lockfile.Flock.TryLock()
	if err != nil {
		return errors.WithStackTraceAndPrefix(err, "lock %s", lockfile.Path())
	}

	if !locked {
		return errors.New(LockedError{Path: lockfile.Path()})
	}

	return nil
}

// Unlock releases the lock if it is held.
func (lockfile *Lockfile) Unlock() error {
	if !lockfile.Locked() {
		return nil
	}

	return errors.WithStackTrace(lockfile.Flock.Unlock())
}

// LockedError is returned when another process holds a lock.
type LockedError struct {
	Path string
}

func (err LockedError) Error() string {
	return "file " + err.Path + " is locked by another process"
}
