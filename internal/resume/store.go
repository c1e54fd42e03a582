package resume

import (
	"bytes"
	"context"
	"os"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/fsutil"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

// Store keeps the checkpoint of one run in a file.
type Store struct {
	codec  *Codec
	lock   *fsutil.Lockfile
	logger log.Logger
	path   string
}

// NewStore returns a store for path. The lock file lives next to it.
func NewStore(l log.Logger, path string, codec *Codec) *Store {
	return &Store{
		codec:  codec,
		lock:   fsutil.NewLockfile(path + ".lock"),
		logger: l,
		path:   path,
	}
}

func (store *Store) Path() string {
	return store.path
}

// Lock claims the resume file for this process. A second run using the same file fails instead of waiting.
func (store *Store) Lock() error {
	return store.lock.TryLock()
}

func (store *Store) Unlock() error {
	return store.lock.Unlock()
}

// Exists reports whether a checkpoint is present.
func (store *Store) Exists() bool {
	return fsutil.FileExists(store.path)
}

// Checkpoint persists data atomically, or deletes the file once the run fully succeeded.
func (store *Store) Checkpoint(_ context.Context, data *Data, fullySucceeded bool) error {
	if fullySucceeded {
		return store.Delete()
	}

	var buf bytes.Buffer
	if err := store.codec.Encode(&buf, data); err != nil {
		return err
	}

	if err := fsutil.WriteFileAtomic(store.path, buf.Bytes(), 0o644); err != nil {
		return err
	}

	store.logger.Tracef("Wrote resume file %s", store.path)

	return nil
}

// Load reads the checkpoint.
func (store *Store) Load() (*Data, error) {
	file, err := os.Open(store.path)
	if os.IsNotExist(err) {
		return nil, errors.New(NotFoundError{Path: store.path})
	}

	if err != nil {
		return nil, errors.New(err)
	}

	defer file.Close()

	return store.codec.Decode(file)
}

// Delete removes the checkpoint if it exists.
func (store *Store) Delete() error {
	if err := os.Remove(store.path); err != nil && !os.IsNotExist(err) {
		return errors.New(err)
	}

	store.logger.Debugf("Removed resume file %s", store.path)

	return nil
}
