// Package fsutil holds the small filesystem helpers shared by the resume store and the world set.
package fsutil

import (
	"os"
	"path/filepath"

	"github.com/sourcepkg/pkgexec/internal/errors"
)

// WriteFileAtomic writes data to a temporary file next to path and renames it into place, so
// readers see either the old or the new contents and never a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStackTraceAndPrefix(err, "create parent of %s", path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WithStackTraceAndPrefix(err, "create temp file for %s", path)
	}

	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()

		return errors.WithStackTraceAndPrefix(err, "write temp file for %s", path)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()

		return errors.WithStackTraceAndPrefix(err, "sync temp file for %s", path)
	}

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		cleanup()

		return errors.WithStackTraceAndPrefix(err, "chmod temp file for %s", path)
	}

	if err := tmp.Close(); err != nil {
		cleanup()

		return errors.WithStackTraceAndPrefix(err, "close temp file for %s", path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()

		return errors.WithStackTraceAndPrefix(err, "rename temp file to %s", path)
	}

	return nil
}

// FileExists returns true if the given file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
