// Package world maintains the world set, the list of packages and sets the user asked for explicitly.
package world

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"slices"
	"strings"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/fsutil"
)

// Set is the world set as seen by the coordinator.
type Set interface {
	Add(ctx context.Context, entries ...string) error
	Remove(ctx context.Context, entries ...string) error
}

// FileSet stores the world set as a file with one entry per line. Every change is made under an
// advisory lock and written atomically.
type FileSet struct {
	lock *fsutil.Lockfile
	path string
}

func NewFileSet(path string) *FileSet {
	return &FileSet{path: path, lock: fsutil.NewLockfile(path + ".lock")}
}

func (set *FileSet) Path() string {
	return set.path
}

// Entries returns the current entries in file order.
func (set *FileSet) Entries() ([]string, error) {
	data, err := os.ReadFile(set.path)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.New(err)
	}

	var entries []string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			entries = append(entries, line)
		}
	}

	return entries, errors.WithStackTrace(scanner.Err())
}

// Add appends entries that are not present yet.
func (set *FileSet) Add(ctx context.Context, entries ...string) error {
	return set.update(ctx, func(current []string) []string {
		for _, entry := range entries {
			if !slices.Contains(current, entry) {
				current = append(current, entry)
			}
		}

		return current
	})
}

// Remove drops the given entries.
func (set *FileSet) Remove(ctx context.Context, entries ...string) error {
	return set.update(ctx, func(current []string) []string {
		return slices.DeleteFunc(current, func(entry string) bool {
			return slices.Contains(entries, entry)
		})
	})
}

func (set *FileSet) update(ctx context.Context, change func([]string) []string) error {
	if err := set.lock.Lock(ctx); err != nil {
		return err
	}

	defer set.lock.Unlock() //nolint:errcheck

	current, err := set.Entries()
	if err != nil {
		return err
	}

	before := slices.Clone(current)

	updated := change(current)
	if slices.Equal(before, updated) {
		return nil
	}

	var buf bytes.Buffer
	for _, entry := range updated {
		buf.WriteString(entry)
		buf.WriteByte('\n')
	}

	return fsutil.WriteFileAtomic(set.path, buf.Bytes(), 0o644)
}
