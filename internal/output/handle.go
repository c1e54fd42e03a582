package output

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
)

// Handle collects the output of one running job. Output is buffered until the Display decides
// to show it; when a log directory is configured it is also written to a per-job log file.
type Handle struct {
	clock          func() time.Time
	lastActivity   time.Time
	lastIdleNotice time.Time
	file           *os.File
	buffer         *bytes.Buffer
	name           string
	path           string
	index          job.Index
	mu             sync.Mutex
	closed         bool
}

func newHandle(index job.Index, name string, file *os.File, clock func() time.Time) *Handle {
	handle := &Handle{
		index:  index,
		name:   name,
		file:   file,
		buffer: &bytes.Buffer{},
		clock:  clock,
	}

	if file != nil {
		handle.path = file.Name()
	}

	handle.lastActivity = clock()

	return handle
}

// Index returns the index of the job the handle belongs to.
func (handle *Handle) Index() job.Index {
	return handle.index
}

func (handle *Handle) Name() string {
	return handle.name
}

// Ref returns the reference stored in the job state, the log file path if there is one.
func (handle *Handle) Ref() job.OutputRef {
	return job.OutputRef(handle.path)
}

// Write appends the contents of p to the buffer and the log file.
func (handle *Handle) Write(p []byte) (int, error) {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.closed {
		return 0, errors.Errorf("output of %s is already closed", handle.name)
	}

	if handle.file != nil {
		if _, err := handle.file.Write(p); err != nil {
			return 0, errors.New(err)
		}
	}

	n, err := handle.buffer.Write(p)
	if err != nil {
		return n, errors.New(err)
	}

	if n > 0 {
		handle.lastActivity = handle.clock()
	}

	return n, nil
}

// Pending reports whether there is output not yet shown.
func (handle *Handle) Pending() bool {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	return handle.buffer.Len() > 0
}

// LastActivity returns when the job last produced output, or when it started.
func (handle *Handle) LastActivity() time.Time {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	return handle.lastActivity
}

// flushTo moves the buffered output to out.
func (handle *Handle) flushTo(out io.Writer) error {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.buffer.Len() == 0 {
		return nil
	}

	if _, err := handle.buffer.WriteTo(out); err != nil {
		return errors.New(err)
	}

	return nil
}

// idleFor reports how long the job has been quiet if it deserves a notice at now.
func (handle *Handle) idleFor(now time.Time, timeout time.Duration) (time.Duration, bool) {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	idle := now.Sub(handle.lastActivity)
	if idle < timeout {
		return 0, false
	}

	if !handle.lastIdleNotice.IsZero() && handle.lastIdleNotice.After(handle.lastActivity) && now.Sub(handle.lastIdleNotice) < timeout {
		return 0, false
	}

	handle.lastIdleNotice = now

	return idle, true
}

func (handle *Handle) close() error {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.closed {
		return nil
	}

	handle.closed = true

	if handle.file != nil {
		if err := handle.file.Close(); err != nil {
			return errors.New(err)
		}
	}

	return nil
}
