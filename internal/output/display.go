// Package output multiplexes the output of concurrently running jobs onto one terminal.
//
// Each running job writes into its own Handle. The Display shows the output of one job at a time,
// switching to another job with pending output no more often than the switch interval, and prints
// a status line for jobs that stay silent longer than the idle timeout.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

const (
	DefaultSwitchInterval = 2 * time.Second
	DefaultIdleTimeout    = 10 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond
)

// Display owns the terminal while jobs run.
type Display struct {
	lastSwitch     time.Time
	out            io.Writer
	logger         log.Logger
	handles        *xsync.MapOf[job.Index, *Handle]
	current        *Handle
	shown          *Handle
	clock          func() time.Time
	logDir         string
	switchInterval time.Duration
	idleTimeout    time.Duration
	pollInterval   time.Duration
	termMu         sync.Mutex
}

// Option configures a Display.
type Option func(*Display)

func WithClock(clock func() time.Time) Option {
	return func(d *Display) { d.clock = clock }
}

func WithSwitchInterval(interval time.Duration) Option {
	return func(d *Display) { d.switchInterval = interval }
}

func WithIdleTimeout(timeout time.Duration) Option {
	return func(d *Display) { d.idleTimeout = timeout }
}

func WithPollInterval(interval time.Duration) Option {
	return func(d *Display) { d.pollInterval = interval }
}

// WithLogDir makes every handle tee its output to a log file in dir.
func WithLogDir(dir string) Option {
	return func(d *Display) { d.logDir = dir }
}

func WithLogger(logger log.Logger) Option {
	return func(d *Display) { d.logger = logger }
}

// NewDisplay returns a Display writing to out.
func NewDisplay(out io.Writer, opts ...Option) *Display {
	display := &Display{
		out:            out,
		handles:        xsync.NewMapOf[job.Index, *Handle](),
		clock:          time.Now,
		switchInterval: DefaultSwitchInterval,
		idleTimeout:    DefaultIdleTimeout,
		pollInterval:   DefaultPollInterval,
		logger:         log.Discard(),
	}

	for _, opt := range opts {
		opt(display)
	}

	return display
}

// Open creates and registers the handle for a job that is about to start.
func (d *Display) Open(index job.Index, name string) (*Handle, error) {
	var file *os.File

	if d.logDir != "" {
		if err := os.MkdirAll(d.logDir, 0o755); err != nil {
			return nil, errors.New(err)
		}

		path := filepath.Join(d.logDir, LogFileName(index, name))

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, errors.New(err)
		}

		file = f
	}

	handle := newHandle(index, name, file, d.clock)
	d.handles.Store(index, handle)

	return handle, nil
}

// Close shows whatever the handle still buffers, unregisters it and closes its log file.
// The handle must not be used afterwards.
func (d *Display) Close(handle *Handle) error {
	d.termMu.Lock()
	defer d.termMu.Unlock()

	var errs *errors.MultiError

	errs = errs.Append(d.show(handle))

	if d.current == handle {
		d.current = nil
	}

	d.handles.Delete(handle.index)

	errs = errs.Append(handle.close())

	return errs.ErrorOrNil()
}

// Active returns the registered handles ordered by job index.
func (d *Display) Active() []*Handle {
	var handles []*Handle

	d.handles.Range(func(_ job.Index, handle *Handle) bool {
		handles = append(handles, handle)
		return true
	})

	slices.SortFunc(handles, func(a, b *Handle) int { return int(a.index) - int(b.index) })

	return handles
}

// Tick runs one scheduling step: pick the job to show, flush its output and report idle jobs.
func (d *Display) Tick() {
	now := d.clock()

	d.termMu.Lock()
	defer d.termMu.Unlock()

	active := d.Active()

	if next := d.pick(active, now); next != nil {
		if next != d.current {
			d.current = next
			d.lastSwitch = now
		}

		if err := d.show(next); err != nil {
			d.logger.Warnf("Failed to show output of %s: %v", next.name, err)
		}
	}

	for _, handle := range active {
		if idle, ok := handle.idleFor(now, d.idleTimeout); ok {
			fmt.Fprintf(d.out, "--- no output from %s for %d seconds\n", handle.name, int(idle.Seconds()))

			d.shown = nil
		}
	}
}

// Run ticks until ctx is done, then ticks one last time.
func (d *Display) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.Tick()
			return nil
		case <-ticker.C:
			d.Tick()
		}
	}
}

// pick keeps the current job while it has output to flush, until the switch interval elapsed. Once the
// interval elapsed, or the current job has nothing to flush, it rotates to the next job with pending output.
func (d *Display) pick(active []*Handle, now time.Time) *Handle {
	current := d.current
	if current != nil && !slices.Contains(active, current) {
		current = nil
		d.current = nil
	}

	if current != nil && current.Pending() && now.Sub(d.lastSwitch) < d.switchInterval {
		return current
	}

	start := 0

	if current != nil {
		start = slices.Index(active, current) + 1
	}

	for i := range active {
		candidate := active[(start+i)%len(active)]
		if candidate != current && candidate.Pending() {
			return candidate
		}
	}

	return current
}

// show writes the buffered output of the handle, preceded by a header when another job was shown last.
// termMu must be held.
func (d *Display) show(handle *Handle) error {
	if !handle.Pending() {
		return nil
	}

	if d.shown != handle {
		if _, err := fmt.Fprintf(d.out, ">>> %s\n", handle.name); err != nil {
			return errors.New(err)
		}

		d.shown = handle
	}

	return handle.flushTo(d.out)
}

// LogFileName returns the log file name used for a job.
func LogFileName(index job.Index, name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}

		return '_'
	}, name)

	return fmt.Sprintf("%04d-%s.log", index, safe)
}
