package executor

import (
	"fmt"
	"sync"

	"github.com/sourcepkg/pkgexec/internal/job"
)

// Counts is a point-in-time copy of ExecuteCounts. Install figures include uninstall jobs.
type Counts struct {
	FetchDone      int
	FetchTotal     int
	FetchFailed    int
	FetchSkipped   int
	InstallDone    int
	InstallTotal   int
	InstallFailed  int
	InstallSkipped int
}

// ExecuteCounts tracks progress for display.
type ExecuteCounts struct {
	counts Counts
	mu     sync.Mutex
}

// NewExecuteCounts sizes the totals from the job list.
func NewExecuteCounts(list *job.List) *ExecuteCounts {
	return &ExecuteCounts{
		counts: Counts{
			FetchTotal:   list.Count(job.KindFetch),
			InstallTotal: list.Count(job.KindInstall) + list.Count(job.KindUninstall),
		},
	}
}

// Update counts a job that reached a terminal state.
func (ec *ExecuteCounts) Update(kind job.Kind, state job.State) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	done, failed, skipped := &ec.counts.InstallDone, &ec.counts.InstallFailed, &ec.counts.InstallSkipped
	if kind == job.KindFetch {
		done, failed, skipped = &ec.counts.FetchDone, &ec.counts.FetchFailed, &ec.counts.FetchSkipped
	}

	switch state.(type) {
	case job.Succeeded:
		*done++
	case job.Failed:
		*done++
		*failed++
	case job.Skipped:
		*skipped++
	}
}

// Snapshot returns the current counts.
func (ec *ExecuteCounts) Snapshot() Counts {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	return ec.counts
}

func (ec *ExecuteCounts) String() string {
	return ec.Snapshot().String()
}

// String renders the progress line, e.g. `fetch 3 of 12 (1 failed), install 0 of 12`.
func (counts Counts) String() string {
	return progress("fetch", counts.FetchDone, counts.FetchTotal, counts.FetchFailed, counts.FetchSkipped) +
		", " + progress("install", counts.InstallDone, counts.InstallTotal, counts.InstallFailed, counts.InstallSkipped)
}

func progress(label string, done, total, failed, skipped int) string {
	str := fmt.Sprintf("%s %d of %d", label, done, total)

	switch {
	case failed > 0 && skipped > 0:
		str += fmt.Sprintf(" (%d failed, %d skipped)", failed, skipped)
	case failed > 0:
		str += fmt.Sprintf(" (%d failed)", failed)
	case skipped > 0:
		str += fmt.Sprintf(" (%d skipped)", skipped)
	}

	return str
}
