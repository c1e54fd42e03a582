// Package report collects the outcome of every job of a run and renders it as a summary table or
// as a CSV/JSON report file.
package report

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
)

// Report captures data for a report/summary.
type Report struct {
	clock               func() time.Time
	runs                []*Run
	format              Format
	mu                  sync.RWMutex
	shouldColor         bool
	showJobLevelSummary bool
}

// Run captures the outcome of one job.
type Run struct {
	Started  time.Time
	Ended    time.Time
	Reason   *Reason
	Cause    *Cause
	Name     string
	Kind     string
	Output   string
	Result   Result
	Index    job.Index
	ExitCode int

	mu sync.RWMutex
}

// Result captures the result of a run.
type Result string

// Reason captures why a job ended the way it did.
type Reason string

// Cause names the job or hook responsible for the reason.
type Cause string

const (
	ResultSucceeded Result = "succeeded"
	ResultFailed    Result = "failed"
	ResultSkipped   Result = "skipped"
	ResultPending   Result = "pending"
)

const (
	ReasonRunError         Reason = "run error"
	ReasonFailurePolicy    Reason = "failure policy"
	ReasonFetchOnly        Reason = "fetch only"
	ReasonEarlierRun       Reason = "earlier run"
	ReasonPreviouslyFailed Reason = "failed in an earlier run"
	ReasonInterrupted      Reason = "interrupted"
	ReasonHookAborted      Reason = "hook aborted"
)

// Option configures a Report.
type Option func(*Report)

// WithShowColor enables ANSI colors in the summary.
func WithShowColor(shouldColor bool) Option {
	return func(r *Report) { r.shouldColor = shouldColor }
}

// WithShowJobLevelSummary lists every job in the summary instead of the totals only.
func WithShowJobLevelSummary(show bool) Option {
	return func(r *Report) { r.showJobLevelSummary = show }
}

// WithFormat sets the format used by WriteToFile.
func WithFormat(format Format) Option {
	return func(r *Report) { r.format = format }
}

// WithClock replaces the clock used to stamp runs.
func WithClock(clock func() time.Time) Option {
	return func(r *Report) { r.clock = clock }
}

// NewReport creates a new report.
func NewReport(opts ...Option) *Report {
	report := &Report{
		runs:   make([]*Run, 0),
		clock:  time.Now,
		format: FormatCSV,
	}

	for _, opt := range opts {
		opt(report)
	}

	return report
}

// NewRun creates a new run for the job at index.
func (r *Report) NewRun(index job.Index, j job.Job) *Run {
	return &Run{
		Index:   index,
		Name:    j.Description(),
		Kind:    j.Kind().String(),
		Started: r.clock(),
		Result:  ResultPending,
	}
}

// ErrRunAlreadyExists is returned when a run already exists in the report.
var ErrRunAlreadyExists = errors.New("run already exists")

// ErrRunNotFound is returned when a run is not found in the report.
var ErrRunNotFound = errors.New("run not found")

// AddRun adds a run to the report.
func (r *Report) AddRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.runs {
		if existing.Index == run.Index {
			return errors.Errorf("%w: job %d", ErrRunAlreadyExists, run.Index)
		}
	}

	r.runs = append(r.runs, run)

	return nil
}

// GetRun returns the run of the job at index.
func (r *Report) GetRun(index job.Index) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, run := range r.runs {
		if run.Index == index {
			return run, nil
		}
	}

	return nil, errors.Errorf("%w: job %d", ErrRunNotFound, index)
}

// EndRun ends a run. By default the run is assumed to have succeeded; pass WithResult to change that.
func (r *Report) EndRun(index job.Index, endOptions ...EndOption) error {
	run, err := r.GetRun(index)
	if err != nil {
		return err
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	run.Ended = r.clock()
	run.Result = ResultSucceeded

	for _, endOption := range endOptions {
		endOption(run)
	}

	return nil
}

// Record adds a run that ended without running, for skipped jobs and jobs settled by an earlier run.
func (r *Report) Record(index job.Index, j job.Job, endOptions ...EndOption) error {
	run := r.NewRun(index, j)
	run.Ended = run.Started

	for _, endOption := range endOptions {
		endOption(run)
	}

	return r.AddRun(run)
}

// Runs returns the runs ordered by job index.
func (r *Report) Runs() []*Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := slices.Clone(r.runs)
	slices.SortFunc(runs, func(a, b *Run) int { return int(a.Index) - int(b.Index) })

	return runs
}

// EndOption are optional configurations for ending a run.
type EndOption func(*Run)

// WithResult sets the result of a run.
func WithResult(result Result) EndOption {
	return func(run *Run) { run.Result = result }
}

// WithReason sets the reason of a run.
func WithReason(reason Reason) EndOption {
	return func(run *Run) { run.Reason = &reason }
}

// WithExitCode sets the exit status of the job's action.
func WithExitCode(code int) EndOption {
	return func(run *Run) { run.ExitCode = code }
}

// WithOutput records where the job's output went.
func WithOutput(output string) EndOption {
	return func(run *Run) { run.Output = output }
}

// WithCauseRequirement names the requirement that made a job skip.
func WithCauseRequirement(index job.Index, j job.Job) EndOption {
	return withCause(fmt.Sprintf("%d: %s", index, j.Description()))
}

// WithCauseHook names the hook that aborted the run.
func WithCauseHook(name string) EndOption {
	return withCause(name)
}

func withCause(name string) EndOption {
	return func(run *Run) {
		cause := Cause(name)
		run.Cause = &cause
	}
}
