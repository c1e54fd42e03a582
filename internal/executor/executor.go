// Package executor drives an execute job list to completion.
//
// A single coordinator goroutine walks the list in index order. It alone decides admission,
// transitions job states and owns counters and checkpoints. Fetch jobs run on a bounded worker pool
// sized by the fetch parallelism; install and uninstall jobs run one at a time next to the fetches.
// Workers hand their results back to the coordinator over a channel.
package executor

import (
	"context"
	"io"

	"github.com/sourcepkg/pkgexec/internal/action"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/hooks"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/internal/output"
	"github.com/sourcepkg/pkgexec/internal/queue"
	"github.com/sourcepkg/pkgexec/internal/report"
	"github.com/sourcepkg/pkgexec/internal/repository"
	"github.com/sourcepkg/pkgexec/internal/resume"
	"github.com/sourcepkg/pkgexec/internal/telemetry"
	"github.com/sourcepkg/pkgexec/internal/worker"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

const DefaultFetchJobs = 1

// Executor runs execute job lists.
type Executor struct {
	logger    log.Logger
	runner    action.Runner
	display   *output.Display
	store     *resume.Store
	repos     *repository.Cache
	report    *report.Report
	fetchJobs int
	policy    queue.Policy
	fetchOnly bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithFetchJobs sets how many fetch jobs may run at once. Zero runs fetches inline, one at a time.
func WithFetchJobs(fetchJobs int) Option {
	return func(e *Executor) {
		if fetchJobs < 0 {
			fetchJobs = 0
		}

		e.fetchJobs = fetchJobs
	}
}

// WithPolicy sets the continue-on-failure policy.
func WithPolicy(policy queue.Policy) Option {
	return func(e *Executor) { e.policy = policy }
}

// WithFetchOnly skips every job that is not a fetch.
func WithFetchOnly(fetchOnly bool) Option {
	return func(e *Executor) { e.fetchOnly = fetchOnly }
}

// WithDisplay sets the display that receives job output.
func WithDisplay(display *output.Display) Option {
	return func(e *Executor) { e.display = display }
}

// WithStore enables checkpointing to a resume file.
func WithStore(store *resume.Store) Option {
	return func(e *Executor) { e.store = store }
}

// WithRepositories sets the repository views to invalidate after installs.
func WithRepositories(repos *repository.Cache) Option {
	return func(e *Executor) { e.repos = repos }
}

// WithReport sets the report that records every job.
func WithReport(r *report.Report) Option {
	return func(e *Executor) { e.report = r }
}

// New creates an Executor.
func New(l log.Logger, runner action.Runner, opts ...Option) *Executor {
	e := &Executor{
		logger:    l,
		runner:    runner,
		fetchJobs: DefaultFetchJobs,
		policy:    queue.Never,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.display == nil {
		e.display = output.NewDisplay(io.Discard)
	}

	if e.report == nil {
		e.report = report.NewReport()
	}

	return e
}

// Report returns the report the executor records jobs in.
func (e *Executor) Report() *report.Report {
	return e.report
}

// Outcome is the result of Execute.
type Outcome struct {
	States []job.State
	Counts Counts
	// ExitCode is the bitwise OR of the exit statuses of all failed jobs.
	ExitCode int
	// FullySucceeded is set when nothing is left to do: the resume file has been removed.
	FullySucceeded bool
}

type completion struct {
	handle *output.Handle
	result action.Result
	index  job.Index
}

// run is the state of one Execute call. Only the coordinator goroutine touches it.
type run struct {
	*Executor
	q           *queue.Queue
	data        *resume.Data
	counts      *ExecuteCounts
	pool        *worker.Pool
	completions chan completion
	aborted     *hooks.HookAbortedError
	fatal       error
	inFlight    int
	exitCode    int
	installing  bool
	anyFailure  bool
}

// Execute runs the jobs of data that are not settled yet, starting from the states stored in data.
// Per-job failures end up in the outcome, never in the returned error. An error means the run was
// stopped: a hook aborted it or the job states were inconsistent.
func (e *Executor) Execute(ctx context.Context, data *resume.Data) (*Outcome, error) {
	r, err := e.newRun(data)
	if err != nil {
		return nil, err
	}

	attrs := map[string]any{
		"jobs":       data.ExecuteJobs.Len(),
		"fetch_jobs": r.pool.Size(),
		"policy":     e.policy.String(),
		"fetch_only": e.fetchOnly,
	}

	err = telemetry.TelemeterFromContext(ctx).Collect(ctx, "execute", attrs, r.loop)

	return r.finish(ctx, err)
}

// Abandon closes the books of a run that a hook stopped before any job started. Jobs settled by an
// earlier run are reported as they were, every other job as not run, and the states are checkpointed
// so the run can be resumed. The returned error is the abort itself.
func (e *Executor) Abandon(ctx context.Context, data *resume.Data, aborted hooks.HookAbortedError) (*Outcome, error) {
	r, err := e.newRun(data)
	if err != nil {
		return nil, err
	}

	r.aborted = &aborted
	r.fatal = errors.New(aborted)

	for i := range r.q.Len() {
		if index := job.Index(i); r.q.IsStartable(index) {
			r.honor(index)
		}
	}

	return r.finish(ctx, nil)
}

func (e *Executor) newRun(data *resume.Data) (*run, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}

	q, err := queue.New(data.ExecuteJobs, data.States)
	if err != nil {
		return nil, err
	}

	return &run{
		Executor:    e,
		q:           q,
		data:        data,
		counts:      NewExecuteCounts(data.ExecuteJobs),
		pool:        worker.NewWorkerPool(e.fetchJobs),
		completions: make(chan completion, data.ExecuteJobs.Len()),
	}, nil
}

func (r *run) loop(ctx context.Context) error {
	list := r.q.List()

	for next := 0; next < list.Len(); {
		if ctx.Err() != nil || r.fatal != nil {
			break
		}

		index := job.Index(next)

		if r.q.IsStartable(index) {
			r.honor(index)
			next++

			continue
		}

		if !r.ready(index) {
			if r.inFlight == 0 {
				return errors.New(StalledError{Index: index})
			}

			r.await(ctx)

			continue
		}

		r.admit(ctx, index)
		next++

		if r.fetchJobs == 0 {
			r.drain(ctx)
		}
	}

	r.drain(ctx)

	return nil
}

// ready reports whether the job can be decided on now. Fetch jobs wait for their fetch gates only.
// Install and uninstall jobs wait for all their requirements and for the previous install to end.
// Once something failed, every job also waits for the requirements its policy verdict depends on.
func (r *run) ready(index job.Index) bool {
	j := r.q.List().Job(index)

	if r.fetchOnly && j.Kind() != job.KindFetch {
		return true
	}

	if j.Kind() != job.KindFetch {
		return !r.installing && r.q.RequirementsSettled(index)
	}

	if !r.q.CanRunUnderGate(index) {
		return false
	}

	return !r.anyFailure || r.q.PolicyRequirementsSettled(index, r.policy)
}

func (r *run) await(ctx context.Context) {
	r.complete(ctx, <-r.completions)
}

func (r *run) drain(ctx context.Context) {
	for r.inFlight > 0 {
		r.await(ctx)
	}
}

// honor accounts for a job that a previous run already settled.
func (r *run) honor(index job.Index) {
	j := r.q.List().Job(index)
	state := r.q.State(index)

	r.counts.Update(j.Kind(), state)

	switch state := state.(type) {
	case job.Succeeded:
		r.record(index, j, report.WithResult(report.ResultSucceeded), report.WithReason(report.ReasonEarlierRun),
			report.WithOutput(string(state.Output)))
	case job.Failed:
		status := state.ExitCode
		if status == 0 {
			status = 1
		}

		r.exitCode |= status
		r.anyFailure = true

		r.record(index, j, report.WithResult(report.ResultFailed), report.WithReason(report.ReasonEarlierRun),
			report.WithExitCode(status), report.WithOutput(string(state.Output)))
	case job.Skipped:
		reason := report.ReasonEarlierRun
		if state.Reason == resume.ReasonSkipFailed {
			reason = report.ReasonPreviouslyFailed
		}

		r.record(index, j, report.WithResult(report.ResultSkipped), report.WithReason(reason))
	}
}

func (r *run) admit(ctx context.Context, index job.Index) {
	j := r.q.List().Job(index)

	if r.fetchOnly && j.Kind() != job.KindFetch {
		r.skip(ctx, index, report.ReasonFetchOnly)

		return
	}

	if blocker, blocked := r.q.BlockingRequirement(index, r.policy, r.anyFailure); blocked {
		opts := []report.EndOption{}
		if blocker != index {
			opts = append(opts, report.WithCauseRequirement(blocker, r.q.List().Job(blocker)))
		}

		r.skip(ctx, index, report.ReasonFailurePolicy, opts...)

		return
	}

	r.dispatch(ctx, index, j)
}

func (r *run) skip(ctx context.Context, index job.Index, reason report.Reason, opts ...report.EndOption) {
	j := r.q.List().Job(index)

	if err := r.q.Transition(index, job.Skipped{Reason: string(reason)}); err != nil {
		r.fatal = err

		return
	}

	r.logger.WithField(log.FieldKeyPrefix, j.Description()).Debugf("Skipped: %s", reason)

	r.counts.Update(j.Kind(), r.q.State(index))

	opts = append([]report.EndOption{report.WithResult(report.ResultSkipped), report.WithReason(reason)}, opts...)
	r.record(index, j, opts...)

	r.checkpoint(ctx, false)
}

func (r *run) dispatch(ctx context.Context, index job.Index, j job.Job) {
	l := r.logger.WithField(log.FieldKeyPrefix, j.Description())

	handle, openErr := r.display.Open(index, j.Description())
	if openErr != nil {
		l.Warnf("Failed to open output for job %d: %v", index, openErr)
	}

	var ref job.OutputRef
	if handle != nil {
		ref = handle.Ref()
	}

	if err := r.q.Transition(index, job.Active{Output: ref}); err != nil {
		r.fatal = err

		if handle != nil {
			_ = r.display.Close(handle)
		}

		return
	}

	if err := r.report.AddRun(r.report.NewRun(index, j)); err != nil {
		l.Debugf("Failed to add job %d to the report: %v", index, err)
	}

	if j.Kind() == job.KindFetch {
		l.Debugf("Starting job %d, %d of %d fetch slots busy", index, r.pool.Busy(), r.pool.Size())
	} else {
		l.Debugf("Starting job %d", index)
	}

	r.inFlight++

	task := func() error {
		result := action.Result{Err: openErr}
		if openErr == nil {
			result = r.perform(ctx, index, j, handle)
		}

		r.completions <- completion{index: index, handle: handle, result: result}

		return nil
	}

	if j.Kind() == job.KindFetch {
		r.pool.Submit(task)

		return
	}

	r.installing = true

	go func() { _ = task() }()
}

func (r *run) perform(ctx context.Context, index job.Index, j job.Job, out io.Writer) (result action.Result) {
	defer errors.Recover(func(err error) {
		result = action.Result{Err: err}
	})

	attrs := map[string]any{
		"index": int(index),
		"kind":  j.Kind().String(),
		"job":   j.Description(),
	}

	_ = telemetry.TelemeterFromContext(ctx).Collect(ctx, "job", attrs, func(ctx context.Context) error {
		result = r.runner.Run(ctx, action.Request{Job: j, Phase: action.PhaseOf(j), Index: index}, out)

		if !result.Succeeded() {
			return errors.ErrorWithExitCode{Err: result.Err, ExitCode: result.Status()}
		}

		return nil
	})

	return result
}

func (r *run) complete(ctx context.Context, c completion) {
	r.inFlight--

	j := r.q.List().Job(c.index)
	l := r.logger.WithField(log.FieldKeyPrefix, j.Description())

	if j.Kind() != job.KindFetch {
		r.installing = false
	}

	defer r.closeHandle(l, c.handle)

	var ref job.OutputRef
	if c.handle != nil {
		ref = c.handle.Ref()
	}

	// A job cut off by the interruption stays Active; resuming starts it again.
	if !c.result.Succeeded() && ctx.Err() != nil {
		l.Warnf("Job %d interrupted", c.index)
		r.checkpoint(ctx, false)

		return
	}

	var state job.State = job.Succeeded{Output: ref}
	if !c.result.Succeeded() {
		state = job.Failed{Output: ref, ExitCode: c.result.Status()}
	}

	if err := r.q.Transition(c.index, state); err != nil {
		r.fatal = err

		return
	}

	r.counts.Update(j.Kind(), state)

	telemetry.TelemeterFromContext(ctx).Count(ctx, "job", 1, map[string]any{
		"kind":   j.Kind().String(),
		"status": state.Status().String(),
	})

	if c.result.Succeeded() {
		r.endRun(c.index, report.WithOutput(string(ref)))
	} else {
		r.exitCode |= c.result.Status()
		r.anyFailure = true

		if c.result.Err != nil {
			l.Errorf("Job %d failed: %v", c.index, c.result.Err)
		} else {
			l.Errorf("Job %d failed with exit status %d", c.index, c.result.Status())
		}

		r.endRun(c.index,
			report.WithResult(report.ResultFailed),
			report.WithReason(report.ReasonRunError),
			report.WithExitCode(c.result.Status()),
			report.WithOutput(string(ref)),
		)
	}

	if install, ok := j.(job.InstallJob); ok && r.repos != nil {
		r.repos.Invalidate(install.Destination)
	}

	var aborted hooks.HookAbortedError
	if errors.As(c.result.Err, &aborted) && r.aborted == nil {
		r.aborted = &aborted
		r.fatal = errors.New(aborted)
	}

	r.checkpoint(ctx, false)

	l.Infof("Completed job %d, %s", c.index, r.counts)
}

func (r *run) closeHandle(l log.Logger, handle *output.Handle) {
	if handle == nil {
		return
	}

	if err := r.display.Close(handle); err != nil {
		l.Debugf("Failed to close output of job %d: %v", handle.Index(), err)
	}
}

func (r *run) record(index job.Index, j job.Job, opts ...report.EndOption) {
	if err := r.report.Record(index, j, opts...); err != nil {
		r.logger.Debugf("Failed to record job %d: %v", index, err)
	}
}

func (r *run) endRun(index job.Index, opts ...report.EndOption) {
	if err := r.report.EndRun(index, opts...); err != nil {
		r.logger.Debugf("Failed to end job %d in the report: %v", index, err)
	}
}

// checkpoint writes the current states. Failures are logged and the run goes on.
func (r *run) checkpoint(ctx context.Context, fullySucceeded bool) {
	if r.store == nil {
		return
	}

	data := *r.data
	data.States = r.q.Snapshot()

	if err := r.store.Checkpoint(ctx, &data, fullySucceeded); err != nil {
		r.logger.Warnf("Failed to write resume file %s: %v", r.store.Path(), err)
	}
}

func (r *run) finish(ctx context.Context, loopErr error) (*Outcome, error) {
	var errs *errors.MultiError

	errs = errs.Append(loopErr)
	errs = errs.Append(r.fatal)
	errs = errs.Append(r.pool.GracefulStop())

	reason := report.ReasonInterrupted
	if r.aborted != nil {
		reason = report.ReasonHookAborted
	}

	states := r.q.Snapshot()
	fullySucceeded := errs.ErrorOrNil() == nil && ctx.Err() == nil && r.exitCode == 0 && !r.fetchOnly

	list := r.q.List()

	for i, state := range states {
		index := job.Index(i)

		opts := []report.EndOption{report.WithResult(report.ResultPending), report.WithReason(reason)}
		if r.aborted != nil {
			opts = append(opts, report.WithCauseHook(string(r.aborted.Hook)))
		}

		switch state.(type) {
		case job.Pending:
			fullySucceeded = false

			r.record(index, list.Job(index), opts...)
		case job.Active:
			fullySucceeded = false

			r.endRun(index, opts...)
		case job.Failed:
			fullySucceeded = false
		}
	}

	r.checkpoint(ctx, fullySucceeded)

	outcome := &Outcome{
		States:         states,
		Counts:         r.counts.Snapshot(),
		ExitCode:       r.exitCode,
		FullySucceeded: fullySucceeded,
	}

	return outcome, errs.ErrorOrNil()
}
