package executor

import (
	"context"
	"io"
	"strings"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/hooks"
	"github.com/sourcepkg/pkgexec/internal/resume"
	"github.com/sourcepkg/pkgexec/internal/telemetry"
	"github.com/sourcepkg/pkgexec/internal/world"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

// Task is one invocation of the engine: the pretend checks, the jobs, the world update and the
// summary, with the lifecycle hooks fired around them.
type Task struct {
	logger     log.Logger
	executor   *Executor
	hooks      hooks.Runner
	world      *world.Coordinator
	out        io.Writer
	reportFile string
	pretend    bool
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// WithHooks sets the hook runner.
func WithHooks(runner hooks.Runner) TaskOption {
	return func(t *Task) { t.hooks = runner }
}

// WithWorld sets the coordinator that updates the world set after a successful run.
func WithWorld(coordinator *world.Coordinator) TaskOption {
	return func(t *Task) { t.world = coordinator }
}

// WithOutput sets where the plan and the summary are written.
func WithOutput(out io.Writer) TaskOption {
	return func(t *Task) { t.out = out }
}

// WithReportFile also writes the report to path.
func WithReportFile(path string) TaskOption {
	return func(t *Task) { t.reportFile = path }
}

// WithPretend stops after the pretend checks and prints the plan.
func WithPretend(pretend bool) TaskOption {
	return func(t *Task) { t.pretend = pretend }
}

// NewTask creates a Task running its jobs on executor.
func NewTask(l log.Logger, executor *Executor, opts ...TaskOption) *Task {
	t := &Task{
		logger:   l,
		executor: executor,
		hooks:    hooks.Nop,
		out:      io.Discard,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Run performs the task and returns the process exit code. A non-nil error is always paired with
// a non-zero exit code.
func (t *Task) Run(ctx context.Context, data *resume.Data) (int, error) {
	var exitCode int

	err := telemetry.TelemeterFromContext(ctx).Collect(ctx, "task", map[string]any{
		"run_id":  data.RunID,
		"targets": strings.Join(data.Targets, " "),
		"pretend": t.pretend,
	}, func(ctx context.Context) error {
		var err error

		exitCode, err = t.run(ctx, data)

		return err
	})

	if err != nil && exitCode == 0 {
		exitCode = 1
	}

	return exitCode, err
}

func (t *Task) run(ctx context.Context, data *resume.Data) (int, error) {
	params := t.params(data)

	if err := t.fire(ctx, hooks.InstallTaskExecutePre, params); err != nil {
		return 1, err
	}

	if data.PretendJobs != nil && data.PretendJobs.Len() > 0 {
		if exitCode, err := t.runPretend(ctx, data, params); err != nil {
			return exitCode, err
		}
	}

	if t.pretend {
		if err := RenderPlan(t.out, data.ExecuteJobs, data.States); err != nil {
			return 1, err
		}

		return t.finish(ctx, params, 0, nil)
	}

	if err := t.fire(ctx, hooks.InstallAllPre, params); err != nil {
		return t.abandon(ctx, data, params, err)
	}

	outcome, execErr := t.executor.Execute(ctx, data)
	if outcome == nil {
		return 1, execErr
	}

	var errs *errors.MultiError

	errs = errs.Append(execErr)
	exitCode := outcome.ExitCode

	if execErr == nil && ctx.Err() == nil {
		if err := t.fire(ctx, hooks.InstallAllPost, params); err != nil {
			errs = errs.Append(err)
			exitCode |= 1
		}
	}

	if outcome.FullySucceeded && !data.PreserveWorld && t.world != nil {
		err := t.world.Apply(ctx, world.Update{
			Targets:                 data.Targets,
			WorldSpecs:              data.WorldSpecs,
			RemovedIfDependentNames: data.RemovedIfDependentNames,
			TargetIsSet:             data.TargetIsSet,
		})
		if err != nil {
			errs = errs.Append(errors.WithStackTraceAndPrefix(err, "failed to update the world set"))
			exitCode |= 1
		}
	}

	if ctx.Err() != nil {
		errs = errs.Append(errors.New(ctx.Err()))
	}

	t.summarize(outcome)

	return t.finish(ctx, params, exitCode, errs.ErrorOrNil())
}

// abandon records a run vetoed by install_all_pre: the jobs stay pending in the resume file and the
// summary lists them as not run.
func (t *Task) abandon(ctx context.Context, data *resume.Data, params hooks.Params, abortErr error) (int, error) {
	var aborted hooks.HookAbortedError
	if !errors.As(abortErr, &aborted) {
		return 1, abortErr
	}

	outcome, err := t.executor.Abandon(ctx, data, aborted)
	if outcome == nil {
		return 1, errors.Join(abortErr, err)
	}

	t.summarize(outcome)

	return t.finish(ctx, params, outcome.ExitCode|1, abortErr)
}

func (t *Task) summarize(outcome *Outcome) {
	if err := t.executor.Report().WriteSummary(t.out); err != nil {
		t.logger.Warnf("Failed to write summary: %v", err)
	}

	if t.reportFile != "" {
		if err := t.executor.Report().WriteToFile(t.reportFile); err != nil {
			t.logger.Warnf("Failed to write report %s: %v", t.reportFile, err)
		}
	}

	t.logger.Infof("Finished: %s", outcome.Counts)
}

func (t *Task) runPretend(ctx context.Context, data *resume.Data, params hooks.Params) (int, error) {
	if err := t.fire(ctx, hooks.PretendAllPre, params); err != nil {
		return 1, err
	}

	if err := t.executor.Pretend(ctx, data.PretendJobs, t.out); err != nil {
		var failed PretendFailedError
		if errors.As(err, &failed) && failed.ExitCode != 0 {
			return failed.ExitCode, err
		}

		return 1, err
	}

	if err := t.fire(ctx, hooks.PretendAllPost, params); err != nil {
		return 1, err
	}

	return 0, nil
}

func (t *Task) finish(ctx context.Context, params hooks.Params, exitCode int, err error) (int, error) {
	if hookErr := t.fire(ctx, hooks.InstallTaskExecutePost, params); hookErr != nil {
		return exitCode | 1, errors.Join(err, hookErr)
	}

	if err != nil && exitCode == 0 {
		exitCode = 1
	}

	return exitCode, err
}

// fire runs the hook. A failing pre hook is turned into a HookAbortedError.
func (t *Task) fire(ctx context.Context, name hooks.Name, params hooks.Params) error {
	t.logger.Debugf("Firing hook %s", name)

	err := t.hooks.Fire(ctx, name, params)
	if err == nil {
		return nil
	}

	if name.IsPre() {
		return errors.New(hooks.HookAbortedError{Hook: name, Err: err})
	}

	return err
}

func (t *Task) params(data *resume.Data) hooks.Params {
	params := hooks.Params{hooks.ParamTargets: strings.Join(data.Targets, " ")}

	if t.executor.store != nil {
		params[hooks.ParamResumeFile] = t.executor.store.Path()
	}

	return params
}
