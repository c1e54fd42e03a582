package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sourcepkg/pkgexec/internal/action"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/executor"
	"github.com/sourcepkg/pkgexec/internal/hooks"
	"github.com/sourcepkg/pkgexec/internal/output"
	"github.com/sourcepkg/pkgexec/internal/plan"
	"github.com/sourcepkg/pkgexec/internal/report"
	"github.com/sourcepkg/pkgexec/internal/repository"
	"github.com/sourcepkg/pkgexec/internal/resume"
	"github.com/sourcepkg/pkgexec/internal/telemetry"
	"github.com/sourcepkg/pkgexec/internal/world"
	"github.com/sourcepkg/pkgexec/options"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

// Execute runs a plan. A resume file left by an earlier run takes precedence over the plan; with
// resumeOnly a missing resume file is an error.
func Execute(ctx context.Context, opts *options.RunOptions, resumeOnly bool) error {
	l := opts.Logger

	opts.Telemetry.AppVersion = EngineVersion()

	tlm, err := telemetry.NewTelemeter(ctx, opts.Telemetry, opts.ErrWriter)
	if err != nil {
		return err
	}

	defer func() {
		if err := tlm.Shutdown(context.WithoutCancel(ctx)); err != nil {
			l.Debugf("Failed to shut down telemetry: %v", err)
		}
	}()

	ctx = telemetry.ContextWithTelemeter(ctx, tlm)
	ctx = log.ContextWithLogger(ctx, l)

	store, err := openStore(opts)
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.Lock(); err != nil {
			return err
		}

		defer func() {
			if err := store.Unlock(); err != nil {
				l.Debugf("Failed to unlock %s: %v", store.Path(), err)
			}
		}()
	}

	data, err := runData(opts, store, resumeOnly)
	if err != nil {
		return err
	}

	runner, err := action.NewCommandRunner(l, opts.ActionCommand, opts.ActionEnv)
	if err != nil {
		return errors.WithStackTraceAndPrefix(err, "set --%s or the action block of the config file", FlagNameActionCommand)
	}

	hookRunner, err := hooks.NewCommandRunner(l, opts.Writer, opts.Hooks)
	if err != nil {
		return err
	}

	display := output.NewDisplay(opts.Writer,
		output.WithLogDir(opts.OutputDir),
		output.WithIdleTimeout(opts.IdleTimeout),
		output.WithSwitchInterval(opts.SwitchInterval),
		output.WithLogger(l),
	)

	rep := report.NewReport(
		report.WithShowColor(!opts.NoColor && isTerminal(os.Stdout)),
		report.WithShowJobLevelSummary(opts.JobSummary),
		report.WithFormat(report.FormatFromPath(opts.ReportFile)),
	)

	execOpts := []executor.Option{
		executor.WithFetchJobs(opts.FetchJobs),
		executor.WithPolicy(opts.ContinueOnFailure),
		executor.WithFetchOnly(opts.FetchOnly),
		executor.WithDisplay(display),
		executor.WithReport(rep),
	}

	if store != nil {
		execOpts = append(execOpts, executor.WithStore(store))
	}

	if opts.RepositoryDir != "" {
		execOpts = append(execOpts, executor.WithRepositories(repository.NewCache(repository.DirLoader(opts.RepositoryDir))))
	}

	task := executor.NewTask(l.WithField(log.FieldKeyRunID, data.RunID), executor.New(l, runner, execOpts...),
		executor.WithHooks(hookRunner),
		executor.WithWorld(world.NewCoordinator(l, world.NewFileSet(opts.WorldFile), nil)),
		executor.WithOutput(opts.Writer),
		executor.WithReportFile(opts.ReportFile),
		executor.WithPretend(opts.Pretend),
	)

	displayCtx, stopDisplay := context.WithCancel(context.WithoutCancel(ctx))

	group, displayCtx := errgroup.WithContext(displayCtx)
	group.Go(func() error {
		return display.Run(displayCtx)
	})

	exitCode, err := task.Run(ctx, data)

	stopDisplay()

	if displayErr := group.Wait(); displayErr != nil {
		l.Debugf("Display stopped: %v", displayErr)
	}

	if err != nil || exitCode != 0 {
		return errors.ErrorWithExitCode{Err: err, ExitCode: exitCode}
	}

	return nil
}

func openStore(opts *options.RunOptions) (*resume.Store, error) {
	if opts.ResumeFile == "" {
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.ResumeFile), 0o755); err != nil {
		return nil, errors.New(err)
	}

	codec, err := resume.NewCodec(EngineVersion())
	if err != nil {
		return nil, err
	}

	return resume.NewStore(opts.Logger, opts.ResumeFile, codec), nil
}

// runData returns the interrupted run from the store, reconciled with the retry flags, or a fresh run
// of the plan.
func runData(opts *options.RunOptions, store *resume.Store, resumeOnly bool) (*resume.Data, error) {
	if store != nil && store.Exists() {
		data, err := store.Load()
		if err != nil {
			return nil, err
		}

		data.States, err = resume.Reconcile(data.States, opts.ReconcileOptions())
		if err != nil {
			return nil, err
		}

		data.PreserveWorld = data.PreserveWorld || opts.PreserveWorld

		opts.Logger.Infof("Resuming run %s from %s", data.RunID, store.Path())

		return data, nil
	}

	if resumeOnly {
		path := opts.ResumeFile
		if store != nil {
			path = store.Path()
		}

		return nil, errors.New(resume.NotFoundError{Path: path})
	}

	p, err := loadPlan(opts)
	if err != nil {
		return nil, err
	}

	return p.ResumeData(uuid.NewString(), opts.PreserveWorld), nil
}

func loadPlan(opts *options.RunOptions) (*plan.Plan, error) {
	switch {
	case opts.PlanFD != options.NoPlanFD:
		return plan.LoadFD(opts.PlanFD)
	case opts.PlanFile != "":
		return plan.LoadFile(opts.PlanFile)
	}

	return nil, errors.Errorf("no plan given: use --%s or --%s", FlagNamePlan, FlagNamePlanFD)
}
