package cli

import (
	"context"
	"os"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/executor"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/internal/report"
	"github.com/sourcepkg/pkgexec/options"
)

// Status prints the jobs and the summary of the run stored in the resume file.
func Status(_ context.Context, opts *options.RunOptions) error {
	store, err := openStore(opts)
	if err != nil {
		return err
	}

	if store == nil || !store.Exists() {
		_, err := opts.Writer.Write([]byte("No interrupted run.\n"))
		return errors.WithStackTrace(err)
	}

	data, err := store.Load()
	if err != nil {
		return err
	}

	if err := executor.RenderPlan(opts.Writer, data.ExecuteJobs, data.States); err != nil {
		return err
	}

	rep := report.NewReport(
		report.WithShowColor(!opts.NoColor && isTerminal(os.Stdout)),
		report.WithShowJobLevelSummary(opts.JobSummary),
	)

	for i, state := range data.States {
		if err := rep.Record(job.Index(i), data.ExecuteJobs.Job(job.Index(i)), statusOptions(state)...); err != nil {
			return err
		}
	}

	return rep.WriteSummary(opts.Writer)
}

// statusOptions describes a stored job state as a report entry.
func statusOptions(state job.State) []report.EndOption {
	switch state := state.(type) {
	case job.Succeeded:
		return []report.EndOption{report.WithResult(report.ResultSucceeded), report.WithOutput(string(state.Output))}
	case job.Failed:
		return []report.EndOption{
			report.WithResult(report.ResultFailed),
			report.WithExitCode(state.ExitCode),
			report.WithOutput(string(state.Output)),
		}
	case job.Skipped:
		return []report.EndOption{report.WithResult(report.ResultSkipped), report.WithReason(report.Reason(state.Reason))}
	case job.Active:
		return []report.EndOption{report.WithResult(report.ResultPending), report.WithReason(report.ReasonInterrupted)}
	}

	return []report.EndOption{report.WithResult(report.ResultPending)}
}
