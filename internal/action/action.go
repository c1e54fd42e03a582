// Package action performs the work behind a job: fetching, building and merging, unmerging, and the
// pretend checks run before any job starts.
package action

import (
	"context"
	"io"

	"github.com/sourcepkg/pkgexec/internal/job"
)

// Phase names what a Request asks for.
type Phase int

const (
	PhaseFetch Phase = iota
	PhaseInstall
	PhaseUninstall
	PhasePretend
)

func (phase Phase) String() string {
	switch phase {
	case PhaseFetch:
		return "fetch"
	case PhaseInstall:
		return "install"
	case PhaseUninstall:
		return "uninstall"
	case PhasePretend:
		return "pretend"
	}

	return "unknown"
}

// PhaseOf returns the phase that runs a job for real.
func PhaseOf(j job.Job) Phase {
	switch j.(type) {
	case job.InstallJob:
		return PhaseInstall
	case job.UninstallJob:
		return PhaseUninstall
	}

	return PhaseFetch
}

// Request asks a Runner to perform one job.
type Request struct {
	Job   job.Job
	Phase Phase
	Index job.Index
}

// Result is the outcome of a Request. A job succeeded only if ExitCode is zero and Err is nil.
type Result struct {
	Err      error
	ExitCode int
}

// Succeeded reports whether the action completed successfully.
func (result Result) Succeeded() bool {
	return result.ExitCode == 0 && result.Err == nil
}

// Status returns the exit status to fold into the run's exit code; an error without a code counts as 1.
func (result Result) Status() int {
	if result.ExitCode == 0 && result.Err != nil {
		return 1
	}

	return result.ExitCode
}

// Runner performs actions. Output goes to out. Runner may be called from multiple goroutines.
//
// A Runner that fires per-job hooks of its own reports a vetoing hook by returning a Result whose Err
// wraps hooks.HookAbortedError. The executor then admits no further jobs, lets running ones finish and
// records every job that never started as aborted by that hook.
type Runner interface {
	Run(ctx context.Context, req Request, out io.Writer) Result
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, req Request, out io.Writer) Result

func (fn RunnerFunc) Run(ctx context.Context, req Request, out io.Writer) Result {
	return fn(ctx, req, out)
}
