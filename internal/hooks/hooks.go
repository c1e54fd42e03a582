// Package hooks fires the user hooks surrounding a run. A failing pre hook aborts the run; a failing
// post hook only makes the run fail.
package hooks

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Name identifies a hook point.
type Name string

const (
	InstallTaskExecutePre  Name = "install_task_execute_pre"
	InstallTaskExecutePost Name = "install_task_execute_post"
	PretendAllPre          Name = "pretend_all_pre"
	PretendAllPost         Name = "pretend_all_post"
	InstallAllPre          Name = "install_all_pre"
	InstallAllPost         Name = "install_all_post"
)

// Names lists every hook point in the order they fire during a run.
func Names() []Name {
	return []Name{
		InstallTaskExecutePre,
		PretendAllPre,
		PretendAllPost,
		InstallAllPre,
		InstallAllPost,
		InstallTaskExecutePost,
	}
}

// IsPre reports whether the hook fires before the work it surrounds.
func (name Name) IsPre() bool {
	return strings.HasSuffix(string(name), "_pre")
}

// Valid reports whether name is a known hook point.
func (name Name) Valid() bool {
	return slices.Contains(Names(), name)
}

const (
	// ParamTargets is the parameter holding the space separated run targets.
	ParamTargets = "TARGETS"
	// ParamResumeFile holds the resume file path when the run checkpoints.
	ParamResumeFile = "PKGEXEC_RESUME_FILE"
)

// Params are passed to hook commands as environment variables.
type Params map[string]string

// Runner fires hooks.
type Runner interface {
	Fire(ctx context.Context, name Name, params Params) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, name Name, params Params) error

func (fn RunnerFunc) Fire(ctx context.Context, name Name, params Params) error {
	return fn(ctx, name, params)
}

// Nop is a Runner without any hooks.
var Nop Runner = RunnerFunc(func(context.Context, Name, Params) error { return nil })

// HookFailedError is returned by a Runner when a hook command fails.
type HookFailedError struct {
	Err  error
	Hook Name
}

func (err HookFailedError) Error() string {
	return fmt.Sprintf("hook %s failed: %v", err.Hook, err.Err)
}

func (err HookFailedError) Unwrap() error {
	return err.Err
}

// HookAbortedError stops the run. No further jobs are admitted once it is seen.
type HookAbortedError struct {
	Err  error
	Hook Name
}

func (err HookAbortedError) Error() string {
	return fmt.Sprintf("run aborted by hook %s: %v", err.Hook, err.Err)
}

func (err HookAbortedError) Unwrap() error {
	return err.Err
}
