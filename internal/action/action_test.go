package action_test

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"runtime"
	"testing"

	"github.com/sourcepkg/pkgexec/internal/action"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRunnerArgs(t *testing.T) {
	t.Parallel()

	runner, err := action.NewCommandRunner(log.Discard(), `cave perform --hooks "a b"`, nil)
	require.NoError(t, err)

	install := job.InstallJob{
		Origin:          "cat/a-1",
		Destination:     "installed",
		Replacing:       []job.Spec{"cat/a-0"},
		DestinationKind: job.ToChroot,
	}

	assert.Equal(t,
		[]string{"cave", "perform", "--hooks", "a b", "install", "cat/a-1",
			"--destination", "installed", "--destination-kind", "chroot", "--replacing", "cat/a-0"},
		runner.Args(action.Request{Job: install, Phase: action.PhaseInstall}))

	assert.Equal(t,
		[]string{"cave", "perform", "--hooks", "a b", "uninstall", "cat/b-1", "cat/c-1"},
		runner.Args(action.Request{Job: job.UninstallJob{Targets: []job.Spec{"cat/b-1", "cat/c-1"}}, Phase: action.PhaseUninstall}))

	assert.Equal(t,
		[]string{"cave", "perform", "--hooks", "a b", "fetch", "cat/a-1"},
		runner.Args(action.Request{Job: job.FetchJob{Origin: "cat/a-1"}, Phase: action.PhaseFetch}))
}

func TestNewCommandRunnerRejectsEmptyCommand(t *testing.T) {
	t.Parallel()

	_, err := action.NewCommandRunner(log.Discard(), "   ", nil)
	assert.Error(t, err)
}

func TestCommandRunnerRun(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	// sh -c <script> <$0> <phase> <origin>
	runner, err := action.NewCommandRunner(log.Discard(), `sh -c 'echo "$1 $2 $PKGEXEC_JOB_INDEX"; test "$2" != cat/bad-1' sh`, nil)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	result := runner.Run(t.Context(), action.Request{Index: 4, Job: job.FetchJob{Origin: "cat/a-1"}, Phase: action.PhaseFetch}, out)
	require.True(t, result.Succeeded(), "%v", result.Err)
	assert.Equal(t, "fetch cat/a-1 4\n", out.String())

	result = runner.Run(t.Context(), action.Request{Job: job.FetchJob{Origin: "cat/bad-1"}, Phase: action.PhaseFetch}, io.Discard)
	assert.False(t, result.Succeeded())
	assert.Equal(t, 1, result.ExitCode)
	require.Error(t, result.Err)
}

func TestResultStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, action.Result{}.Status())
	assert.Equal(t, 3, action.Result{ExitCode: 3}.Status())
	assert.Equal(t, 1, action.Result{Err: errors.New("boom")}.Status())
}

func TestRunnerFunc(t *testing.T) {
	t.Parallel()

	var runner action.Runner = action.RunnerFunc(func(_ context.Context, req action.Request, out io.Writer) action.Result {
		_, _ = io.WriteString(out, req.Phase.String())
		return action.Result{ExitCode: 2}
	})

	out := &bytes.Buffer{}
	result := runner.Run(t.Context(), action.Request{Phase: action.PhasePretend}, out)
	assert.Equal(t, "pretend", out.String())
	assert.Equal(t, 2, result.ExitCode)
}
