package action

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

// Environment variables set for every action command.
const (
	EnvJobIndex       = "PKGEXEC_JOB_INDEX"
	EnvJobKind        = "PKGEXEC_JOB_KIND"
	EnvJobPhase       = "PKGEXEC_PHASE"
	EnvJobDescription = "PKGEXEC_JOB"
)

// CommandRunner performs actions by running an external command. The phase name and the job's
// arguments are appended to the configured command line.
type CommandRunner struct {
	logger  log.Logger
	env     map[string]string
	command []string
}

// NewCommandRunner parses the command line with shell quoting rules.
func NewCommandRunner(l log.Logger, commandLine string, env map[string]string) (*CommandRunner, error) {
	command, err := shlex.Split(commandLine)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "invalid action command %q", commandLine)
	}

	if len(command) == 0 {
		return nil, errors.Errorf("action command is empty")
	}

	return &CommandRunner{logger: l, command: command, env: env}, nil
}

// Args returns the full command line run for the request.
func (runner *CommandRunner) Args(req Request) []string {
	args := append([]string(nil), runner.command...)
	args = append(args, req.Phase.String())

	switch j := req.Job.(type) {
	case job.FetchJob:
		args = append(args, string(j.Origin))
	case job.InstallJob:
		args = append(args, string(j.Origin),
			"--destination", string(j.Destination),
			"--destination-kind", j.DestinationKind.String())

		for _, replacing := range j.Replacing {
			args = append(args, "--replacing", string(replacing))
		}
	case job.UninstallJob:
		for _, target := range j.Targets {
			args = append(args, string(target))
		}
	}

	return args
}

func (runner *CommandRunner) Run(ctx context.Context, req Request, out io.Writer) Result {
	args := runner.Args(req)

	runner.logger.Debugf("Running command: %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Env = append(os.Environ(),
		EnvJobIndex+"="+strconv.Itoa(int(req.Index)),
		EnvJobKind+"="+req.Job.Kind().String(),
		EnvJobPhase+"="+req.Phase.String(),
		EnvJobDescription+"="+req.Job.Description(),
	)

	for key, value := range runner.env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	err := cmd.Run()
	if err == nil {
		return Result{}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code <= 0 {
			code = 1
		}

		return Result{
			ExitCode: code,
			Err:      errors.Errorf("%s %s exited with status %d", req.Phase, req.Job.Description(), code),
		}
	}

	return Result{ExitCode: 1, Err: errors.WithStackTraceAndPrefix(err, "failed to run %s", args[0])}
}
