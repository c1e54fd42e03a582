package hooks

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/telemetry"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

// EnvHookName is set to the hook point for every hook command.
const EnvHookName = "HOOK"

// Hook is a configured command bound to a hook point.
type Hook struct {
	Name       Name
	WorkingDir string
	Execute    []string
}

// CommandRunner runs the configured commands of a hook point one after another.
type CommandRunner struct {
	logger log.Logger
	out    io.Writer
	hooks  []Hook
}

// NewCommandRunner validates the hooks and returns a runner writing command output to out.
func NewCommandRunner(l log.Logger, out io.Writer, hooks []Hook) (*CommandRunner, error) {
	for _, hook := range hooks {
		if !hook.Name.Valid() {
			return nil, errors.Errorf("unknown hook %q", hook.Name)
		}

		if len(hook.Execute) == 0 {
			return nil, errors.Errorf("hook %s has nothing to execute", hook.Name)
		}
	}

	return &CommandRunner{logger: l, out: out, hooks: hooks}, nil
}

// Fire runs every command of the hook point. All commands run even if one fails.
func (runner *CommandRunner) Fire(ctx context.Context, name Name, params Params) error {
	var errorsOccurred *multierror.Error

	for _, hook := range runner.hooks {
		if hook.Name != name {
			continue
		}

		err := telemetry.TelemeterFromContext(ctx).Collect(ctx, "hook_"+string(name), map[string]any{
			"hook":    string(name),
			"command": hook.Execute[0],
		}, func(ctx context.Context) error {
			return runner.run(ctx, hook, params)
		})
		if err != nil {
			runner.logger.Errorf("Error running hook %s: %v", name, err)
			errorsOccurred = multierror.Append(errorsOccurred, err)
		}
	}

	if err := errorsOccurred.ErrorOrNil(); err != nil {
		return errors.New(HookFailedError{Hook: name, Err: err})
	}

	return nil
}

func (runner *CommandRunner) run(ctx context.Context, hook Hook, params Params) error {
	runner.logger.Infof("Executing hook: %s", hook.Name)
	runner.logger.Debugf("Running command: %s", strings.Join(hook.Execute, " "))

	cmd := exec.CommandContext(ctx, hook.Execute[0], hook.Execute[1:]...)
	cmd.Dir = hook.WorkingDir
	cmd.Stdout = runner.out
	cmd.Stderr = runner.out
	cmd.Env = append(os.Environ(), EnvHookName+"="+string(hook.Name))

	for key, value := range params {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	if err := cmd.Run(); err != nil {
		return errors.WithStackTraceAndPrefix(err, "%s", hook.Execute[0])
	}

	return nil
}
