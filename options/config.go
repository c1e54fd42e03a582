package options

import (
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/hclenv"
	"github.com/sourcepkg/pkgexec/internal/hooks"
	"github.com/sourcepkg/pkgexec/internal/queue"
)

// Config is the content of the optional pkgexec.hcl file. Attribute names match the flag names with
// dashes replaced by underscores; a flag given on the command line wins over the file.
type Config struct {
	Action            *ActionConfig `hcl:"action,block"`
	WorldFile         *string       `hcl:"world_file,optional"`
	OutputDir         *string       `hcl:"output_dir,optional"`
	ResumeFile        *string       `hcl:"resume_file,optional"`
	RepositoryDir     *string       `hcl:"repository_dir,optional"`
	ContinueOnFailure *string       `hcl:"continue_on_failure,optional"`
	IdleTimeout       *string       `hcl:"idle_timeout,optional"`
	SwitchInterval    *string       `hcl:"switch_interval,optional"`
	FetchJobs         *int          `hcl:"fetch_jobs,optional"`
	Hooks             []HookConfig  `hcl:"hook,block"`
}

// ActionConfig configures the command performing jobs.
type ActionConfig struct {
	Env     map[string]string `hcl:"env,optional"`
	Command string            `hcl:"command"`
}

// HookConfig binds commands to a hook point:
//
//	hook "install_all_post" {
//	  execute = ["eselect", "news", "read"]
//	}
type HookConfig struct {
	WorkingDir *string  `hcl:"working_dir,optional"`
	Name       string   `hcl:"name,label"`
	Execute    []string `hcl:"execute"`
}

// LoadConfig decodes the config file at path. Expressions may read the environment as `env.NAME`.
func LoadConfig(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err)
	}

	cfg := &Config{}
	if err := hclsimple.Decode(path, src, hclenv.EvalContext(), cfg); err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "failed to parse config file %s", path)
	}

	return cfg, nil
}

// Apply copies the config values into opts. isSet reports whether the user already gave a value for
// the attribute on the command line; such values are left alone.
func (cfg *Config) Apply(opts *RunOptions, isSet func(attr string) bool) error {
	setString := func(attr string, value *string, target *string) {
		if value != nil && !isSet(attr) {
			*target = *value
		}
	}

	setString("world_file", cfg.WorldFile, &opts.WorldFile)
	setString("output_dir", cfg.OutputDir, &opts.OutputDir)
	setString("resume_file", cfg.ResumeFile, &opts.ResumeFile)
	setString("repository_dir", cfg.RepositoryDir, &opts.RepositoryDir)

	if cfg.FetchJobs != nil && !isSet("fetch_jobs") {
		opts.FetchJobs = *cfg.FetchJobs
	}

	if cfg.ContinueOnFailure != nil && !isSet("continue_on_failure") {
		policy, err := queue.ParsePolicy(*cfg.ContinueOnFailure)
		if err != nil {
			return err
		}

		opts.ContinueOnFailure = policy
	}

	durations := []struct {
		value  *string
		target *time.Duration
		attr   string
	}{
		{cfg.IdleTimeout, &opts.IdleTimeout, "idle_timeout"},
		{cfg.SwitchInterval, &opts.SwitchInterval, "switch_interval"},
	}

	for _, d := range durations {
		if d.value == nil || isSet(d.attr) {
			continue
		}

		duration, err := time.ParseDuration(*d.value)
		if err != nil {
			return errors.WithStackTraceAndPrefix(err, "invalid %s", d.attr)
		}

		*d.target = duration
	}

	if cfg.Action != nil {
		if !isSet("action_command") {
			opts.ActionCommand = cfg.Action.Command
		}

		for key, value := range cfg.Action.Env {
			opts.ActionEnv[key] = value
		}
	}

	for _, hook := range cfg.Hooks {
		workingDir := ""
		if hook.WorkingDir != nil {
			workingDir = *hook.WorkingDir
		}

		opts.Hooks = append(opts.Hooks, hooks.Hook{
			Name:       hooks.Name(hook.Name),
			WorkingDir: workingDir,
			Execute:    hook.Execute,
		})
	}

	return nil
}
