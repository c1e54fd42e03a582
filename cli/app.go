// Package cli is the pkgexec command line: it turns flags, environment variables and the config
// file into options.RunOptions and wires the executor to its collaborators.
package cli

import (
	"os"
	"strings"

	"github.com/gruntwork-io/go-commons/version"
	hashicorpversion "github.com/hashicorp/go-version"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/queue"
	"github.com/sourcepkg/pkgexec/options"
	"github.com/sourcepkg/pkgexec/pkg/log"
	"github.com/sourcepkg/pkgexec/pkg/log/formatters"
)

const (
	AppName = "pkgexec"

	CommandNameExecute = "execute"
	CommandNameResume  = "resume"
	CommandNameStatus  = "status"
	CommandNameVersion = "version"

	// DevVersion is used when the binary was built without a release version.
	DevVersion = "0.0.0-dev"
)

// EngineVersion returns the release version stamped at build time, or DevVersion.
func EngineVersion() string {
	ver := version.GetVersion()
	if _, err := hashicorpversion.NewVersion(ver); err != nil {
		return DevVersion
	}

	return ver
}

// NewApp creates the pkgexec CLI app.
func NewApp(opts *options.RunOptions) *cli.App {
	return &cli.App{
		Name:            AppName,
		Usage:           "Run the fetch, install and uninstall jobs of a resolved package plan.",
		UsageText:       "pkgexec [command] [options]",
		Version:         EngineVersion(),
		Writer:          opts.Writer,
		ErrWriter:       opts.ErrWriter,
		DefaultCommand:  CommandNameExecute,
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:   CommandNameExecute,
				Usage:  "Run a plan, or continue the interrupted run found in the resume file.",
				Flags:  runFlags(opts),
				Before: setup(opts),
				Action: func(cctx *cli.Context) error {
					return Execute(cctx.Context, opts, false)
				},
			},
			{
				Name:   CommandNameResume,
				Usage:  "Continue the run stored in the resume file.",
				Flags:  runFlags(opts),
				Before: setup(opts),
				Action: func(cctx *cli.Context) error {
					return Execute(cctx.Context, opts, true)
				},
			},
			{
				Name:   CommandNameStatus,
				Usage:  "Show the jobs of the run stored in the resume file.",
				Flags:  globalFlags(opts),
				Before: setup(opts),
				Action: func(cctx *cli.Context) error {
					return Status(cctx.Context, opts)
				},
			},
			{
				Name:  CommandNameVersion,
				Usage: "Show the pkgexec version.",
				Action: func(cctx *cli.Context) error {
					cli.ShowVersion(cctx)
					return nil
				},
			},
		},
	}
}

// setup finishes the options once the flags are parsed: logging, the continue-on-failure policy
// and the config file.
func setup(opts *options.RunOptions) cli.BeforeFunc {
	return func(cctx *cli.Context) error {
		level, err := log.ParseLevel(cctx.String(FlagNameLogLevel))
		if err != nil {
			return err
		}

		opts.LogLevel = level

		formatter, err := formatters.ParseFormat(opts.LogFormat, opts.NoColor || !isTerminal(os.Stderr))
		if err != nil {
			return err
		}

		opts.Logger.SetOptions(log.WithLevel(level), log.WithFormatter(formatter))

		if cctx.String(FlagNameContinueOnFailure) != "" {
			policy, err := queue.ParsePolicy(cctx.String(FlagNameContinueOnFailure))
			if err != nil {
				return err
			}

			opts.ContinueOnFailure = policy
		}

		return loadConfig(cctx, opts)
	}
}

func loadConfig(cctx *cli.Context, opts *options.RunOptions) error {
	if opts.ConfigFile == "" {
		return nil
	}

	if _, err := os.Stat(opts.ConfigFile); err != nil {
		if os.IsNotExist(err) && !cctx.IsSet(FlagNameConfig) {
			return nil
		}

		return errors.WithStackTraceAndPrefix(err, "config file %s", opts.ConfigFile)
	}

	cfg, err := options.LoadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}

	opts.Logger.Debugf("Loaded config file %s", opts.ConfigFile)

	return cfg.Apply(opts, func(attr string) bool {
		return cctx.IsSet(strings.ReplaceAll(attr, "_", "-"))
	})
}

func isTerminal(file *os.File) bool {
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
