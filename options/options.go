// Package options holds the run configuration of pkgexec. It is built once from the command line,
// the environment and the optional config file, then handed to every component that needs it.
package options

import (
	"io"
	"os"
	"time"

	"github.com/sourcepkg/pkgexec/internal/hooks"
	"github.com/sourcepkg/pkgexec/internal/output"
	"github.com/sourcepkg/pkgexec/internal/queue"
	"github.com/sourcepkg/pkgexec/internal/resume"
	"github.com/sourcepkg/pkgexec/internal/telemetry"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

const (
	// EnvPrefix is prepended to the environment variable of every flag.
	EnvPrefix = "PKGEXEC_"

	DefaultConfigFile = "pkgexec.hcl"
	DefaultResumeFile = "/var/cache/pkgexec/resume.json"
	DefaultWorldFile  = "/var/lib/pkgexec/world"

	DefaultFetchJobs = 1

	// NoPlanFD means the plan is not read from a file descriptor.
	NoPlanFD = -1

	defaultLogLevel = log.InfoLevel
)

// RunOptions is the configuration of one pkgexec invocation.
type RunOptions struct {
	Logger    log.Logger
	Writer    io.Writer
	ErrWriter io.Writer

	Telemetry *telemetry.Options

	// ActionEnv is added to the environment of every action command.
	ActionEnv map[string]string

	ConfigFile    string
	PlanFile      string
	ResumeFile    string
	WorldFile     string
	OutputDir     string
	ReportFile    string
	RepositoryDir string
	ActionCommand string
	LogFormat     string
	LogLevel      log.Level

	Hooks []hooks.Hook

	FetchJobs int
	PlanFD    int

	ContinueOnFailure queue.Policy

	IdleTimeout    time.Duration
	SwitchInterval time.Duration

	Pretend       bool
	FetchOnly     bool
	RetryFailed   bool
	RetrySkipped  bool
	SkipFailed    bool
	PreserveWorld bool
	NoColor       bool
	// JobSummary lists every job in the summary instead of the totals only.
	JobSummary bool
}

// NewRunOptions returns the defaults, writing to stdout and stderr.
func NewRunOptions() *RunOptions {
	return NewRunOptionsWithWriters(os.Stdout, os.Stderr)
}

// NewRunOptionsWithWriters returns the defaults with the given writers.
func NewRunOptionsWithWriters(stdout, stderr io.Writer) *RunOptions {
	return &RunOptions{
		Logger:            log.New(log.WithOutput(stderr), log.WithLevel(defaultLogLevel)),
		Writer:            stdout,
		ErrWriter:         stderr,
		Telemetry:         &telemetry.Options{AppName: "pkgexec", TraceExporter: telemetry.ExporterNone, MetricExporter: telemetry.ExporterNone},
		ConfigFile:        DefaultConfigFile,
		ResumeFile:        DefaultResumeFile,
		WorldFile:         DefaultWorldFile,
		LogLevel:          defaultLogLevel,
		FetchJobs:         DefaultFetchJobs,
		PlanFD:            NoPlanFD,
		ContinueOnFailure: queue.Never,
		IdleTimeout:       output.DefaultIdleTimeout,
		SwitchInterval:    output.DefaultSwitchInterval,
		ActionEnv:         map[string]string{},
	}
}

// ReconcileOptions returns the retry choices for a resumed run.
func (opts *RunOptions) ReconcileOptions() resume.ReconcileOptions {
	return resume.ReconcileOptions{
		RetryFailed:  opts.RetryFailed,
		RetrySkipped: opts.RetrySkipped,
		SkipFailed:   opts.SkipFailed,
	}
}
