package cli

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sourcepkg/pkgexec/internal/queue"
	"github.com/sourcepkg/pkgexec/internal/telemetry"
	"github.com/sourcepkg/pkgexec/options"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

const (
	FlagNamePretend           = "pretend"
	FlagNameFetchOnly         = "fetch-only"
	FlagNameFetchJobs         = "fetch-jobs"
	FlagNameContinueOnFailure = "continue-on-failure"
	FlagNameResumeFile        = "resume-file"
	FlagNameRetryFailed       = "retry-failed"
	FlagNameRetrySkipped      = "retry-skipped"
	FlagNameSkipFailed        = "skip-failed"
	FlagNamePreserveWorld     = "preserve-world"
	FlagNamePlan              = "plan"
	FlagNamePlanFD            = "plan-fd"
	FlagNameConfig            = "config"
	FlagNameWorldFile         = "world-file"
	FlagNameOutputDir         = "output-dir"
	FlagNameReportFile        = "report-file"
	FlagNameRepositoryDir     = "repository-dir"
	FlagNameActionCommand     = "action-command"
	FlagNameLogLevel          = "log-level"
	FlagNameLogFormat         = "log-format"
	FlagNameNoColor           = "no-color"
	FlagNameIdleTimeout       = "idle-timeout"
	FlagNameSwitchInterval    = "switch-interval"
	FlagNameJobSummary        = "job-summary"
	FlagNameTelemetryExporter = "telemetry-exporter"
	FlagNameTelemetryEndpoint = "telemetry-endpoint"
)

// EnvVarName returns the environment variable bound to the flag, e.g. PKGEXEC_FETCH_JOBS.
func EnvVarName(flagName string) string {
	return options.EnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func envVars(flagName string) []string {
	return []string{EnvVarName(flagName)}
}

// globalFlags are shared by every command.
func globalFlags(opts *options.RunOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        FlagNameConfig,
			EnvVars:     envVars(FlagNameConfig),
			Usage:       "Path to the HCL config file.",
			Value:       options.DefaultConfigFile,
			Destination: &opts.ConfigFile,
		},
		&cli.StringFlag{
			Name:        FlagNameResumeFile,
			EnvVars:     envVars(FlagNameResumeFile),
			Usage:       "Path of the resume file. An empty value disables checkpointing.",
			Value:       options.DefaultResumeFile,
			Destination: &opts.ResumeFile,
		},
		&cli.StringFlag{
			Name:    FlagNameLogLevel,
			EnvVars: envVars(FlagNameLogLevel),
			Usage:   "Log level: " + strings.Join(log.AllLevels.Names(), ", ") + ".",
			Value:   opts.LogLevel.String(),
		},
		&cli.StringFlag{
			Name:        FlagNameLogFormat,
			EnvVars:     envVars(FlagNameLogFormat),
			Usage:       "Log format: pretty or json.",
			Destination: &opts.LogFormat,
		},
		&cli.BoolFlag{
			Name:        FlagNameNoColor,
			EnvVars:     append(envVars(FlagNameNoColor), "NO_COLOR"),
			Usage:       "Disable colors in logs and the summary.",
			Destination: &opts.NoColor,
		},
		&cli.BoolFlag{
			Name:        FlagNameJobSummary,
			EnvVars:     envVars(FlagNameJobSummary),
			Usage:       "List every job in the summary.",
			Destination: &opts.JobSummary,
		},
	}
}

// runFlags configure a run of the execute and resume commands.
func runFlags(opts *options.RunOptions) []cli.Flag {
	return append(globalFlags(opts),
		&cli.BoolFlag{
			Name:        FlagNamePretend,
			EnvVars:     envVars(FlagNamePretend),
			Usage:       "Run the pretend checks, print the plan and stop.",
			Destination: &opts.Pretend,
		},
		&cli.BoolFlag{
			Name:        FlagNameFetchOnly,
			EnvVars:     envVars(FlagNameFetchOnly),
			Usage:       "Only run fetch jobs.",
			Destination: &opts.FetchOnly,
		},
		&cli.IntFlag{
			Name:        FlagNameFetchJobs,
			EnvVars:     envVars(FlagNameFetchJobs),
			Usage:       "Number of fetch jobs run in parallel. 0 fetches inline with installs.",
			Value:       options.DefaultFetchJobs,
			Destination: &opts.FetchJobs,
		},
		&cli.StringFlag{
			Name:    FlagNameContinueOnFailure,
			EnvVars: envVars(FlagNameContinueOnFailure),
			Usage:   "Which jobs still run after a failure: " + strings.Join(queue.PolicyNames(), ", ") + ".",
			Value:   queue.Never.String(),
		},
		&cli.BoolFlag{
			Name:        FlagNameRetryFailed,
			EnvVars:     envVars(FlagNameRetryFailed),
			Usage:       "On resume, run failed jobs again.",
			Destination: &opts.RetryFailed,
		},
		&cli.BoolFlag{
			Name:        FlagNameRetrySkipped,
			EnvVars:     envVars(FlagNameRetrySkipped),
			Usage:       "On resume, run skipped jobs again.",
			Destination: &opts.RetrySkipped,
		},
		&cli.BoolFlag{
			Name:        FlagNameSkipFailed,
			EnvVars:     envVars(FlagNameSkipFailed),
			Usage:       "On resume, skip failed jobs and run what depends on them.",
			Destination: &opts.SkipFailed,
		},
		&cli.BoolFlag{
			Name:        FlagNamePreserveWorld,
			EnvVars:     envVars(FlagNamePreserveWorld),
			Usage:       "Do not update the world set.",
			Destination: &opts.PreserveWorld,
		},
		&cli.StringFlag{
			Name:        FlagNamePlan,
			EnvVars:     envVars(FlagNamePlan),
			Usage:       "Plan file, JSON or HCL.",
			Destination: &opts.PlanFile,
		},
		&cli.IntFlag{
			Name:        FlagNamePlanFD,
			EnvVars:     envVars(FlagNamePlanFD),
			Usage:       "Read the JSON plan from this inherited file descriptor.",
			Value:       options.NoPlanFD,
			Destination: &opts.PlanFD,
		},
		&cli.StringFlag{
			Name:        FlagNameWorldFile,
			EnvVars:     envVars(FlagNameWorldFile),
			Usage:       "Path of the world set file.",
			Value:       options.DefaultWorldFile,
			Destination: &opts.WorldFile,
		},
		&cli.StringFlag{
			Name:        FlagNameOutputDir,
			EnvVars:     envVars(FlagNameOutputDir),
			Usage:       "Directory receiving one log file per job.",
			Destination: &opts.OutputDir,
		},
		&cli.StringFlag{
			Name:        FlagNameReportFile,
			EnvVars:     envVars(FlagNameReportFile),
			Usage:       "Write a CSV or JSON report of every job to this file.",
			Destination: &opts.ReportFile,
		},
		&cli.StringFlag{
			Name:        FlagNameRepositoryDir,
			EnvVars:     envVars(FlagNameRepositoryDir),
			Usage:       "Root of the installed repositories, refreshed after every install.",
			Destination: &opts.RepositoryDir,
		},
		&cli.StringFlag{
			Name:        FlagNameActionCommand,
			EnvVars:     envVars(FlagNameActionCommand),
			Usage:       "Command performing jobs. The phase and the job arguments are appended.",
			Destination: &opts.ActionCommand,
		},
		&cli.DurationFlag{
			Name:        FlagNameIdleTimeout,
			EnvVars:     envVars(FlagNameIdleTimeout),
			Usage:       "Report jobs silent for this long.",
			Value:       opts.IdleTimeout,
			Destination: &opts.IdleTimeout,
		},
		&cli.DurationFlag{
			Name:        FlagNameSwitchInterval,
			EnvVars:     envVars(FlagNameSwitchInterval),
			Usage:       "Minimum time the display stays on one job.",
			Value:       opts.SwitchInterval,
			Destination: &opts.SwitchInterval,
		},
		&cli.StringFlag{
			Name:        FlagNameTelemetryExporter,
			EnvVars:     envVars(FlagNameTelemetryExporter),
			Usage:       "Trace exporter: none, console, otlp-http or otlp-grpc.",
			Value:       telemetry.ExporterNone,
			Destination: &opts.Telemetry.TraceExporter,
		},
		&cli.StringFlag{
			Name:        FlagNameTelemetryEndpoint,
			EnvVars:     envVars(FlagNameTelemetryEndpoint),
			Usage:       "OTLP endpoint. Defaults to the OTEL_EXPORTER_OTLP_* variables.",
			Destination: &opts.Telemetry.Endpoint,
		},
	)
}
