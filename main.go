package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcepkg/pkgexec/cli"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/options"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

// The main entrypoint for pkgexec
func main() {
	opts := options.NewRunOptions()

	defer errors.Recover(checkForErrorsAndExit(opts.Logger))

	app := cli.NewApp(opts)

	ctx, stop := signal.NotifyContext(log.ContextWithLogger(context.Background(), opts.Logger), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)

	stop()
	checkForErrorsAndExit(opts.Logger)(err)
}

// If there is an error, display it in the console and exit with a non-zero exit code. Otherwise, exit 0.
func checkForErrorsAndExit(logger log.Logger) func(error) {
	return func(err error) {
		if err == nil {
			os.Exit(0)
		}

		exitCode, ok := errors.ExitCode(err)
		if !ok || exitCode == 0 {
			exitCode = 1
		}

		// Failed jobs were already reported in the summary.
		var exitErr errors.ErrorWithExitCode
		if !errors.As(err, &exitErr) || exitErr.Err != nil {
			logger.Error(err.Error())

			if errStack := errors.ErrorStack(err); errStack != "" {
				logger.Trace(errStack)
			}
		}

		os.Exit(exitCode)
	}
}
