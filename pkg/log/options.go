package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Option configures the logrus logger behind a Logger. Options apply to every logger derived with
// WithField or WithFields, since they share it.
type Option func(logger *logger)

// WithLevel drops entries below level.
func WithLevel(level Level) Option {
	return func(logger *logger) {
		logger.Logger.SetLevel(level.ToLogrusLevel())
	}
}

func WithOutput(output io.Writer) Option {
	return func(logger *logger) {
		logger.Logger.SetOutput(output)
	}
}

// WithFormatter sets the formatter, usually one returned by formatters.ParseFormat.
func WithFormatter(formatter logrus.Formatter) Option {
	return func(logger *logger) {
		logger.Logger.SetFormatter(formatter)
	}
}
