// Package errors wraps errors with stack traces, aggregates them and carries exit codes
// from failed jobs back to the process.
package errors

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
)

// New creates a new error with a stack trace. The argument may be an error, in which case it is
// wrapped as is, or any other value that is formatted with %v.
func New(val any) error {
	if val == nil {
		return nil
	}

	return goerrors.Wrap(val, 1)
}

// Errorf creates a new error from the given format and wraps it with a stack trace.
func Errorf(format string, args ...any) error {
	return goerrors.Wrap(fmt.Errorf(format, args...), 1)
}

// WithStackTrace wraps the given error with a stack trace unless it already has one.
func WithStackTrace(err error) error {
	if err == nil {
		return nil
	}

	if ContainsStackTrace(err) {
		return err
	}

	return goerrors.Wrap(err, 1)
}

// WithStackTraceAndPrefix wraps the given error with a stack trace and prepends the message.
func WithStackTraceAndPrefix(err error, message string, args ...any) error {
	if err == nil {
		return nil
	}

	return goerrors.WrapPrefix(err, fmt.Sprintf(message, args...), 1)
}

// ErrorWithExitCode carries the exit code the process should terminate with.
type ErrorWithExitCode struct {
	Err      error
	ExitCode int
}

func (err ErrorWithExitCode) Error() string {
	if err.Err == nil {
		return fmt.Sprintf("exit status %d", err.ExitCode)
	}

	return err.Err.Error()
}

func (err ErrorWithExitCode) Unwrap() error {
	return err.Err
}

// ExitCode returns the exit code stored in the error chain and true, or 0 and false if there is none.
func ExitCode(err error) (int, bool) {
	var exitErr ErrorWithExitCode
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode, true
	}

	var exitErrPtr *ErrorWithExitCode
	if errors.As(err, &exitErrPtr) && exitErrPtr != nil {
		return exitErrPtr.ExitCode, true
	}

	return 0, false
}

// ErrorStack returns the stack traces found in the error chain.
func ErrorStack(err error) string {
	var stacks []string

	for _, err := range UnwrapMultiErrors(err) {
		for ; err != nil; err = errors.Unwrap(err) {
			var goErr *goerrors.Error
			if errors.As(err, &goErr) {
				stacks = append(stacks, goErr.ErrorStack())
				break
			}
		}
	}

	return strings.Join(stacks, "\n")
}

// ContainsStackTrace returns true if the given error already contains a stack trace.
func ContainsStackTrace(err error) bool {
	for _, err := range UnwrapMultiErrors(err) {
		var goErr *goerrors.Error
		if errors.As(err, &goErr) {
			return true
		}
	}

	return false
}

// Recover tries to recover from panics and calls onPanic with an error describing the cause.
// It must be called from a defer statement.
func Recover(onPanic func(cause error)) {
	if rec := recover(); rec != nil {
		err, isError := rec.(error)
		if !isError {
			err = fmt.Errorf("%v", rec) //nolint:err113
		}

		onPanic(New(err))
	}
}
