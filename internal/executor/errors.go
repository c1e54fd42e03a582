package executor

import (
	"fmt"

	"github.com/sourcepkg/pkgexec/internal/job"
)

// StalledError means no job could be admitted while nothing was running. The requirement graph of
// a valid list cannot produce it.
type StalledError struct {
	Index job.Index
}

func (err StalledError) Error() string {
	return fmt.Sprintf("job %d can never become ready", err.Index)
}

// PretendFailedError stops a run whose pretend checks did not pass.
type PretendFailedError struct {
	Description string
	Index       job.Index
	ExitCode    int
}

func (err PretendFailedError) Error() string {
	return fmt.Sprintf("pretend check of job %d (%s) failed with exit status %d", err.Index, err.Description, err.ExitCode)
}
