// Package resume persists the state of a run so an interrupted or partly failed run can continue
// where it stopped.
package resume

import (
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
)

// Data is everything needed to continue a run.
type Data struct {
	ExecuteJobs             *job.List
	PretendJobs             *job.List
	RunID                   string
	States                  []job.State
	Targets                 []string
	WorldSpecs              []string
	RemovedIfDependentNames []string
	PreserveWorld           bool
	TargetIsSet             bool
}

// Validate checks that the states line up with the execute jobs.
func (data *Data) Validate() error {
	if data.ExecuteJobs == nil {
		return errors.Errorf("resume data has no jobs")
	}

	if len(data.States) != data.ExecuteJobs.Len() {
		return errors.Errorf("resume data has %d states for %d jobs", len(data.States), data.ExecuteJobs.Len())
	}

	return nil
}

// ReconcileOptions are the user's retry choices for a resumed run.
type ReconcileOptions struct {
	RetryFailed  bool
	RetrySkipped bool
	SkipFailed   bool
}

// Reconcile prepares persisted states for another run. Jobs that were Active when the run stopped
// go back to Pending. Failed jobs go back to Pending with RetryFailed or become Skipped with SkipFailed,
// and Skipped jobs go back to Pending with RetrySkipped. RetryFailed wins over SkipFailed.
func Reconcile(states []job.State, opts ReconcileOptions) ([]job.State, error) {
	reconciled := make([]job.State, len(states))

	for i, state := range states {
		next := state

		switch state.(type) {
		case job.Active:
			next = job.Pending{}
		case job.Failed:
			switch {
			case opts.RetryFailed:
				next = job.Pending{}
			case opts.SkipFailed:
				next = job.Skipped{Reason: ReasonSkipFailed}
			}
		case job.Skipped:
			if opts.RetrySkipped {
				next = job.Pending{}
			}
		}

		if next != state {
			if err := job.CheckResumeTransition(state, next); err != nil {
				return nil, errors.WithStackTraceAndPrefix(err, "job %d", i)
			}
		}

		reconciled[i] = next
	}

	return reconciled, nil
}

// ReasonSkipFailed is the skip reason recorded for failed jobs skipped on resume.
const ReasonSkipFailed = "failed in an earlier run"
