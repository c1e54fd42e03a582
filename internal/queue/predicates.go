package queue

import (
	"github.com/sourcepkg/pkgexec/internal/job"
)

// The predicates below are pure functions of the job list, the current states and the policy.

// IsStartable reports whether the job at index reached a terminal state for this run.
func IsStartable(states []job.State, index job.Index) bool {
	return job.IsStartable(states[index])
}

// CanRunUnderGate reports whether every fetch-gate requirement of the job is Startable.
func CanRunUnderGate(list *job.List, states []job.State, index job.Index) bool {
	for _, req := range list.Requirements(index) {
		if req.Flags.Has(job.FetchGate) && !IsStartable(states, req.Target) {
			return false
		}
	}

	return true
}

// Checked reports whether a requirement is inspected for success under the policy.
func Checked(req job.Requirement, policy Policy) bool {
	switch {
	case req.Flags.Has(job.RequireAlways):
		return true
	case policy == IfSatisfied && req.Flags.Has(job.RequireIfSatisfied):
		return true
	case policy == IfIndependent && req.Flags.Has(job.RequireIfIndependent):
		return true
	}

	return false
}

// ShouldStillRun decides whether the job is still wanted given earlier failures.
// Without any failure so far it is always wanted. Under Never nothing runs after a failure.
// Otherwise every requirement checked under the policy must have Succeeded.
func ShouldStillRun(list *job.List, states []job.State, index job.Index, policy Policy, anyFailure bool) bool {
	_, ok := BlockingRequirement(list, states, index, policy, anyFailure)

	return !ok
}

// BlockingRequirement returns the requirement that makes ShouldStillRun false, if there is one.
// For the Never policy it returns the job itself.
func BlockingRequirement(list *job.List, states []job.State, index job.Index, policy Policy, anyFailure bool) (job.Index, bool) {
	if !anyFailure {
		return 0, false
	}

	if policy == Never {
		return index, true
	}

	for _, req := range list.Requirements(index) {
		if !Checked(req, policy) {
			continue
		}

		if _, ok := states[req.Target].(job.Succeeded); !ok {
			return req.Target, true
		}
	}

	return 0, false
}

// RequirementsSettled reports whether every requirement target of the job is Startable.
func RequirementsSettled(list *job.List, states []job.State, index job.Index) bool {
	for _, req := range list.Requirements(index) {
		if !IsStartable(states, req.Target) {
			return false
		}
	}

	return true
}

// PolicyRequirementsSettled reports whether every requirement checked under the policy is Startable.
func PolicyRequirementsSettled(list *job.List, states []job.State, index job.Index, policy Policy) bool {
	for _, req := range list.Requirements(index) {
		if Checked(req, policy) && !IsStartable(states, req.Target) {
			return false
		}
	}

	return true
}
