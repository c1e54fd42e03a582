package job

import "fmt"

// InvalidRequirementError is returned when a requirement does not point at an earlier job.
type InvalidRequirementError struct {
	Job    Index
	Target Index
}

func (err InvalidRequirementError) Error() string {
	return fmt.Sprintf("job %d requires job %d, which is not an earlier job in the list", err.Job, err.Target)
}

// InvalidTransitionError is returned for a state change the state machine does not allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (err InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid job state transition from %s to %s", err.From, err.To)
}
