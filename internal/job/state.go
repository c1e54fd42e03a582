package job

import (
	"fmt"
	"strings"

	"github.com/sourcepkg/pkgexec/internal/errors"
)

// Status is the discriminant of a State.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusSucceeded
	StatusFailed
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusActive:    "active",
	StatusSucceeded: "succeeded",
	StatusFailed:    "failed",
	StatusSkipped:   "skipped",
}

func (status Status) String() string {
	if name, ok := statusNames[status]; ok {
		return name
	}

	return fmt.Sprintf("status(%d)", int(status))
}

// ParseStatus parses the textual status name.
func ParseStatus(str string) (Status, error) {
	for status, name := range statusNames {
		if strings.EqualFold(name, str) {
			return status, nil
		}
	}

	return 0, errors.Errorf("unknown job status %q", str)
}

// OutputRef points at the output a job produced, usually the path of its log file. It may be empty.
type OutputRef string

// State is one of Pending, Active, Succeeded, Failed or Skipped.
type State interface {
	Status() Status

	isState()
}

type Pending struct{}

// Active is held while a worker runs the job.
type Active struct {
	Output OutputRef
}

type Succeeded struct {
	Output OutputRef
}

type Failed struct {
	Output   OutputRef
	ExitCode int
}

// Skipped carries the reason the job was not run.
type Skipped struct {
	Reason string
}

func (Pending) isState()   {}
func (Active) isState()    {}
func (Succeeded) isState() {}
func (Failed) isState()    {}
func (Skipped) isState()   {}

func (Pending) Status() Status   { return StatusPending }
func (Active) Status() Status    { return StatusActive }
func (Succeeded) Status() Status { return StatusSucceeded }
func (Failed) Status() Status    { return StatusFailed }
func (Skipped) Status() Status   { return StatusSkipped }

// IsStartable reports whether the state is terminal for this run: Succeeded, Failed or Skipped.
func IsStartable(state State) bool {
	switch state.(type) {
	case Succeeded, Failed, Skipped:
		return true
	}

	return false
}

// OutputOf returns the output reference carried by the state, if any.
func OutputOf(state State) OutputRef {
	switch state := state.(type) {
	case Active:
		return state.Output
	case Succeeded:
		return state.Output
	case Failed:
		return state.Output
	}

	return ""
}

type transition struct {
	from, to Status
}

var runTransitions = map[transition]struct{}{
	{StatusPending, StatusActive}:   {},
	{StatusActive, StatusSucceeded}: {},
	{StatusActive, StatusFailed}:    {},
	{StatusPending, StatusSkipped}:  {},
}

// resumeTransitions are only applied while reconciling persisted states before a resumed run.
var resumeTransitions = map[transition]struct{}{
	{StatusActive, StatusPending}:  {},
	{StatusFailed, StatusPending}:  {},
	{StatusSkipped, StatusPending}: {},
	{StatusFailed, StatusSkipped}:  {},
}

// CheckTransition validates a state change made during a run.
func CheckTransition(from, to State) error {
	return check(runTransitions, from, to)
}

// CheckResumeTransition validates a state change made while reconciling a resumed run.
func CheckResumeTransition(from, to State) error {
	return check(resumeTransitions, from, to)
}

func check(table map[transition]struct{}, from, to State) error {
	if from == nil || to == nil {
		return errors.Errorf("job state transition with nil state")
	}

	if _, ok := table[transition{from.Status(), to.Status()}]; !ok {
		return errors.New(InvalidTransitionError{From: from.Status(), To: to.Status()})
	}

	return nil
}

// PendingStates returns n fresh Pending states.
func PendingStates(n int) []State {
	states := make([]State, n)
	for i := range states {
		states[i] = Pending{}
	}

	return states
}
