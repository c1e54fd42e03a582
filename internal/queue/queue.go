// Package queue holds the mutable run state of a job list and answers admission questions about it.
package queue

import (
	"sync"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
)

// Queue pairs an immutable job list with the states of its jobs. It starts no goroutines.
type Queue struct {
	list   *job.List
	states []job.State
	mu     sync.RWMutex
}

// New creates a queue. Nil states mean every job is Pending.
func New(list *job.List, states []job.State) (*Queue, error) {
	if states == nil {
		states = job.PendingStates(list.Len())
	}

	if len(states) != list.Len() {
		return nil, errors.Errorf("have %d job states for %d jobs", len(states), list.Len())
	}

	for i, state := range states {
		if state == nil {
			return nil, errors.Errorf("job %d has no state", i)
		}
	}

	return &Queue{list: list, states: append([]job.State(nil), states...)}, nil
}

func (q *Queue) List() *job.List {
	return q.list
}

func (q *Queue) Len() int {
	return q.list.Len()
}

// State returns the current state of the job at index.
func (q *Queue) State(index job.Index) job.State {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.states[index]
}

// Snapshot returns a copy of all states.
func (q *Queue) Snapshot() []job.State {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return append([]job.State(nil), q.states...)
}

// Transition moves the job to the given state if the state machine allows it.
func (q *Queue) Transition(index job.Index, to job.State) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := job.CheckTransition(q.states[index], to); err != nil {
		return errors.WithStackTraceAndPrefix(err, "job %d", index)
	}

	q.states[index] = to

	return nil
}

func (q *Queue) IsStartable(index job.Index) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return IsStartable(q.states, index)
}

func (q *Queue) CanRunUnderGate(index job.Index) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return CanRunUnderGate(q.list, q.states, index)
}

func (q *Queue) ShouldStillRun(index job.Index, policy Policy, anyFailure bool) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return ShouldStillRun(q.list, q.states, index, policy, anyFailure)
}

func (q *Queue) BlockingRequirement(index job.Index, policy Policy, anyFailure bool) (job.Index, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return BlockingRequirement(q.list, q.states, index, policy, anyFailure)
}

func (q *Queue) RequirementsSettled(index job.Index) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return RequirementsSettled(q.list, q.states, index)
}

func (q *Queue) PolicyRequirementsSettled(index job.Index, policy Policy) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return PolicyRequirementsSettled(q.list, q.states, index, policy)
}

// Tally counts jobs per status.
func (q *Queue) Tally() map[job.Status]int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	tally := make(map[job.Status]int, 5)
	for _, state := range q.states {
		tally[state.Status()]++
	}

	return tally
}

// Done reports whether no job is Pending or Active.
func (q *Queue) Done() bool {
	tally := q.Tally()

	return tally[job.StatusPending] == 0 && tally[job.StatusActive] == 0
}
