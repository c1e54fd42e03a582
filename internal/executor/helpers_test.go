package executor_test

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"

	"github.com/sourcepkg/pkgexec/internal/action"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/internal/resume"
	"github.com/stretchr/testify/require"
)

// fakeRunner records the order in which jobs start and end and returns canned results.
type fakeRunner struct {
	results        map[job.Index]action.Result
	pretendResults map[job.Index]action.Result
	before         func(ctx context.Context, req action.Request)
	events         []string
	mu             sync.Mutex
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results:        make(map[job.Index]action.Result),
		pretendResults: make(map[job.Index]action.Result),
	}
}

func (runner *fakeRunner) fail(index job.Index, exitCode int) *fakeRunner {
	runner.results[index] = action.Result{ExitCode: exitCode}

	return runner
}

func (runner *fakeRunner) record(event string) {
	runner.mu.Lock()
	defer runner.mu.Unlock()

	runner.events = append(runner.events, event)
}

func (runner *fakeRunner) Run(ctx context.Context, req action.Request, out io.Writer) action.Result {
	runner.record(fmt.Sprintf("start %s %d", req.Phase, req.Index))
	defer runner.record(fmt.Sprintf("end %s %d", req.Phase, req.Index))

	_, _ = fmt.Fprintf(out, "running %s\n", req.Job.Description())

	if runner.before != nil {
		runner.before(ctx, req)
	}

	if req.Phase == action.PhasePretend {
		return runner.pretendResults[req.Index]
	}

	return runner.results[req.Index]
}

func (runner *fakeRunner) Events() []string {
	runner.mu.Lock()
	defer runner.mu.Unlock()

	return slices.Clone(runner.events)
}

func (runner *fakeRunner) Started() []job.Index {
	var started []job.Index

	for _, event := range runner.Events() {
		var (
			phase string
			index int
		)

		if n, _ := fmt.Sscanf(event, "start %s %d", &phase, &index); n == 2 && phase != "pretend" {
			started = append(started, job.Index(index))
		}
	}

	return started
}

func position(events []string, event string) int {
	return slices.Index(events, event)
}

func newData(t *testing.T, list *job.List, states []job.State) *resume.Data {
	t.Helper()

	if states == nil {
		states = job.PendingStates(list.Len())
	}

	return &resume.Data{
		RunID:       "run",
		ExecuteJobs: list,
		States:      states,
		Targets:     []string{"cat/a", "cat/b"},
	}
}

// fetchInstallPairs builds Fetch(a), Fetch(b), Install(a), Install(b), each install gated on its fetch.
func fetchInstallPairs(t *testing.T) *job.List {
	t.Helper()

	builder := job.NewBuilder()
	fetchA := builder.MustAppend(job.FetchJob{Origin: "cat/a-1"})
	fetchB := builder.MustAppend(job.FetchJob{Origin: "cat/b-1"})
	builder.MustAppend(job.InstallJob{Origin: "cat/a-1", Destination: "installed"},
		job.Requirement{Target: fetchA, Flags: job.FetchGate | job.RequireAlways})
	builder.MustAppend(job.InstallJob{Origin: "cat/b-1", Destination: "installed"},
		job.Requirement{Target: fetchB, Flags: job.FetchGate | job.RequireAlways})

	list := builder.List()
	require.Equal(t, 4, list.Len())

	return list
}
