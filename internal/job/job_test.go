package job_test

import (
	"encoding/json"
	"testing"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderRejectsForwardRequirement(t *testing.T) {
	t.Parallel()

	builder := job.NewBuilder()
	builder.MustAppend(job.FetchJob{Origin: "cat/a-1"})

	_, err := builder.Append(job.InstallJob{Origin: "cat/a-1", Destination: "installed"},
		job.Requirement{Target: 1, Flags: job.FetchGate})
	require.Error(t, err)

	var reqErr job.InvalidRequirementError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, job.Index(1), reqErr.Job)
	assert.Equal(t, job.Index(1), reqErr.Target)

	index, err := builder.Append(job.InstallJob{Origin: "cat/a-1", Destination: "installed"},
		job.Requirement{Target: 0, Flags: job.FetchGate | job.RequireAlways})
	require.NoError(t, err)
	assert.Equal(t, job.Index(1), index)
	assert.Equal(t, 2, builder.List().Len())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		job   job.Job
		valid bool
	}{
		{"fetch", job.FetchJob{Origin: "cat/a-1"}, true},
		{"fetch without origin", job.FetchJob{}, false},
		{"install", job.InstallJob{Origin: "cat/a-1", Destination: "installed"}, true},
		{"install without destination", job.InstallJob{Origin: "cat/a-1"}, false},
		{"uninstall", job.UninstallJob{Targets: []job.Spec{"cat/b-2"}}, true},
		{"uninstall without targets", job.UninstallJob{}, false},
		{"nil", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := job.Validate(tc.job)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDescription(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fetch cat/a-1", job.FetchJob{Origin: "cat/a-1"}.Description())
	assert.Equal(t, "install cat/a-1 to installed", job.InstallJob{Origin: "cat/a-1", Destination: "installed"}.Description())
	assert.Equal(t, "uninstall cat/b-2, cat/c-3", job.UninstallJob{Targets: []job.Spec{"cat/b-2", "cat/c-3"}}.Description())
}

func TestRequirementFlags(t *testing.T) {
	t.Parallel()

	flags, err := job.ParseRequirementFlags("fetch_gate", "IF_SATISFIED")
	require.NoError(t, err)
	assert.True(t, flags.Has(job.FetchGate))
	assert.True(t, flags.Has(job.RequireIfSatisfied))
	assert.False(t, flags.Has(job.RequireAlways))
	assert.Equal(t, "fetch_gate|if_satisfied", flags.String())

	_, err = job.ParseRequirementFlags("sometimes")
	assert.Error(t, err)
}

func TestListJSON(t *testing.T) {
	t.Parallel()

	builder := job.NewBuilder()
	fetch := builder.MustAppend(job.FetchJob{Origin: "cat/a-1"})
	builder.MustAppend(job.InstallJob{
		Origin:          "cat/a-1",
		Destination:     "installed",
		Replacing:       []job.Spec{"cat/a-0"},
		DestinationKind: job.CreateBinary,
	}, job.Requirement{Target: fetch, Flags: job.FetchGate | job.RequireAlways})
	builder.MustAppend(job.UninstallJob{Targets: []job.Spec{"cat/old-1"}})

	list := builder.List()

	data, err := json.Marshal(list)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"destination_kind":"binary"`)
	assert.Contains(t, string(data), `"flags":["fetch_gate","always"]`)

	decoded := &job.List{}
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, list.Entries(), decoded.Entries())
}

func TestListJSONRejectsForwardRequirement(t *testing.T) {
	t.Parallel()

	data := `[{"kind":"install","origin":"cat/a-1","destination":"installed","requires":[{"target":0}]}]`

	err := json.Unmarshal([]byte(data), &job.List{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job 0")
}

func TestStateRecords(t *testing.T) {
	t.Parallel()

	states := []job.State{
		job.Pending{},
		job.Active{Output: "/tmp/1.log"},
		job.Succeeded{Output: "/tmp/2.log"},
		job.Failed{Output: "/tmp/3.log", ExitCode: 2},
		job.Skipped{Reason: "fetch only"},
	}

	decoded, err := job.DecodeStates(job.EncodeStates(states))
	require.NoError(t, err)
	assert.Equal(t, states, decoded)

	_, err = job.DecodeState(job.StateRecord{Status: "exploded"})
	assert.Error(t, err)
}

func TestListIsImmutable(t *testing.T) {
	t.Parallel()

	replacing := []job.Spec{"cat/a-0"}
	requirements := []job.Requirement{{Target: 0, Flags: job.FetchGate}}

	builder := job.NewBuilder()
	builder.MustAppend(job.FetchJob{Origin: "cat/a-1"})
	builder.MustAppend(job.InstallJob{Origin: "cat/a-1", Destination: "installed", Replacing: replacing}, requirements...)
	builder.MustAppend(job.UninstallJob{Targets: []job.Spec{"cat/old-1"}})
	list := builder.List()

	replacing[0] = "cat/b-0"
	requirements[0].Flags = job.RequireAlways

	reqs := list.Requirements(1)
	reqs[0] = job.Requirement{Target: 0, Flags: job.RequireIfSatisfied}

	install := list.Job(1).(job.InstallJob)
	install.Replacing[0] = "cat/c-0"

	uninstall := list.Job(2).(job.UninstallJob)
	uninstall.Targets[0] = "cat/c-1"

	entries := list.Entries()
	entries[1].Requirements[0].Target = 1

	assert.Equal(t, []job.Requirement{{Target: 0, Flags: job.FetchGate}}, list.Requirements(1))
	assert.Equal(t, []job.Spec{"cat/a-0"}, list.Job(1).(job.InstallJob).Replacing)
	assert.Equal(t, []job.Spec{"cat/old-1"}, list.Job(2).(job.UninstallJob).Targets)
}
