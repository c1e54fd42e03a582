package resume_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/internal/resume"
	"github.com/sourcepkg/pkgexec/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData(t *testing.T) *resume.Data {
	t.Helper()

	builder := job.NewBuilder()
	fetch := builder.MustAppend(job.FetchJob{Origin: "cat/a-1"})
	builder.MustAppend(job.InstallJob{Origin: "cat/a-1", Destination: "installed"},
		job.Requirement{Target: fetch, Flags: job.FetchGate | job.RequireAlways})
	builder.MustAppend(job.UninstallJob{Targets: []job.Spec{"cat/old-1"}})

	pretend := job.NewBuilder()
	pretend.MustAppend(job.InstallJob{Origin: "cat/a-1", Destination: "installed"})

	return &resume.Data{
		RunID:       "3f1c2f43-9a51-4a6b-9f43-5bb1f4ad1f0e",
		ExecuteJobs: builder.List(),
		PretendJobs: pretend.List(),
		States: []job.State{
			job.Succeeded{Output: "0.log"},
			job.Failed{Output: "1.log", ExitCode: 1},
			job.Skipped{Reason: "failure policy"},
		},
		Targets:                 []string{"cat/a"},
		WorldSpecs:              []string{"cat/a"},
		RemovedIfDependentNames: []string{"cat/old"},
		PreserveWorld:           true,
	}
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec, err := resume.NewCodec("1.2.0")
	require.NoError(t, err)

	data := sampleData(t)

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, data))

	decoded, err := codec.Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, data.RunID, decoded.RunID)
	assert.Equal(t, data.ExecuteJobs.Entries(), decoded.ExecuteJobs.Entries())
	assert.Equal(t, data.PretendJobs.Entries(), decoded.PretendJobs.Entries())
	assert.Equal(t, data.States, decoded.States)
	assert.Equal(t, data.Targets, decoded.Targets)
	assert.Equal(t, data.WorldSpecs, decoded.WorldSpecs)
	assert.Equal(t, data.RemovedIfDependentNames, decoded.RemovedIfDependentNames)
	assert.True(t, decoded.PreserveWorld)
	assert.False(t, decoded.TargetIsSet)
}

func TestDecodeRejectsOtherEngineVersion(t *testing.T) {
	t.Parallel()

	older, err := resume.NewCodec("1.1.0")
	require.NoError(t, err)

	newer, err := resume.NewCodec("1.2.0")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, older.Encode(&buf, sampleData(t)))

	_, err = newer.Decode(&buf)
	require.Error(t, err)

	var versionErr resume.IncompatibleVersionError
	require.True(t, errors.As(err, &versionErr))
	assert.Equal(t, "1.1.0", versionErr.EngineVersion)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	codec, err := resume.NewCodec("1.0.0")
	require.NoError(t, err)

	_, err = codec.Decode(strings.NewReader("{not json"))
	require.Error(t, err)

	var serErr resume.SerializationError
	assert.True(t, errors.As(err, &serErr))
}

func TestStoreCheckpointAndDelete(t *testing.T) {
	t.Parallel()

	codec, err := resume.NewCodec("1.0.0")
	require.NoError(t, err)

	store := resume.NewStore(log.Discard(), filepath.Join(t.TempDir(), "resume.json"), codec)

	_, err = store.Load()

	var notFound resume.NotFoundError
	require.True(t, errors.As(err, &notFound))

	data := sampleData(t)
	require.NoError(t, store.Checkpoint(t.Context(), data, false))
	assert.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, data.States, loaded.States)

	require.NoError(t, store.Checkpoint(t.Context(), data, true))
	assert.False(t, store.Exists())
}

func TestStoreLockIsExclusive(t *testing.T) {
	t.Parallel()

	codec, err := resume.NewCodec("1.0.0")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "resume.json")
	first := resume.NewStore(log.Discard(), path, codec)
	second := resume.NewStore(log.Discard(), path, codec)

	require.NoError(t, first.Lock())
	require.Error(t, second.Lock())
	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock())
	require.NoError(t, second.Unlock())
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	states := []job.State{
		job.Succeeded{},
		job.Active{Output: "1.log"},
		job.Failed{ExitCode: 1},
		job.Skipped{Reason: "failure policy"},
		job.Pending{},
	}

	testCases := []struct {
		name     string
		opts     resume.ReconcileOptions
		expected []job.State
	}{
		{
			name:     "defaults only reset active",
			expected: []job.State{job.Succeeded{}, job.Pending{}, job.Failed{ExitCode: 1}, job.Skipped{Reason: "failure policy"}, job.Pending{}},
		},
		{
			name:     "retry failed and skipped",
			opts:     resume.ReconcileOptions{RetryFailed: true, RetrySkipped: true},
			expected: []job.State{job.Succeeded{}, job.Pending{}, job.Pending{}, job.Pending{}, job.Pending{}},
		},
		{
			name:     "skip failed",
			opts:     resume.ReconcileOptions{SkipFailed: true},
			expected: []job.State{job.Succeeded{}, job.Pending{}, job.Skipped{Reason: resume.ReasonSkipFailed}, job.Skipped{Reason: "failure policy"}, job.Pending{}},
		},
		{
			name:     "retry failed wins over skip failed",
			opts:     resume.ReconcileOptions{RetryFailed: true, SkipFailed: true},
			expected: []job.State{job.Succeeded{}, job.Pending{}, job.Pending{}, job.Skipped{Reason: "failure policy"}, job.Pending{}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reconciled, err := resume.Reconcile(states, tc.opts)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, reconciled)
		})
	}
}
