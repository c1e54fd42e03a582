package job_test

import (
	"testing"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransition(t *testing.T) {
	t.Parallel()

	all := []job.State{job.Pending{}, job.Active{}, job.Succeeded{}, job.Failed{}, job.Skipped{}}

	allowed := map[[2]job.Status]bool{
		{job.StatusPending, job.StatusActive}:   true,
		{job.StatusActive, job.StatusSucceeded}: true,
		{job.StatusActive, job.StatusFailed}:    true,
		{job.StatusPending, job.StatusSkipped}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			err := job.CheckTransition(from, to)
			if allowed[[2]job.Status{from.Status(), to.Status()}] {
				require.NoError(t, err, "%s -> %s", from.Status(), to.Status())

				continue
			}

			require.Error(t, err, "%s -> %s", from.Status(), to.Status())

			var transErr job.InvalidTransitionError
			require.True(t, errors.As(err, &transErr))
			assert.Equal(t, from.Status(), transErr.From)
			assert.Equal(t, to.Status(), transErr.To)
		}
	}
}

func TestCheckResumeTransition(t *testing.T) {
	t.Parallel()

	require.NoError(t, job.CheckResumeTransition(job.Active{}, job.Pending{}))
	require.NoError(t, job.CheckResumeTransition(job.Failed{}, job.Pending{}))
	require.NoError(t, job.CheckResumeTransition(job.Skipped{}, job.Pending{}))
	require.NoError(t, job.CheckResumeTransition(job.Failed{}, job.Skipped{}))

	assert.Error(t, job.CheckResumeTransition(job.Succeeded{}, job.Pending{}))
	assert.Error(t, job.CheckResumeTransition(job.Pending{}, job.Active{}))
}

func TestIsStartable(t *testing.T) {
	t.Parallel()

	assert.False(t, job.IsStartable(job.Pending{}))
	assert.False(t, job.IsStartable(job.Active{}))
	assert.True(t, job.IsStartable(job.Succeeded{}))
	assert.True(t, job.IsStartable(job.Failed{}))
	assert.True(t, job.IsStartable(job.Skipped{}))
}

func TestOutputOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, job.OutputRef("a.log"), job.OutputOf(job.Failed{Output: "a.log", ExitCode: 1}))
	assert.Empty(t, job.OutputOf(job.Skipped{Reason: "x"}))
}
