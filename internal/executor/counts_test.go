package executor_test

import (
	"bytes"
	"testing"

	"github.com/sourcepkg/pkgexec/internal/executor"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCounts(t *testing.T) {
	t.Parallel()

	builder := job.NewBuilder()
	builder.MustAppend(job.FetchJob{Origin: "cat/a-1"})
	builder.MustAppend(job.FetchJob{Origin: "cat/b-1"})
	builder.MustAppend(job.InstallJob{Origin: "cat/a-1", Destination: "installed"})
	builder.MustAppend(job.UninstallJob{Targets: []job.Spec{"cat/old-1"}})

	counts := executor.NewExecuteCounts(builder.List())
	assert.Equal(t, "fetch 0 of 2, install 0 of 2", counts.String())

	counts.Update(job.KindFetch, job.Succeeded{})
	counts.Update(job.KindFetch, job.Failed{ExitCode: 1})
	counts.Update(job.KindInstall, job.Skipped{})
	counts.Update(job.KindUninstall, job.Succeeded{})

	assert.Equal(t, executor.Counts{
		FetchDone:      2,
		FetchTotal:     2,
		FetchFailed:    1,
		InstallDone:    1,
		InstallTotal:   2,
		InstallSkipped: 1,
	}, counts.Snapshot())
	assert.Equal(t, "fetch 2 of 2 (1 failed), install 1 of 2 (1 skipped)", counts.String())
}

func TestRenderPlanMarksSettledJobs(t *testing.T) {
	t.Parallel()

	list := fetchInstallPairs(t)

	var buf bytes.Buffer
	require.NoError(t, executor.RenderPlan(&buf, list, []job.State{
		job.Succeeded{}, job.Pending{}, job.Pending{}, job.Pending{},
	}))

	out := buf.String()
	assert.Contains(t, out, "Execution plan: 4 jobs")
	assert.Contains(t, out, "[0]")
	assert.Contains(t, out, "succeeded")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("succeeded")))
}
