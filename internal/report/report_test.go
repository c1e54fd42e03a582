package report_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	now := start.Add(-step)

	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func newTestReport(t *testing.T, opts ...report.Option) *report.Report {
	t.Helper()

	opts = append([]report.Option{report.WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second))}, opts...)
	r := report.NewReport(opts...)

	fetch := job.FetchJob{Origin: "dev-lang/go"}
	install := job.InstallJob{Origin: "dev-lang/go", Destination: "gentoo"}

	require.NoError(t, r.AddRun(r.NewRun(0, fetch)))
	require.NoError(t, r.EndRun(0))

	require.NoError(t, r.AddRun(r.NewRun(1, install)))
	require.NoError(t, r.EndRun(1, report.WithResult(report.ResultFailed), report.WithReason(report.ReasonRunError), report.WithExitCode(2)))

	require.NoError(t, r.Record(2, job.InstallJob{Origin: "app-misc/foo", Destination: "gentoo"},
		report.WithResult(report.ResultSkipped),
		report.WithReason(report.ReasonFailurePolicy),
		report.WithCauseRequirement(1, install),
	))

	return r
}

func TestAddRunRejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := report.NewReport()
	fetch := job.FetchJob{Origin: "dev-lang/go"}

	require.NoError(t, r.AddRun(r.NewRun(0, fetch)))

	err := r.AddRun(r.NewRun(0, fetch))
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrRunAlreadyExists)
}

func TestEndRunUnknownJob(t *testing.T) {
	t.Parallel()

	r := report.NewReport()

	err := r.EndRun(3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, report.ErrRunNotFound))
}

func TestRunsAreOrderedByIndex(t *testing.T) {
	t.Parallel()

	r := report.NewReport()

	require.NoError(t, r.Record(2, job.FetchJob{Origin: "c/c"}))
	require.NoError(t, r.Record(0, job.FetchJob{Origin: "a/a"}))
	require.NoError(t, r.Record(1, job.FetchJob{Origin: "b/b"}))

	runs := r.Runs()
	require.Len(t, runs, 3)

	for i, run := range runs {
		assert.Equal(t, job.Index(i), run.Index)
	}
}

func TestEndRunRecordsOutcome(t *testing.T) {
	t.Parallel()

	r := newTestReport(t)

	run, err := r.GetRun(1)
	require.NoError(t, err)

	assert.Equal(t, report.ResultFailed, run.Result)
	assert.Equal(t, 2, run.ExitCode)
	require.NotNil(t, run.Reason)
	assert.Equal(t, report.ReasonRunError, *run.Reason)

	skipped, err := r.GetRun(2)
	require.NoError(t, err)
	require.NotNil(t, skipped.Cause)
	assert.Equal(t, report.Cause("1: install dev-lang/go to gentoo"), *skipped.Cause)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	summary := newTestReport(t).Summarize()

	assert.Equal(t, 3, summary.TotalJobs())
	assert.Equal(t, 1, summary.JobsSucceeded)
	assert.Equal(t, 1, summary.JobsFailed)
	assert.Equal(t, 1, summary.JobsSkipped)
	assert.Equal(t, 0, summary.JobsPending)
	assert.Positive(t, summary.TotalDuration())
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	r := newTestReport(t, report.WithShowJobLevelSummary(true))

	var buf bytes.Buffer
	require.NoError(t, r.WriteSummary(&buf))

	out := buf.String()
	assert.Contains(t, out, "❯❯ Run Summary  3 jobs")
	assert.Contains(t, out, "Succeeded   1")
	assert.Contains(t, out, "Failed      1")
	assert.Contains(t, out, "Skipped     1")
	assert.NotContains(t, out, "Not run")
	assert.Contains(t, out, "[1] install dev-lang/go to gentoo")
	assert.Contains(t, out, "run error, exit status 2")
	assert.Contains(t, out, "(failure policy, 1: install dev-lang/go to gentoo)")
	assert.NotContains(t, out, "\x1b[")
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, newTestReport(t).WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Index,Name,Kind,Started,Ended,Result,Reason,Cause,ExitCode,Output", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,fetch dev-lang/go,fetch,"))
	assert.Contains(t, lines[2], ",failed,run error,,2,")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, newTestReport(t).WriteJSON(&buf))

	var runs []report.JSONRun
	require.NoError(t, json.Unmarshal(buf.Bytes(), &runs))
	require.Len(t, runs, 3)

	assert.Equal(t, "succeeded", runs[0].Result)
	assert.Nil(t, runs[0].Reason)
	assert.Equal(t, "install", runs[1].Kind)
	require.NotNil(t, runs[2].Cause)
	assert.Equal(t, "1: install dev-lang/go to gentoo", *runs[2].Cause)
}

func TestWriteToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.json")

	r := newTestReport(t, report.WithFormat(report.FormatFromPath(path)))
	require.NoError(t, r.WriteToFile(path))

	assert.Equal(t, report.FormatJSON, report.FormatFromPath(path))
	assert.Equal(t, report.FormatCSV, report.FormatFromPath("report.csv"))
	assert.FileExists(t, path)
}
