package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sourcepkg/pkgexec/internal/errors"
)

const (
	prefix              = "   "
	runSummaryHeader    = "❯❯ Run Summary"
	separatorLineLength = 28
	labelWidth          = 12
)

// Summary formats data from a report for output as a summary.
type Summary struct {
	firstRunStart       *time.Time
	lastRunEnd          *time.Time
	runs                []*Run
	JobsSucceeded       int
	JobsFailed          int
	JobsSkipped         int
	JobsPending         int
	shouldColor         bool
	showJobLevelSummary bool
}

// Summarize returns a summary of the report.
func (r *Report) Summarize() *Summary {
	summary := &Summary{
		shouldColor:         r.shouldColor,
		showJobLevelSummary: r.showJobLevelSummary,
		runs:                r.Runs(),
	}

	for _, run := range summary.runs {
		summary.Update(run)
	}

	return summary
}

func (s *Summary) TotalJobs() int {
	return len(s.runs)
}

func (s *Summary) Update(run *Run) {
	run.mu.RLock()
	defer run.mu.RUnlock()

	switch run.Result {
	case ResultSucceeded:
		s.JobsSucceeded++
	case ResultFailed:
		s.JobsFailed++
	case ResultSkipped:
		s.JobsSkipped++
	case ResultPending:
		s.JobsPending++
	}

	if s.firstRunStart == nil || run.Started.Before(*s.firstRunStart) {
		s.firstRunStart = &run.Started
	}

	if !run.Ended.IsZero() && (s.lastRunEnd == nil || run.Ended.After(*s.lastRunEnd)) {
		s.lastRunEnd = &run.Ended
	}
}

// TotalDuration returns the time between the first start and the last end.
func (s *Summary) TotalDuration() time.Duration {
	if s.firstRunStart == nil || s.lastRunEnd == nil {
		return 0
	}

	return s.lastRunEnd.Sub(*s.firstRunStart)
}

// WriteSummary writes the summary table to w.
func (r *Report) WriteSummary(w io.Writer) error {
	summary := r.Summarize()

	if _, err := fmt.Fprintln(w); err != nil {
		return errors.New(err)
	}

	if err := summary.Write(w); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return errors.New(err)
	}

	return nil
}

type category struct {
	colorize func(string) string
	label    string
	result   Result
	count    int
}

func (s *Summary) categories(colorizer *Colorizer) []category {
	return []category{
		{colorizer.successColorizer, "Succeeded", ResultSucceeded, s.JobsSucceeded},
		{colorizer.failureColorizer, "Failed", ResultFailed, s.JobsFailed},
		{colorizer.skippedColorizer, "Skipped", ResultSkipped, s.JobsSkipped},
		{colorizer.pendingColorizer, "Not run", ResultPending, s.JobsPending},
	}
}

// Write writes the summary to a writer.
func (s *Summary) Write(w io.Writer) error {
	colorizer := NewColorizer(s.shouldColor)

	lines := []string{
		fmt.Sprintf("%s  %s  %s",
			colorizer.headingTitleColorizer(runSummaryHeader),
			colorizer.headingJobColorizer(fmt.Sprintf("%d jobs", s.TotalJobs())),
			colorizer.colorDuration(s.TotalDuration()),
		),
		prefix + strings.Repeat("─", separatorLineLength),
	}

	for _, cat := range s.categories(colorizer) {
		if cat.count == 0 {
			continue
		}

		padding := strings.Repeat(" ", max(2, labelWidth-len(cat.label)))
		lines = append(lines, prefix+cat.colorize(cat.label)+padding+strconv.Itoa(cat.count))

		if s.showJobLevelSummary {
			lines = append(lines, s.jobLines(cat.result, colorizer)...)
		}
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return errors.New(err)
		}
	}

	return nil
}

func (s *Summary) jobLines(result Result, colorizer *Colorizer) []string {
	var lines []string

	for _, run := range s.runs {
		if run.Result != result {
			continue
		}

		line := prefix + prefix + colorizer.result(result)(fmt.Sprintf("[%d] %s", run.Index, run.Name))

		if result == ResultSucceeded || result == ResultFailed {
			line += "  " + colorizer.colorDuration(run.Ended.Sub(run.Started))
		}

		if detail := run.detail(); detail != "" {
			line += "  " + colorizer.reasonColorizer("("+detail+")")
		}

		lines = append(lines, line)
	}

	return lines
}

func (run *Run) detail() string {
	var parts []string

	if run.Reason != nil {
		parts = append(parts, string(*run.Reason))
	}

	if run.Cause != nil {
		parts = append(parts, string(*run.Cause))
	}

	if run.Result == ResultFailed && run.ExitCode != 0 {
		parts = append(parts, "exit status "+strconv.Itoa(run.ExitCode))
	}

	if run.Output != "" && run.Result == ResultFailed {
		parts = append(parts, "log "+run.Output)
	}

	return strings.Join(parts, ", ")
}
