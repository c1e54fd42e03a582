package executor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sourcepkg/pkgexec/internal/action"
	"github.com/sourcepkg/pkgexec/internal/errors"
	"github.com/sourcepkg/pkgexec/internal/job"
	"github.com/sourcepkg/pkgexec/internal/telemetry"
	"github.com/sourcepkg/pkgexec/pkg/log"
)

// Pretend runs the pretend check of every job in list, in order, and stops at the first failure.
func (e *Executor) Pretend(ctx context.Context, list *job.List, out io.Writer) error {
	return telemetry.TelemeterFromContext(ctx).Collect(ctx, "pretend", map[string]any{"jobs": list.Len()}, func(ctx context.Context) error {
		for i := range list.Len() {
			index := job.Index(i)
			j := list.Job(index)

			if ctx.Err() != nil {
				return errors.New(ctx.Err())
			}

			e.logger.WithField(log.FieldKeyPrefix, j.Description()).Debugf("Pretend check of job %d", index)

			result := e.runner.Run(ctx, action.Request{Job: j, Phase: action.PhasePretend, Index: index}, out)
			if result.Succeeded() {
				continue
			}

			if result.Err != nil {
				e.logger.Errorf("Pretend check of %s failed: %v", j.Description(), result.Err)
			}

			return errors.New(PretendFailedError{Index: index, Description: j.Description(), ExitCode: result.Status()})
		}

		return nil
	})
}

var (
	planTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	planIndexStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(7).Align(lipgloss.Right)
	planRequireStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	planStateStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("12"))
	planKindStyles   = map[job.Kind]lipgloss.Style{
		job.KindFetch:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Width(10).PaddingLeft(1),
		job.KindInstall:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Width(10).PaddingLeft(1),
		job.KindUninstall: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Width(10).PaddingLeft(1),
	}
)

// RenderPlan writes the execute list, one job per line with its requirements. States may be nil;
// when given, jobs that are no longer pending are marked.
func RenderPlan(w io.Writer, list *job.List, states []job.State) error {
	renderer := lipgloss.NewRenderer(w)

	lines := []string{
		planTitleStyle.Renderer(renderer).Render(fmt.Sprintf("Execution plan: %d jobs", list.Len())),
	}

	for i := range list.Len() {
		index := job.Index(i)
		j := list.Job(index)

		line := planIndexStyle.Renderer(renderer).Render(fmt.Sprintf("[%d]", index)) +
			planKindStyles[j.Kind()].Renderer(renderer).Render(j.Kind().String()) +
			strings.TrimPrefix(j.Description(), j.Kind().String()+" ")

		if reqs := list.Requirements(index); len(reqs) > 0 {
			parts := make([]string, 0, len(reqs))
			for _, req := range reqs {
				parts = append(parts, fmt.Sprintf("%d (%s)", req.Target, req.Flags))
			}

			line += planRequireStyle.Renderer(renderer).Render("  requires " + strings.Join(parts, ", "))
		}

		if states != nil {
			if _, pending := states[i].(job.Pending); !pending {
				line += planStateStyle.Renderer(renderer).Render("  " + states[i].Status().String())
			}
		}

		lines = append(lines, line)
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))

	return errors.WithStackTrace(err)
}
