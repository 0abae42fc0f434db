package render

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/cph/internal/graph"
	"github.com/alexisbeaulieu97/cph/internal/workflow"
)

// Report renders the outcome of a run.
func Report(r *workflow.RunReport) string {
	if r == nil {
		return ""
	}

	sections := []string{titleStyle.Render(fmt.Sprintf("cph • %s run", r.Mode))}

	total := len(r.Nodes)
	sections = append(sections, sectionStyle.Render("Progress"), progressView(r.Succeeded, total))

	if total > 0 {
		lines := make([]string, 0, total)
		for _, n := range r.Nodes {
			line := fmt.Sprintf(" %s %s", StatusIcon(n.Status), n.ID)
			if n.Label != "" {
				line += " " + n.Label
			}
			switch {
			case n.AllowedFailure && n.Result != nil:
				line += mutedStyle.Render(fmt.Sprintf(" (exit %d, allowed)", n.Result.ReturnCode))
			case n.Result != nil && !n.Result.Success:
				line += failureStyle.Render(fmt.Sprintf(" (exit %d)", n.Result.ReturnCode))
			}
			lines = append(lines, line)
		}
		sections = append(sections, sectionStyle.Render("Steps"), strings.Join(lines, "\n"))
	}

	summary := []string{fmt.Sprintf("Steps: %d/%d succeeded", r.Succeeded, total)}
	if r.Failed > 0 {
		summary = append(summary, fmt.Sprintf("Failed: %d", r.Failed))
	}
	if r.Allowed > 0 {
		summary = append(summary, fmt.Sprintf("Allowed failures: %d", r.Allowed))
	}
	if r.Skipped > 0 {
		summary = append(summary, fmt.Sprintf("Skipped: %d", r.Skipped))
	}
	summary = append(summary, fmt.Sprintf("Duration: %s", r.Duration.Truncate(time.Millisecond)))
	if r.RunID != "" {
		summary = append(summary, mutedStyle.Render("Run: "+r.RunID))
	}
	sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(strings.Join(summary, "\n")))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func progressView(done, total int) string {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30

	ratio := 0.0
	if total > 0 {
		ratio = math.Min(1.0, float64(done)/float64(total))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d", done, total))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", bar.ViewAs(ratio))
}

// StatusIcon returns the glyph representing a node status.
func StatusIcon(status graph.Status) string {
	switch status {
	case graph.StatusSuccess:
		return successStyle.Render("✓")
	case graph.StatusRunning:
		return runningStyle.Render("⏳")
	case graph.StatusFailed:
		return failureStyle.Render("✗")
	case graph.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
