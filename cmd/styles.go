package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattsolo1/grove-binforge/pkg/deps"
	"github.com/mattsolo1/grove-binforge/pkg/orchestrator"
)

var theme = struct {
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Box     lipgloss.Style
}{
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1),
}

func checkMark(ok bool) string {
	if ok {
		return theme.Success.Render("✓")
	}
	return theme.Error.Render("✗")
}

// renderSummary renders the per-tool outcome of a batch.
func renderSummary(b *orchestrator.Batch) string {
	ok, failed := b.Counts()

	var lines []string
	for _, r := range b.Reports {
		if r.Succeeded {
			lines = append(lines, fmt.Sprintf("%s %-14s %s %s",
				checkMark(true), r.Tool, r.PublishedPath, theme.Muted.Render(formatDuration(r.Duration))))
			continue
		}
		where := string(r.Stage)
		if r.Stage == orchestrator.StageNone {
			where = string(r.Kind)
		}
		lines = append(lines, fmt.Sprintf("%s %-14s %s %s",
			checkMark(false), r.Tool, theme.Warning.Render("["+where+"]"), r.Detail))
	}

	title := theme.Bold.Render(fmt.Sprintf("Built %d/%d", ok, len(b.Reports)))
	if failed > 0 {
		title += theme.Error.Render(fmt.Sprintf("  %d failed", failed))
	}
	body := title
	if len(lines) > 0 {
		body += "\n\n" + strings.Join(lines, "\n")
	}
	return theme.Box.Render(body)
}

// renderDeps renders a host readiness report.
func renderDeps(rep deps.Report) string {
	var b strings.Builder
	b.WriteString(theme.Bold.Render("Toolchains") + "\n")
	fmt.Fprintf(&b, "  %s %s\n", checkMark(rep.Git), "git")

	ids := make([]string, 0, len(rep.Backends))
	for id := range rep.Backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "  %s %s\n", checkMark(rep.Backends[id]), id)
	}

	b.WriteString("\n" + theme.Bold.Render("Tools") + "\n")
	for _, t := range rep.Tools {
		req := t.Requires
		if req == "" {
			req = "-"
		}
		fmt.Fprintf(&b, "  %s %-14s %s\n", checkMark(t.Ready), t.Name, theme.Muted.Render("requires "+req))
	}

	b.WriteString("\n" + fmt.Sprintf("%d/%d tools buildable", rep.Buildable(), len(rep.Tools)))
	return theme.Box.Render(b.String())
}
