package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/cph/internal/graph"
	"github.com/alexisbeaulieu97/cph/internal/step"
	"github.com/alexisbeaulieu97/cph/internal/workflow"
	"github.com/alexisbeaulieu97/cph/pkg/diff"
)

// Plan renders a prepared workflow: step list changes made by resolution,
// graph nodes and edges, parallel groups and metrics. A graph without a valid
// order is still rendered; the ordering error is returned alongside.
func Plan(p *workflow.Prepared) (string, error) {
	if p == nil || p.Graph == nil {
		return "", fmt.Errorf("workflow is not prepared")
	}
	g := p.Graph

	title := "cph • plan"
	if p.Path != "" {
		title += " " + p.Path
	}
	sections := []string{titleStyle.Render(title)}

	sections = append(sections, sectionStyle.Render("Steps"))
	if changes := diff.Lines(labels(p.Steps), labels(p.Optimized), "steps", "resolved"); changes != "" {
		sections = append(sections, strings.TrimSuffix(changes, "\n"))
	} else {
		sections = append(sections, mutedStyle.Render(fmt.Sprintf("%d step(s), no changes from resolution", len(p.Steps))))
	}

	if len(p.FactoryErrors) > 0 {
		sections = append(sections, sectionStyle.Render("Rejected"))
		lines := make([]string, 0, len(p.FactoryErrors))
		for _, err := range p.FactoryErrors {
			lines = append(lines, " "+failureStyle.Render("✗")+" "+err.Error())
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	sections = append(sections, sectionStyle.Render("Nodes"), renderNodes(g))
	sections = append(sections, sectionStyle.Render("Dependencies"), renderEdges(g))

	groups, err := g.GetParallelGroups()
	sections = append(sections, sectionStyle.Render("Parallel groups"))
	if err != nil {
		sections = append(sections, failureStyle.Render("no valid execution order"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...), err
	}
	sections = append(sections, renderGroups(groups))

	sections = append(sections, sectionStyle.Render("Metrics"), summaryStyle.Render(renderMetrics(g.Metrics())))
	return lipgloss.JoinVertical(lipgloss.Left, sections...), nil
}

func labels(steps []step.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Label()
	}
	return out
}

func renderNodes(g *graph.Graph) string {
	ids := g.NodeIDs()
	if len(ids) == 0 {
		return mutedStyle.Render("(none)")
	}
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		node, _ := g.Node(id)
		kind, _ := node.Metadata[graph.MetadataStepType].(string)
		line := fmt.Sprintf(" %-8s %-12s %s", id, kind, node.Request.Describe())
		if auto, _ := node.Metadata["auto_generated"].(bool); auto {
			line += mutedStyle.Render(" (auto)")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderEdges(g *graph.Graph) string {
	edges := g.Edges()
	if len(edges) == 0 {
		return mutedStyle.Render("(none)")
	}
	lines := make([]string, 0, len(edges))
	for _, e := range edges {
		line := fmt.Sprintf(" %s -> %s (%s)", e.From, e.To, e.Kind)
		if e.ResourcePath != "" {
			line += mutedStyle.Render(" [" + e.ResourcePath + "]")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderGroups(groups [][]string) string {
	if len(groups) == 0 {
		return mutedStyle.Render("(none)")
	}
	lines := make([]string, 0, len(groups))
	for i, group := range groups {
		lines = append(lines, fmt.Sprintf(" Group %d: %s", i+1, strings.Join(group, ", ")))
	}
	return strings.Join(lines, "\n")
}

func renderMetrics(m graph.Metrics) string {
	lines := []string{
		fmt.Sprintf("Nodes: %d  Edges: %d  Groups: %d  Max parallelism: %d", m.NodeCount, m.EdgeCount, m.GroupCount, m.MaxParallelism),
		fmt.Sprintf("Files created: %d  Dirs created: %d  Files read: %d", m.TotalFilesCreated, m.TotalDirsCreated, m.TotalFilesRead),
		fmt.Sprintf("Complexity: %.2f", m.Complexity),
	}
	if len(m.StepTypes) > 0 {
		lines = append(lines, "Step types: "+tally(m.StepTypes))
	}
	if len(m.EdgeKinds) > 0 {
		kinds := make(map[string]int, len(m.EdgeKinds))
		for k, v := range m.EdgeKinds {
			kinds[string(k)] = v
		}
		lines = append(lines, "Edge kinds: "+tally(kinds))
	}
	return strings.Join(lines, "\n")
}

func tally(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
