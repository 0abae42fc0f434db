package graph

import (
	"fmt"
	"strings"
)

const (
	unvisited = iota
	visiting
	visited
)

// DetectCycles returns every cycle reachable by a depth-first walk started
// from each unvisited node in id order. Each cycle lists its nodes in edge
// order, beginning with the node the walk entered first.
func (g *Graph) DetectCycles() [][]string {
	state := make(map[string]int, len(g.nodes))
	var cycles [][]string

	var dfs func(id string, path []string)
	dfs = func(id string, path []string) {
		state[id] = visiting
		path = append(path, id)

		for _, next := range g.Successors(id) {
			switch state[next] {
			case visiting:
				for i, p := range path {
					if p == next {
						cycles = append(cycles, append([]string(nil), path[i:]...))
						break
					}
				}
			case unvisited:
				dfs(next, path)
			}
		}

		state[id] = visited
	}

	for _, id := range g.NodeIDs() {
		if state[id] == unvisited {
			dfs(id, nil)
		}
	}
	return cycles
}

// edgesBetween returns the edges from -> to.
func (g *Graph) edgesBetween(from, to string) []DependencyEdge {
	var out []DependencyEdge
	for _, e := range g.edges {
		if e.From == from && e.To == to {
			out = append(out, e)
		}
	}
	return out
}

// FormatCycleReport renders cycles as a human readable report. It returns an
// empty string when cycles is empty.
func FormatCycleReport(g *Graph, cycles [][]string) string {
	if len(cycles) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Circular dependency detected in the workflow graph.\n\n")
	fmt.Fprintf(&b, "Found %d circular dependency chain(s):\n\n", len(cycles))

	for i, cycle := range cycles {
		fmt.Fprintf(&b, "Cycle %d (%d nodes):\n", i+1, len(cycle))

		labels := make([]string, 0, len(cycle)+1)
		for _, id := range cycle {
			labels = append(labels, g.nodeLabel(id))
		}
		labels = append(labels, labels[0])
		fmt.Fprintf(&b, "  %s\n", strings.Join(labels, " -> "))

		b.WriteString("  Dependencies in this cycle:\n")
		for j, from := range cycle {
			to := cycle[(j+1)%len(cycle)]
			for _, e := range g.edgesBetween(from, to) {
				fmt.Fprintf(&b, "    %s -> %s (%s)", e.From, e.To, e.Kind)
				if e.ResourcePath != "" {
					fmt.Fprintf(&b, " [resource: %s]", e.ResourcePath)
				}
				if e.Description != "" {
					fmt.Fprintf(&b, " - %s", e.Description)
				}
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Resolution suggestions:\n")
	b.WriteString("1. Remove or modify one of the dependencies in each cycle\n")
	b.WriteString("2. Check that every dependency is actually necessary\n")
	b.WriteString("3. Write intermediate results to distinct paths")
	return b.String()
}

func (g *Graph) nodeLabel(id string) string {
	node, ok := g.nodes[id]
	if !ok || node.Request == nil {
		return id
	}
	return fmt.Sprintf("%s (%s)", id, node.Request.Kind())
}
