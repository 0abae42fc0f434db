package graph

import (
	"fmt"
	"strings"
)

// MetadataStepType is the metadata key holding a node's step type.
const MetadataStepType = "step_type"

// Metrics summarises the shape of a graph.
type Metrics struct {
	NodeCount         int              `json:"node_count"`
	EdgeCount         int              `json:"edge_count"`
	GroupCount        int              `json:"group_count"`
	MaxParallelism    int              `json:"max_parallelism"`
	StepTypes         map[string]int   `json:"step_types"`
	EdgeKinds         map[EdgeKind]int `json:"edge_kinds"`
	TotalFilesCreated int              `json:"total_files_created"`
	TotalDirsCreated  int              `json:"total_dirs_created"`
	TotalFilesRead    int              `json:"total_files_read"`
	// Complexity is edges per node.
	Complexity float64 `json:"complexity"`
}

// Metrics computes node, edge and resource tallies. Group figures stay zero
// when the graph has a cycle.
func (g *Graph) Metrics() Metrics {
	m := Metrics{
		NodeCount: len(g.nodes),
		EdgeCount: len(g.edges),
		StepTypes: make(map[string]int),
		EdgeKinds: make(map[EdgeKind]int),
	}

	for _, node := range g.nodes {
		m.StepTypes[nodeType(node)]++
		m.TotalFilesCreated += node.Resources.CreatesFiles.Cardinality()
		m.TotalDirsCreated += node.Resources.CreatesDirs.Cardinality()
		m.TotalFilesRead += node.Resources.ReadsFiles.Cardinality()
	}
	for _, e := range g.edges {
		m.EdgeKinds[e.Kind]++
	}
	if m.NodeCount > 0 {
		m.Complexity = float64(m.EdgeCount) / float64(m.NodeCount)
	}

	if groups, err := g.GetParallelGroups(); err == nil {
		m.GroupCount = len(groups)
		for _, group := range groups {
			if len(group) > m.MaxParallelism {
				m.MaxParallelism = len(group)
			}
		}
	}
	return m
}

// Visualize renders nodes, edges and parallel groups as plain text.
func (g *Graph) Visualize() string {
	var b strings.Builder
	b.WriteString("Request Execution Graph:\n")
	fmt.Fprintf(&b, "Nodes: %d\n", len(g.nodes))
	fmt.Fprintf(&b, "Edges: %d\n", len(g.edges))

	b.WriteString("\nNodes:\n")
	for _, id := range g.NodeIDs() {
		node := g.nodes[id]
		fmt.Fprintf(&b, "  %s: %s (status: %s)\n", id, node.Request.Describe(), node.Status)
	}

	b.WriteString("\nDependencies:\n")
	for _, e := range g.edges {
		fmt.Fprintf(&b, "  %s -> %s (%s)", e.From, e.To, e.Kind)
		if e.ResourcePath != "" {
			fmt.Fprintf(&b, " [%s]", e.ResourcePath)
		}
		b.WriteString("\n")
	}

	groups, err := g.GetParallelGroups()
	if err != nil {
		fmt.Fprintf(&b, "\nError: %v\n", err)
		return b.String()
	}
	b.WriteString("\nParallel Execution Groups:\n")
	for i, group := range groups {
		fmt.Fprintf(&b, "  Group %d: %s\n", i+1, strings.Join(group, ", "))
	}
	return b.String()
}

func nodeType(node *RequestNode) string {
	if t, ok := node.Metadata[MetadataStepType].(string); ok && t != "" {
		return t
	}
	return node.Request.Kind()
}
