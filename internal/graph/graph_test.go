package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

func TestAddNodeRejectsInvalidNodes(t *testing.T) {
	t.Parallel()

	g := New()
	addNode(t, g, "step_0", "a", false)

	require.Error(t, g.AddNode(nil))
	require.Error(t, g.AddNode(&RequestNode{ID: "", Request: fakeRequest{}}))
	require.Error(t, g.AddNode(&RequestNode{ID: "step_1"}))
	require.Error(t, g.AddNode(&RequestNode{ID: "step_0", Request: fakeRequest{}}))

	node, ok := g.Node("step_0")
	require.True(t, ok)
	require.Equal(t, StatusPending, node.Status)
	require.NotNil(t, node.Resources.CreatesFiles)
}

func TestAddEdgeInvariants(t *testing.T) {
	t.Parallel()

	g := New()
	addNode(t, g, "step_0", "a", false)
	addNode(t, g, "step_1", "b", false)

	require.Error(t, g.AddEdge(DependencyEdge{From: "step_0", To: "missing"}))
	require.Error(t, g.AddEdge(DependencyEdge{From: "missing", To: "step_0"}))

	var validationErr *cpherrors.ValidationError
	err := g.AddEdge(DependencyEdge{From: "step_0", To: "step_0"})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, err.Error(), "self-edge")

	addEdge(t, g, "step_0", "step_1", EdgeFileCreation, "x.txt")
	addEdge(t, g, "step_0", "step_1", EdgeFileCreation, "x.txt")
	addEdge(t, g, "step_0", "step_1", EdgeDirectoryCreation, "out")
	require.Len(t, g.Edges(), 2)
	require.Equal(t, []string{"step_1"}, g.Successors("step_0"))
	require.Equal(t, []string{"step_0"}, g.Predecessors("step_1"))
}

func TestExecutionOrderBreaksTiesByIDNumber(t *testing.T) {
	t.Parallel()

	g := New()
	for _, id := range []string{"step_10", "step_2", "step_1", "step_0"} {
		addNode(t, g, id, id, false)
	}
	addEdge(t, g, "step_10", "step_0", EdgeExecutionOrder, "f")

	order, err := g.GetExecutionOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"step_1", "step_2", "step_10", "step_0"}, order)
	require.Equal(t, []string{"step_0", "step_1", "step_2", "step_10"}, g.NodeIDs())
}

func TestFileCreationEdgeOrdersCreatorFirst(t *testing.T) {
	t.Parallel()

	g := New()
	addNode(t, g, "step_0", "reader", false)
	addNode(t, g, "step_1", "creator", false)
	addEdge(t, g, "step_1", "step_0", EdgeFileCreation, "x.txt")

	order, err := g.GetExecutionOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"step_1", "step_0"}, order)
}

func TestCycleFailsOrdering(t *testing.T) {
	t.Parallel()

	g := New()
	addNode(t, g, "step_0", "a", false)
	addNode(t, g, "step_1", "b", false)
	addNode(t, g, "step_2", "c", false)
	addEdge(t, g, "step_0", "step_1", EdgeFileCreation, "x")
	addEdge(t, g, "step_1", "step_0", EdgeFileCreation, "y")
	addEdge(t, g, "step_1", "step_2", EdgeDirectoryCreation, "d")

	_, err := g.GetExecutionOrder()
	var cycleErr *cpherrors.CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, []string{"step_0", "step_1", "step_2"}, cycleErr.Nodes)
	require.Contains(t, cycleErr.Detail, "Cycle 1 (2 nodes)")
	require.Contains(t, cycleErr.Detail, "step_0 (fake) -> step_1 (fake) -> step_0 (fake)")
	require.Contains(t, cycleErr.Detail, "[resource: y]")

	_, err = g.GetParallelGroups()
	require.ErrorAs(t, err, &cycleErr)

	require.Equal(t, [][]string{{"step_0", "step_1"}}, g.DetectCycles())
}

func TestDetectCyclesOnAcyclicGraph(t *testing.T) {
	t.Parallel()

	g := New()
	addNode(t, g, "step_0", "a", false)
	addNode(t, g, "step_1", "b", false)
	addEdge(t, g, "step_0", "step_1", EdgeFileCreation, "x")

	require.Empty(t, g.DetectCycles())
	require.Empty(t, FormatCycleReport(g, nil))
}

func TestParallelGroupsPartitionNodes(t *testing.T) {
	t.Parallel()

	g := New()
	for i := 0; i < 6; i++ {
		addNode(t, g, nodeID(i), nodeID(i), false)
	}
	addEdge(t, g, "step_0", "step_2", EdgeDirectoryCreation, "out")
	addEdge(t, g, "step_1", "step_2", EdgeFileCreation, "a")
	addEdge(t, g, "step_2", "step_4", EdgeFileCreation, "b")
	addEdge(t, g, "step_3", "step_5", EdgeExecutionOrder, "c")

	groups, err := g.GetParallelGroups()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"step_0", "step_1", "step_3"},
		{"step_2", "step_5"},
		{"step_4"},
	}, groups)

	position := map[string]int{}
	var flat []string
	for gi, group := range groups {
		for _, id := range group {
			_, dup := position[id]
			require.False(t, dup)
			position[id] = gi
			flat = append(flat, id)
		}
	}
	require.Len(t, flat, g.Len())

	for _, e := range g.Edges() {
		require.Less(t, position[e.From], position[e.To], "edge %s -> %s", e.From, e.To)
	}
}

func TestEmptyGraph(t *testing.T) {
	t.Parallel()

	g := New()
	order, err := g.GetExecutionOrder()
	require.NoError(t, err)
	require.Empty(t, order)

	groups, err := g.GetParallelGroups()
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestMetricsAndVisualize(t *testing.T) {
	t.Parallel()

	g := New()
	n0 := addNode(t, g, "step_0", "mkdir out", false)
	n0.Metadata = map[string]any{MetadataStepType: "mkdir"}
	n0.Resources.CreatesDirs.Add("out")
	n1 := addNode(t, g, "step_1", "touch out/f", false)
	n1.Resources.CreatesFiles.Add("out/f")
	addNode(t, g, "step_2", "echo", false)
	addEdge(t, g, "step_0", "step_1", EdgeDirectoryCreation, "out")

	m := g.Metrics()
	require.Equal(t, 3, m.NodeCount)
	require.Equal(t, 1, m.EdgeCount)
	require.Equal(t, 2, m.GroupCount)
	require.Equal(t, 2, m.MaxParallelism)
	require.Equal(t, 1, m.StepTypes["mkdir"])
	require.Equal(t, 2, m.StepTypes["fake"])
	require.Equal(t, 1, m.EdgeKinds[EdgeDirectoryCreation])
	require.Equal(t, 1, m.TotalFilesCreated)
	require.Equal(t, 1, m.TotalDirsCreated)
	require.InDelta(t, 1.0/3.0, m.Complexity, 1e-9)

	text := g.Visualize()
	require.Contains(t, text, "Nodes: 3")
	require.Contains(t, text, "step_0 -> step_1 (DIRECTORY_CREATION) [out]")
	require.Contains(t, text, "Group 1: step_0, step_2")
	require.Contains(t, text, "Group 2: step_1")
}

func nodeID(i int) string {
	return "step_" + string(rune('0'+i))
}
