package graph

import (
	"container/heap"

	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

// readyQueue is a min-heap of node ids ordered by idLess.
type readyQueue []string

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return idLess(q[i], q[j]) }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(string)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (g *Graph) indegrees() map[string]int {
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = g.pred[id].Cardinality()
	}
	return indegree
}

// GetExecutionOrder returns a topological order of every node using Kahn's
// algorithm. Among ready nodes the lowest id number goes first. A CycleError
// names the nodes that could not be ordered.
func (g *Graph) GetExecutionOrder() ([]string, error) {
	indegree := g.indegrees()

	queue := &readyQueue{}
	for id, degree := range indegree {
		if degree == 0 {
			*queue = append(*queue, id)
		}
	}
	heap.Init(queue)

	order := make([]string, 0, len(g.nodes))
	for queue.Len() > 0 {
		id := heap.Pop(queue).(string)
		order = append(order, id)
		for _, next := range g.Successors(id) {
			indegree[next]--
			if indegree[next] == 0 {
				heap.Push(queue, next)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, g.cycleError(order)
	}
	return order, nil
}

// GetParallelGroups partitions the nodes into levels. Each level holds every
// node whose predecessors all sit in earlier levels, sorted by id.
func (g *Graph) GetParallelGroups() ([][]string, error) {
	indegree := g.indegrees()

	var current []string
	for id, degree := range indegree {
		if degree == 0 {
			current = append(current, id)
		}
	}

	processed := 0
	var groups [][]string
	for len(current) > 0 {
		sortIDs(current)
		groups = append(groups, current)
		processed += len(current)

		var next []string
		for _, id := range current {
			for _, dependent := range g.Successors(id) {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		current = next
	}

	if processed != len(g.nodes) {
		var done []string
		for _, group := range groups {
			done = append(done, group...)
		}
		return nil, g.cycleError(done)
	}
	return groups, nil
}

func (g *Graph) cycleError(resolved []string) error {
	seen := make(map[string]struct{}, len(resolved))
	for _, id := range resolved {
		seen[id] = struct{}{}
	}
	var stuck []string
	for id := range g.nodes {
		if _, ok := seen[id]; !ok {
			stuck = append(stuck, id)
		}
	}
	sortIDs(stuck)
	return cpherrors.NewCycleError(stuck, FormatCycleReport(g, g.DetectCycles()))
}
