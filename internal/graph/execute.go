package graph

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/alexisbeaulieu97/cph/internal/ports"
	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

// DefaultMaxWorkers is used when ExecuteParallel receives a non-positive
// worker count.
const DefaultMaxWorkers = 4

// ClampWorkers bounds n to [1, 2*NumCPU]. Non-positive values select
// DefaultMaxWorkers first.
func ClampWorkers(n int) int {
	if n <= 0 {
		n = DefaultMaxWorkers
	}
	if limit := 2 * runtime.NumCPU(); n > limit {
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ExecuteSequential runs the nodes one at a time in execution order. Each
// result is recorded before the next node starts. A failure on a node that
// does not allow failure stops the run; the remaining nodes are marked
// skipped and a *ports.StepFailure is returned with the results so far.
func (g *Graph) ExecuteSequential(ctx context.Context, driver ports.Driver) ([]ports.OperationResult, error) {
	if driver == nil {
		return nil, cpherrors.NewExecutionError("", fmt.Errorf("driver cannot be nil"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	order, err := g.GetExecutionOrder()
	if err != nil {
		return nil, err
	}

	results := make([]ports.OperationResult, 0, len(order))
	for i, id := range order {
		if err := ctx.Err(); err != nil {
			g.skip(ctx, order[i:])
			return results, cpherrors.NewExecutionError(id, err)
		}

		node := g.nodes[id]
		res, req := g.runNode(ctx, driver, node)
		results = append(results, res)

		if !res.Success && !req.AllowFailure() {
			g.logger.WithFields(map[string]any{"node_id": id, "returncode": res.ReturnCode}).Error(nil, "node failed, aborting run")
			g.skip(ctx, order[i+1:])
			return results, &ports.StepFailure{NodeID: id, Request: req, Result: res}
		}
	}
	return results, nil
}

// ExecuteParallel runs the graph group by group. Members of a group share a
// pool of at most maxWorkers goroutines (see ClampWorkers) and the whole group,
// including result recording, finishes before the next group starts.
//
// When a member without allow_failure fails, its dispatched siblings still run
// to completion but no further group is started. Results are returned in
// group order and, inside a group, in id order.
func (g *Graph) ExecuteParallel(ctx context.Context, driver ports.Driver, maxWorkers int) ([]ports.OperationResult, error) {
	if driver == nil {
		return nil, cpherrors.NewExecutionError("", fmt.Errorf("driver cannot be nil"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	groups, err := g.GetParallelGroups()
	if err != nil {
		return nil, err
	}
	workers := ClampWorkers(maxWorkers)

	results := make([]ports.OperationResult, 0, len(g.nodes))
	for gi, group := range groups {
		if err := ctx.Err(); err != nil {
			g.skipGroups(ctx, groups[gi:])
			return results, cpherrors.NewExecutionError(group[0], err)
		}

		g.logger.WithFields(map[string]any{"group": gi, "size": len(group), "workers": workers}).Debug("dispatching group")

		slots := make([]ports.OperationResult, len(group))
		var eg errgroup.Group
		eg.SetLimit(workers)
		for i, id := range group {
			node := g.nodes[id]
			eg.Go(func() error {
				res, req := g.runNode(ctx, driver, node)
				slots[i] = res
				if !res.Success && !req.AllowFailure() {
					return &ports.StepFailure{NodeID: node.ID, Request: req, Result: res}
				}
				return nil
			})
		}

		groupErr := eg.Wait()
		results = append(results, slots...)

		if groupErr != nil {
			g.logger.WithFields(map[string]any{"group": gi}).Error(groupErr, "group failed, aborting run")
			g.skipGroups(ctx, groups[gi+1:])
			return results, groupErr
		}
	}
	return results, nil
}

// runNode substitutes the node's request against the results recorded so
// far, executes it and records the outcome. It returns the result together
// with the request that actually ran.
func (g *Graph) runNode(ctx context.Context, driver ports.Driver, node *RequestNode) (ports.OperationResult, ports.Request) {
	req := node.Request.Substitute(g.substituteFunc())
	log := g.logger.WithFields(map[string]any{"node_id": node.ID, "kind": req.Kind()})

	node.Status = StatusRunning
	g.notify(ctx, ports.NodeEvent{Type: ports.EventNodeStarted, NodeID: node.ID, Request: req})
	log.Debug("node started")

	res := executeSafely(ctx, driver, req)

	node.Result = &res
	if res.Success {
		node.Status = StatusSuccess
	} else {
		node.Status = StatusFailed
	}
	g.results.Store(node.ID, res)

	event := ports.NodeEvent{Type: ports.EventNodeSucceeded, NodeID: node.ID, Request: req, Result: &res}
	if res.Success {
		log.Debug("node succeeded")
	} else {
		event.Type = ports.EventNodeFailed
		if req.AllowFailure() {
			log.Warn("node failed, failure allowed")
		} else {
			log.Info("node failed")
		}
	}
	g.notify(ctx, event)
	return res, req
}

func executeSafely(ctx context.Context, driver ports.Driver, req ports.Request) (res ports.OperationResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ports.FailedResult(fmt.Sprintf("driver panic: %v", r))
		}
	}()
	return driver.Execute(ctx, req)
}

func (g *Graph) skip(ctx context.Context, ids []string) {
	for _, id := range ids {
		node := g.nodes[id]
		if node.Status != StatusPending {
			continue
		}
		node.Status = StatusSkipped
		g.notify(ctx, ports.NodeEvent{Type: ports.EventNodeSkipped, NodeID: id, Request: node.Request})
	}
}

func (g *Graph) skipGroups(ctx context.Context, groups [][]string) {
	for _, group := range groups {
		g.skip(ctx, group)
	}
}

func (g *Graph) notify(ctx context.Context, event ports.NodeEvent) {
	if g.observer != nil {
		g.observer.Observe(ctx, event)
	}
}
