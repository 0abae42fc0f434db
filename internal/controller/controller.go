package controller

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alexisbeaulieu97/cph/internal/graph"
	"github.com/alexisbeaulieu97/cph/internal/logger"
	"github.com/alexisbeaulieu97/cph/internal/ports"
	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

// OutputSink receives every finished request for optional display.
type OutputSink interface {
	Print(req ports.Request, res ports.OperationResult) bool
}

// Controller runs an ordered list of requests without building a graph.
type Controller struct {
	driver     ports.Driver
	sink       OutputSink
	logger     *logger.Logger
	substitute bool
	ids        []string
}

// Option customises a Controller.
type Option func(*Controller)

// WithOutput routes results through sink.
func WithOutput(sink OutputSink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

// WithResultSubstitution makes RunSequential expand {{step_N.field}}
// placeholders against the results of earlier requests. N is the request
// position unless WithIDs supplies the ids.
func WithResultSubstitution() Option {
	return func(c *Controller) {
		c.substitute = true
	}
}

// WithIDs names request i ids[i] in placeholders, failures and logs. Requests
// beyond the end of ids fall back to step_<position>.
func WithIDs(ids []string) Option {
	return func(c *Controller) {
		c.ids = ids
	}
}

// WithLogger injects a logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New constructs a Controller around driver.
func New(driver ports.Driver, opts ...Option) *Controller {
	c := &Controller{driver: driver}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunSequential executes requests in order. A failed request that does not
// allow failure stops the run with a *ports.StepFailure; the results gathered
// so far, including the failing one, are returned with it.
func (c *Controller) RunSequential(ctx context.Context, requests []ports.Request) ([]ports.OperationResult, error) {
	if c.driver == nil {
		return nil, cpherrors.NewExecutionError("", fmt.Errorf("driver cannot be nil"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]ports.OperationResult, 0, len(requests))
	byID := make(map[string]ports.OperationResult, len(requests))
	lookup := graph.MapLookup(byID)
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return results, cpherrors.NewExecutionError(c.requestID(i), err)
		}
		if c.substitute {
			req = req.Substitute(func(s string) string { return graph.SubstituteResults(s, lookup) })
		}

		res := c.execute(ctx, req)
		results = append(results, res)
		byID[c.requestID(i)] = res
		if err := c.check(i, req, res); err != nil {
			return results, err
		}
	}
	return results, nil
}

// RunParallel executes requests as one batch on at most maxWorkers goroutines.
// Result i always belongs to request i. Every failure is reported once the
// whole batch has finished.
func (c *Controller) RunParallel(ctx context.Context, requests []ports.Request, maxWorkers int) ([]ports.OperationResult, error) {
	if c.driver == nil {
		return nil, cpherrors.NewExecutionError("", fmt.Errorf("driver cannot be nil"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]ports.OperationResult, len(requests))
	failures := make([]error, len(requests))

	var eg errgroup.Group
	eg.SetLimit(graph.ClampWorkers(maxWorkers))
	for i, req := range requests {
		eg.Go(func() error {
			res := c.execute(ctx, req)
			results[i] = res
			failures[i] = c.check(i, req, res)
			return nil
		})
	}
	_ = eg.Wait()

	return results, errors.Join(failures...)
}

func (c *Controller) execute(ctx context.Context, req ports.Request) (res ports.OperationResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ports.FailedResult(fmt.Sprintf("driver panic: %v", r))
		}
	}()
	res = c.driver.Execute(ctx, req)
	if c.sink != nil {
		c.sink.Print(req, res)
	}
	return res
}

func (c *Controller) check(index int, req ports.Request, res ports.OperationResult) error {
	if res.Success {
		return nil
	}
	log := c.logger.WithFields(map[string]any{"request": c.requestID(index), "returncode": res.ReturnCode})
	if req.AllowFailure() {
		log.Warn("request failed, failure allowed")
		return nil
	}
	log.Error(nil, "request failed")
	return &ports.StepFailure{NodeID: c.requestID(index), Request: req, Result: res}
}

func (c *Controller) requestID(index int) string {
	if index < len(c.ids) {
		return c.ids[index]
	}
	return fmt.Sprintf("step_%d", index)
}
