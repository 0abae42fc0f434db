package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/cph/internal/builder"
	"github.com/alexisbeaulieu97/cph/internal/controller"
	"github.com/alexisbeaulieu97/cph/internal/graph"
	"github.com/alexisbeaulieu97/cph/internal/logger"
	"github.com/alexisbeaulieu97/cph/internal/ports"
	"github.com/alexisbeaulieu97/cph/internal/resolver"
	"github.com/alexisbeaulieu97/cph/internal/step"
)

// Mode selects how a prepared workflow is executed.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
	// ModeLinear skips the graph and runs requests in list order.
	ModeLinear Mode = "linear"
	// ModeBatch skips the graph and runs every request as one concurrent batch.
	ModeBatch Mode = "batch"
)

// Sink displays request output. *output.Printer satisfies it.
type Sink interface {
	controller.OutputSink
	ports.Observer
}

// Service coordinates parsing, resolution, graph construction and execution.
type Service struct {
	factory ports.RequestFactory
	driver  ports.Driver
	sink    Sink
	logger  *logger.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithLogger injects a logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithSink routes request output through sink.
func WithSink(sink Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// NewService constructs a workflow service.
func NewService(factory ports.RequestFactory, driver ports.Driver, opts ...Option) *Service {
	s := &Service{factory: factory, driver: driver}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepared holds every artefact derived from a step document before anything
// runs.
type Prepared struct {
	Path      string
	Context   step.StepContext
	Steps     []step.Step
	Resolved  []step.Step
	Optimized []step.Step
	Graph     *graph.Graph
	// FactoryErrors lists steps left out of the graph.
	FactoryErrors []error
}

// PrepareFile reads path and prepares the steps it contains.
func (s *Service) PrepareFile(path string, ctx step.StepContext) (*Prepared, error) {
	steps, err := step.ParseFile(path, ctx)
	return s.prepare(path, steps, err, ctx)
}

// Prepare parses data and prepares the steps it contains.
func (s *Service) Prepare(data []byte, ctx step.StepContext) (*Prepared, error) {
	steps, err := step.Parse(data, ctx)
	return s.prepare("", steps, err, ctx)
}

// prepare runs resolution and graph construction. Parse or validation errors
// yield an empty graph together with the collected errors.
func (s *Service) prepare(path string, steps []step.Step, parseErr error, ctx step.StepContext) (*Prepared, error) {
	p := &Prepared{Path: path, Context: ctx, Steps: steps}
	log := s.logger.With("path", path)

	if parseErr != nil {
		log.Error(parseErr, "step document rejected")
		p.Graph = graph.New(graph.WithLogger(s.logger))
		return p, parseErr
	}

	p.Resolved = resolver.New(resolver.WithLogger(s.logger)).Resolve(steps)
	p.Optimized = resolver.Optimize(p.Resolved)

	graphOpts := []graph.Option{graph.WithLogger(s.logger)}
	if s.sink != nil {
		graphOpts = append(graphOpts, graph.WithObserver(s.sink))
	}
	b := builder.New(s.factory, builder.WithLogger(s.logger), builder.WithGraphOptions(graphOpts...))
	built, err := b.Build(p.Optimized, ctx)
	if err != nil {
		p.Graph = graph.New(graph.WithLogger(s.logger))
		return p, fmt.Errorf("build graph: %w", err)
	}
	p.Graph = built.Graph
	p.FactoryErrors = built.FactoryErrors

	log.WithFields(map[string]any{
		"steps":     len(steps),
		"resolved":  len(p.Resolved),
		"optimized": len(p.Optimized),
		"nodes":     p.Graph.Len(),
	}).Debug("workflow prepared")
	return p, nil
}

// RunRequest configures one execution.
type RunRequest struct {
	Prepared   *Prepared
	Mode       Mode
	MaxWorkers int
}

// NodeReport describes one executed, failed or skipped node.
type NodeReport struct {
	ID     string                 `json:"id"`
	Label  string                 `json:"label"`
	Kind   string                 `json:"kind"`
	Status graph.Status           `json:"status"`
	Result *ports.OperationResult `json:"result,omitempty"`
	// AllowedFailure marks a failed node whose step set allow_failure.
	AllowedFailure bool `json:"allowed_failure,omitempty"`
}

// RunReport summarises an execution.
type RunReport struct {
	RunID     string        `json:"run_id"`
	Mode      Mode          `json:"mode"`
	Nodes     []NodeReport  `json:"nodes"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Allowed   int           `json:"allowed_failures"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Success reports whether the run finished without skipped nodes or failures
// that allow_failure did not cover.
func (r *RunReport) Success() bool {
	return r != nil && r.Failed == 0 && r.Skipped == 0
}

// Run executes a prepared workflow. The report is returned even when the
// run stops on an error.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	if req.Prepared == nil || req.Prepared.Graph == nil {
		return nil, errors.New("workflow is not prepared")
	}
	if s.driver == nil {
		return nil, errors.New("driver cannot be nil")
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeSequential
	}

	runID := ports.RunID(ctx)
	if runID == "" {
		runID = ports.NewRunID()
		ctx = ports.WithRunID(ctx, runID)
	}
	log := s.logger.WithFields(map[string]any{"run_id": runID, "mode": string(mode)})
	log.Info("run started")

	start := time.Now()
	var (
		report *RunReport
		err    error
	)
	switch mode {
	case ModeSequential, ModeParallel:
		report, err = s.runGraph(ctx, log, req, mode)
	case ModeLinear, ModeBatch:
		report, err = s.runLinear(ctx, log, req, mode)
	default:
		return nil, fmt.Errorf("unknown run mode %q", mode)
	}
	report.RunID = runID
	report.Mode = mode
	report.Duration = time.Since(start)

	fields := map[string]any{"succeeded": report.Succeeded, "failed": report.Failed, "skipped": report.Skipped}
	if err != nil {
		log.WithFields(fields).Error(err, "run failed")
		return report, err
	}
	log.WithFields(fields).Info("run finished")
	return report, nil
}

func (s *Service) runGraph(ctx context.Context, log *logger.Logger, req RunRequest, mode Mode) (*RunReport, error) {
	g := req.Prepared.Graph

	var err error
	if mode == ModeParallel {
		_, err = g.ExecuteParallel(ctx, s.driver, req.MaxWorkers)
	} else {
		_, err = g.ExecuteSequential(ctx, s.driver)
	}

	report := &RunReport{}
	for _, id := range g.NodeIDs() {
		node, _ := g.Node(id)
		report.add(NodeReport{
			ID:             id,
			Label:          metadataString(node, "label"),
			Kind:           node.Request.Kind(),
			Status:         node.Status,
			Result:         node.Result,
			AllowedFailure: node.Status == graph.StatusFailed && node.Request.AllowFailure(),
		})
	}
	log.Debug("graph execution complete")
	return report, err
}

func (s *Service) runLinear(ctx context.Context, log *logger.Logger, req RunRequest, mode Mode) (*RunReport, error) {
	g := req.Prepared.Graph
	ids := g.NodeIDs()
	requests := make([]ports.Request, 0, len(ids))
	for _, id := range ids {
		node, _ := g.Node(id)
		requests = append(requests, node.Request)
	}

	opts := []controller.Option{controller.WithLogger(log), controller.WithIDs(ids)}
	if s.sink != nil {
		opts = append(opts, controller.WithOutput(s.sink))
	}

	var (
		results []ports.OperationResult
		err     error
	)
	if mode == ModeBatch {
		results, err = controller.New(s.driver, opts...).RunParallel(ctx, requests, req.MaxWorkers)
	} else {
		opts = append(opts, controller.WithResultSubstitution())
		results, err = controller.New(s.driver, opts...).RunSequential(ctx, requests)
	}

	report := &RunReport{}
	for i, id := range ids {
		node, _ := g.Node(id)
		nr := NodeReport{ID: id, Label: metadataString(node, "label"), Kind: node.Request.Kind(), Status: graph.StatusSkipped}
		if i < len(results) {
			res := results[i]
			nr.Result = &res
			nr.Status = graph.StatusFailed
			if res.Success {
				nr.Status = graph.StatusSuccess
			}
			nr.AllowedFailure = !res.Success && node.Request.AllowFailure()
		}
		report.add(nr)
	}
	return report, err
}

func (r *RunReport) add(n NodeReport) {
	r.Nodes = append(r.Nodes, n)
	switch n.Status {
	case graph.StatusSuccess:
		r.Succeeded++
	case graph.StatusFailed:
		if n.AllowedFailure {
			r.Allowed++
			return
		}
		r.Failed++
	case graph.StatusSkipped, graph.StatusPending:
		r.Skipped++
	}
}

func metadataString(node *graph.RequestNode, key string) string {
	if v, ok := node.Metadata[key].(string); ok {
		return v
	}
	return ""
}
