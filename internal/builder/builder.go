package builder

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/alexisbeaulieu97/cph/internal/graph"
	"github.com/alexisbeaulieu97/cph/internal/logger"
	"github.com/alexisbeaulieu97/cph/internal/ports"
	"github.com/alexisbeaulieu97/cph/internal/step"
	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

// Builder turns a resolved step list into a request execution graph.
type Builder struct {
	factory   ports.RequestFactory
	logger    *logger.Logger
	graphOpts []graph.Option
}

// Option customises a Builder.
type Option func(*Builder)

// WithLogger injects a logger. It is also handed to built graphs.
func WithLogger(l *logger.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithGraphOptions forwards options to every graph the builder creates.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(b *Builder) {
		b.graphOpts = append(b.graphOpts, opts...)
	}
}

// New constructs a Builder around factory.
func New(factory ports.RequestFactory, opts ...Option) *Builder {
	b := &Builder{factory: factory}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is the outcome of Build. FactoryErrors lists the steps that were
// left out because the factory could not materialise them.
type Result struct {
	Graph         *graph.Graph
	FactoryErrors []error
}

// Build creates one node per step, id "step_<index>", and infers edges from
// resource overlap between every earlier/later pair of nodes.
func (b *Builder) Build(steps []step.Step, ctx step.StepContext) (*Result, error) {
	if b.factory == nil {
		return nil, cpherrors.NewValidationError("factory", "request factory cannot be nil", nil)
	}

	opts := append([]graph.Option{graph.WithLogger(b.logger)}, b.graphOpts...)
	g := graph.New(opts...)
	result := &Result{Graph: g}
	workspace := ctx.Workspace()

	nodes := make([]*graph.RequestNode, 0, len(steps))
	for i, s := range steps {
		req, ok := b.factory.Create(s, ctx)
		if !ok || req == nil {
			err := cpherrors.NewFactoryError(i, string(s.Type))
			b.logger.WithFields(map[string]any{"step_index": i, "step_type": string(s.Type)}).Warn("request factory rejected step")
			result.FactoryErrors = append(result.FactoryErrors, err)
			continue
		}

		node := &graph.RequestNode{
			ID:        fmt.Sprintf("step_%d", i),
			Request:   req,
			Resources: ExtractResources(s, workspace),
			Metadata: map[string]any{
				graph.MetadataStepType: string(s.Type),
				"original_index":       i,
				"label":                s.Label(),
				"auto_generated":       s.AutoGenerated,
			},
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	for x := 0; x < len(nodes); x++ {
		for y := x + 1; y < len(nodes); y++ {
			for _, edge := range inferEdges(nodes[x], nodes[y]) {
				if err := g.AddEdge(edge); err != nil {
					return nil, err
				}
			}
		}
	}

	b.logger.WithFields(map[string]any{
		"nodes":    g.Len(),
		"edges":    len(g.Edges()),
		"rejected": len(result.FactoryErrors),
	}).Debug("graph built")
	return result, nil
}

// inferEdges lists the edges from earlier to later implied by their resources:
// files written then read, directories created then required or read, and the
// same path written twice or written after being read.
func inferEdges(earlier, later *graph.RequestNode) []graph.DependencyEdge {
	e, l := earlier.Resources, later.Resources
	var edges []graph.DependencyEdge
	add := func(paths mapset.Set[string], kind graph.EdgeKind, describe func(string) string) {
		for _, p := range sortedPaths(paths) {
			edges = append(edges, graph.DependencyEdge{
				From:         earlier.ID,
				To:           later.ID,
				Kind:         kind,
				ResourcePath: p,
				Description:  describe(p),
			})
		}
	}

	add(e.CreatesFiles.Intersect(l.ReadsFiles), graph.EdgeFileCreation, func(p string) string {
		return fmt.Sprintf("file %s must be created before being read", p)
	})
	add(e.CreatesDirs.Intersect(l.RequiresDirs), graph.EdgeDirectoryCreation, func(p string) string {
		return fmt.Sprintf("directory %s must be created before being used", p)
	})
	add(e.CreatesDirs.Intersect(l.ReadsFiles), graph.EdgeDirectoryCreation, func(p string) string {
		return fmt.Sprintf("directory %s must be created before being read", p)
	})
	add(e.CreatesFiles.Intersect(l.CreatesFiles), graph.EdgeExecutionOrder, func(p string) string {
		return fmt.Sprintf("file %s is written by both steps", p)
	})
	add(e.CreatesDirs.Intersect(l.CreatesDirs), graph.EdgeExecutionOrder, func(p string) string {
		return fmt.Sprintf("directory %s is created by both steps", p)
	})
	add(e.ReadsFiles.Intersect(l.CreatesFiles), graph.EdgeExecutionOrder, func(p string) string {
		return fmt.Sprintf("file %s must be read before being overwritten", p)
	})
	return edges
}

func sortedPaths(s mapset.Set[string]) []string {
	paths := s.ToSlice()
	sort.Strings(paths)
	return paths
}
