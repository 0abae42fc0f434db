package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/alexisbeaulieu97/cph/internal/logger"
	"github.com/alexisbeaulieu97/cph/internal/ports"
	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

// ResourceInfo is the filesystem footprint of one node.
type ResourceInfo struct {
	CreatesFiles mapset.Set[string]
	CreatesDirs  mapset.Set[string]
	ReadsFiles   mapset.Set[string]
	RequiresDirs mapset.Set[string]
}

// NewResourceInfo returns a footprint with four empty sets.
func NewResourceInfo() ResourceInfo {
	return ResourceInfo{
		CreatesFiles: mapset.NewThreadUnsafeSet[string](),
		CreatesDirs:  mapset.NewThreadUnsafeSet[string](),
		ReadsFiles:   mapset.NewThreadUnsafeSet[string](),
		RequiresDirs: mapset.NewThreadUnsafeSet[string](),
	}
}

func (r ResourceInfo) normalized() ResourceInfo {
	empty := func(s mapset.Set[string]) mapset.Set[string] {
		if s == nil {
			return mapset.NewThreadUnsafeSet[string]()
		}
		return s
	}
	return ResourceInfo{
		CreatesFiles: empty(r.CreatesFiles),
		CreatesDirs:  empty(r.CreatesDirs),
		ReadsFiles:   empty(r.ReadsFiles),
		RequiresDirs: empty(r.RequiresDirs),
	}
}

// Status is the lifecycle state of a node.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// RequestNode wraps one request and its resource footprint. Status and Result
// are written only by the goroutine executing the node.
type RequestNode struct {
	ID        string
	Request   ports.Request
	Resources ResourceInfo
	Metadata  map[string]any

	Status Status
	Result *ports.OperationResult
}

// EdgeKind explains why an edge exists.
type EdgeKind string

const (
	EdgeFileCreation      EdgeKind = "FILE_CREATION"
	EdgeDirectoryCreation EdgeKind = "DIRECTORY_CREATION"
	EdgeExecutionOrder    EdgeKind = "EXECUTION_ORDER"
)

// DependencyEdge forces From to finish before To starts.
type DependencyEdge struct {
	From         string
	To           string
	Kind         EdgeKind
	ResourcePath string
	Description  string
}

type edgeKey struct {
	from, to, path string
}

// Graph is the request execution graph of a single run. It is built once,
// executed once and then discarded.
type Graph struct {
	nodes    map[string]*RequestNode
	edges    []DependencyEdge
	edgeKeys map[edgeKey]struct{}
	succ     map[string]mapset.Set[string]
	pred     map[string]mapset.Set[string]

	results  *xsync.MapOf[string, ports.OperationResult]
	logger   *logger.Logger
	observer ports.Observer
}

// Option customises a Graph.
type Option func(*Graph)

// WithLogger injects a logger.
func WithLogger(l *logger.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// WithObserver registers an observer notified of node lifecycle events.
func WithObserver(o ports.Observer) Option {
	return func(g *Graph) {
		g.observer = o
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:    make(map[string]*RequestNode),
		edgeKeys: make(map[edgeKey]struct{}),
		succ:     make(map[string]mapset.Set[string]),
		pred:     make(map[string]mapset.Set[string]),
		results:  xsync.NewMapOf[string, ports.OperationResult](),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode inserts node. Ids must be unique and non-empty.
func (g *Graph) AddNode(node *RequestNode) error {
	if node == nil {
		return cpherrors.NewValidationError("nodes", "node cannot be nil", nil)
	}
	if node.ID == "" {
		return cpherrors.NewValidationError("nodes", "node id cannot be empty", nil)
	}
	if node.Request == nil {
		return cpherrors.NewValidationError("nodes", fmt.Sprintf("node %q has no request", node.ID), nil)
	}
	if _, exists := g.nodes[node.ID]; exists {
		return cpherrors.NewValidationError("nodes", fmt.Sprintf("duplicate node id %q", node.ID), nil)
	}

	node.Resources = node.Resources.normalized()
	if node.Status == "" {
		node.Status = StatusPending
	}
	g.nodes[node.ID] = node
	g.succ[node.ID] = mapset.NewThreadUnsafeSet[string]()
	g.pred[node.ID] = mapset.NewThreadUnsafeSet[string]()
	return nil
}

// AddEdge records a dependency. Both ends must exist and differ. An edge with
// the same (from, to, resource path) as an existing one is ignored.
func (g *Graph) AddEdge(edge DependencyEdge) error {
	if _, ok := g.nodes[edge.From]; !ok {
		return cpherrors.NewValidationError("edges", fmt.Sprintf("unknown source node %q", edge.From), nil)
	}
	if _, ok := g.nodes[edge.To]; !ok {
		return cpherrors.NewValidationError("edges", fmt.Sprintf("unknown target node %q", edge.To), nil)
	}
	if edge.From == edge.To {
		return cpherrors.NewValidationError("edges", fmt.Sprintf("self-edge on node %q", edge.From), nil)
	}

	key := edgeKey{from: edge.From, to: edge.To, path: edge.ResourcePath}
	if _, dup := g.edgeKeys[key]; dup {
		return nil
	}
	g.edgeKeys[key] = struct{}{}
	g.edges = append(g.edges, edge)
	g.succ[edge.From].Add(edge.To)
	g.pred[edge.To].Add(edge.From)
	return nil
}

// Node returns the node with id.
func (g *Graph) Node(id string) (*RequestNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns every node id in ascending id order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Edges returns a copy of the edges in insertion order.
func (g *Graph) Edges() []DependencyEdge {
	return append([]DependencyEdge(nil), g.edges...)
}

// Successors returns the ids that depend directly on id, sorted.
func (g *Graph) Successors(id string) []string {
	return sortedSet(g.succ[id])
}

// Predecessors returns the ids id depends on directly, sorted.
func (g *Graph) Predecessors(id string) []string {
	return sortedSet(g.pred[id])
}

// Results returns a snapshot of the execution results recorded so far.
func (g *Graph) Results() map[string]ports.OperationResult {
	out := make(map[string]ports.OperationResult, g.results.Size())
	g.results.Range(func(id string, res ports.OperationResult) bool {
		out[id] = res
		return true
	})
	return out
}

// Result returns the recorded result for id.
func (g *Graph) Result(id string) (ports.OperationResult, bool) {
	return g.results.Load(id)
}

func sortedSet(s mapset.Set[string]) []string {
	if s == nil {
		return nil
	}
	out := s.ToSlice()
	sortIDs(out)
	return out
}

// idLess orders node ids by their trailing number ("step_2" < "step_10"),
// falling back to plain string order.
func idLess(a, b string) bool {
	na, okA := idNumber(a)
	nb, okB := idNumber(b)
	switch {
	case okA && okB && na != nb:
		return na < nb
	case okA != okB:
		return okA
	}
	return a < b
}

func idNumber(id string) (int, bool) {
	idx := strings.LastIndexByte(id, '_')
	if idx < 0 || idx == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return idLess(ids[i], ids[j]) })
}
