package graph

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/cph/internal/ports"
)

type fakeRequest struct {
	text  string
	allow bool
}

func (r fakeRequest) Kind() string       { return "fake" }
func (r fakeRequest) AllowFailure() bool { return r.allow }
func (r fakeRequest) ShowOutput() bool   { return false }
func (r fakeRequest) Describe() string   { return r.text }

func (r fakeRequest) Substitute(fn func(string) string) ports.Request {
	r.text = fn(r.text)
	return r
}

// recordingDriver fails any request whose text starts with "fail" and echoes
// the text as stdout otherwise.
type recordingDriver struct {
	mu   sync.Mutex
	seen []string
}

func (d *recordingDriver) Execute(_ context.Context, req ports.Request) ports.OperationResult {
	d.mu.Lock()
	d.seen = append(d.seen, req.Describe())
	d.mu.Unlock()

	if strings.HasPrefix(req.Describe(), "fail") {
		return ports.OperationResult{Success: false, ReturnCode: 1, Stderr: "boom"}
	}
	return ports.OperationResult{Success: true, Stdout: req.Describe()}
}

func (d *recordingDriver) executed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.seen...)
}

func addNode(t *testing.T, g *Graph, id, text string, allow bool) *RequestNode {
	t.Helper()
	node := &RequestNode{ID: id, Request: fakeRequest{text: text, allow: allow}}
	require.NoError(t, g.AddNode(node))
	return node
}

func addEdge(t *testing.T, g *Graph, from, to string, kind EdgeKind, path string) {
	t.Helper()
	require.NoError(t, g.AddEdge(DependencyEdge{From: from, To: to, Kind: kind, ResourcePath: path}))
}
