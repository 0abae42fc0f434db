package workflow

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/cph/internal/actions"
	"github.com/alexisbeaulieu97/cph/internal/graph"
	"github.com/alexisbeaulieu97/cph/internal/output"
	"github.com/alexisbeaulieu97/cph/internal/ports"
	"github.com/alexisbeaulieu97/cph/internal/step"
)

const copyWorkflow = `[
  {"type": "touch", "cmd": ["{workspace_path}/out/a.txt"]},
  {"type": "copy", "cmd": ["{workspace_path}/out/a.txt", "{workspace_path}/copy/b.txt"]},
  {"type": "result", "cmd": ["copied rc={{step_3.returncode}}"], "show_output": true}
]`

func newService(t *testing.T) (*Service, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	printer := output.NewPrinter(output.WithWriters(&buf, &buf), output.WithoutColor())
	return NewService(actions.NewFactory(), actions.NewLocalDriver(), WithSink(printer)), &buf
}

func prepareIn(t *testing.T, svc *Service, doc string) (*Prepared, string) {
	t.Helper()
	dir := t.TempDir()
	prepared, err := svc.Prepare([]byte(doc), step.StepContext{WorkspacePath: dir})
	require.NoError(t, err)
	return prepared, dir
}

func TestPrepareResolvesAndBuilds(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	prepared, dir := prepareIn(t, svc, copyWorkflow)

	require.Len(t, prepared.Steps, 3)
	require.Len(t, prepared.Resolved, 5)
	require.Equal(t, step.NewMkdir(filepath.Join(dir, "out")), prepared.Resolved[0])
	require.Equal(t, step.NewMkdir(filepath.Join(dir, "copy")), prepared.Resolved[2])
	require.Equal(t, 5, prepared.Graph.Len())
	require.Empty(t, prepared.FactoryErrors)

	order, err := prepared.Graph.GetExecutionOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"step_0", "step_1", "step_2", "step_3", "step_4"}, order)
}

func TestRunExecutesGraphModes(t *testing.T) {
	t.Parallel()

	// The result node shares the first parallel group with the mkdir nodes, so
	// in parallel mode the copy result does not exist yet when it runs.
	expected := map[Mode]string{
		ModeSequential: "copied rc=0\n",
		ModeLinear:     "copied rc=0\n",
		ModeParallel:   "copied rc={{step_3.returncode}}\n",
	}

	for mode, want := range expected {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			svc, buf := newService(t)
			prepared, dir := prepareIn(t, svc, copyWorkflow)

			report, err := svc.Run(context.Background(), RunRequest{Prepared: prepared, Mode: mode, MaxWorkers: 2})
			require.NoError(t, err)
			require.True(t, report.Success())
			require.Equal(t, 5, report.Succeeded)
			require.Equal(t, mode, report.Mode)
			require.NotEmpty(t, report.RunID)
			require.FileExists(t, filepath.Join(dir, "copy", "b.txt"))
			require.Equal(t, want, buf.String())
		})
	}
}

func TestRunBatchModeKeepsReportOrder(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	prepared, dir := prepareIn(t, svc, `[
	  {"type": "mkdir", "cmd": ["{workspace_path}/a"]},
	  {"type": "mkdir", "cmd": ["{workspace_path}/b"], "allow_failure": true},
	  {"type": "result", "cmd": ["done"]}
	]`)

	report, err := svc.Run(context.Background(), RunRequest{Prepared: prepared, Mode: ModeBatch, MaxWorkers: 4})
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(dir, "a"))
	require.DirExists(t, filepath.Join(dir, "b"))
	require.Len(t, report.Nodes, 3)
	require.Equal(t, "step_0", report.Nodes[0].ID)
	require.Equal(t, "done", report.Nodes[2].Result.Stdout)
}

func TestRunStopsOnDisallowedFailure(t *testing.T) {
	t.Parallel()

	svc, buf := newService(t)
	prepared, _ := prepareIn(t, svc, `[
	  {"type": "remove", "cmd": ["{workspace_path}/missing.txt"]},
	  {"type": "result", "cmd": ["unreachable"], "show_output": true}
	]`)

	report, err := svc.Run(context.Background(), RunRequest{Prepared: prepared})
	var failure *ports.StepFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "step_0", failure.NodeID)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, graph.StatusSkipped, report.Nodes[1].Status)
	require.False(t, report.Success())
	require.Empty(t, buf.String())
}

func TestPrepareReturnsEmptyGraphOnParseErrors(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	prepared, err := svc.Prepare([]byte(`[{"type": "bogus", "cmd": ["x"]}]`), step.StepContext{})
	require.Error(t, err)
	require.NotNil(t, prepared)
	require.Equal(t, 0, prepared.Graph.Len())

	report, err := svc.Run(context.Background(), RunRequest{Prepared: prepared})
	require.NoError(t, err)
	require.Empty(t, report.Nodes)
}

func TestPrepareFileCarriesPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "steps.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"steps": [{"type": "result", "cmd": ["hi"]}]}`), 0o644))

	svc, _ := newService(t)
	prepared, err := svc.PrepareFile(path, step.StepContext{})
	require.NoError(t, err)
	require.Equal(t, path, prepared.Path)
	require.Equal(t, 1, prepared.Graph.Len())
}

func TestRunKeepsContextRunID(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	prepared, _ := prepareIn(t, svc, `[{"type": "result", "cmd": ["x"]}]`)

	ctx := ports.WithRunID(context.Background(), "run-42")
	report, err := svc.Run(ctx, RunRequest{Prepared: prepared})
	require.NoError(t, err)
	require.Equal(t, "run-42", report.RunID)
}

func TestRunRejectsUnpreparedWorkflow(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	_, err := svc.Run(context.Background(), RunRequest{})
	require.Error(t, err)

	prepared, _ := prepareIn(t, svc, `[{"type": "result", "cmd": ["x"]}]`)
	_, err = svc.Run(context.Background(), RunRequest{Prepared: prepared, Mode: "sideways"})
	require.Error(t, err)
}

func TestRunToleratesAllowedFailure(t *testing.T) {
	t.Parallel()

	for _, mode := range []Mode{ModeSequential, ModeParallel, ModeLinear, ModeBatch} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			svc, _ := newService(t)
			prepared, dir := prepareIn(t, svc, `[
			  {"type": "remove", "cmd": ["{workspace_path}/missing.txt"], "allow_failure": true},
			  {"type": "touch", "cmd": ["{workspace_path}/ok.txt"]}
			]`)

			report, err := svc.Run(context.Background(), RunRequest{Prepared: prepared, Mode: mode})
			require.NoError(t, err)
			require.FileExists(t, filepath.Join(dir, "ok.txt"))
			require.Equal(t, 0, report.Failed)
			require.Equal(t, 1, report.Allowed)
			require.Equal(t, 0, report.Skipped)
			require.True(t, report.Nodes[0].AllowedFailure)
			require.Equal(t, graph.StatusFailed, report.Nodes[0].Status)
			require.True(t, report.Success())
		})
	}
}

// rejectingFactory drops the step named reject and defers everything else.
type rejectingFactory struct {
	ports.RequestFactory
	reject string
}

func (f rejectingFactory) Create(s step.Step, ctx step.StepContext) (ports.Request, bool) {
	if s.Name == f.reject {
		return nil, false
	}
	return f.RequestFactory.Create(s, ctx)
}

func TestRunLinearResolvesPlaceholdersByNodeID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printer := output.NewPrinter(output.WithWriters(&buf, &buf), output.WithoutColor())
	svc := NewService(rejectingFactory{RequestFactory: actions.NewFactory(), reject: "dropped"}, actions.NewLocalDriver(), WithSink(printer))

	prepared, err := svc.Prepare([]byte(`[
	  {"type": "result", "cmd": ["alpha"]},
	  {"type": "result", "cmd": ["gone"], "name": "dropped"},
	  {"type": "result", "cmd": ["beta"]},
	  {"type": "result", "cmd": ["saw {{step_2.stdout}}"], "show_output": true}
	]`), step.StepContext{})
	require.NoError(t, err)
	require.Len(t, prepared.FactoryErrors, 1)

	report, err := svc.Run(context.Background(), RunRequest{Prepared: prepared, Mode: ModeLinear})
	require.NoError(t, err)
	require.Equal(t, "saw beta\n", buf.String())

	ids := make([]string, 0, len(report.Nodes))
	for _, n := range report.Nodes {
		ids = append(ids, n.ID)
	}
	require.Equal(t, []string{"step_0", "step_2", "step_3"}, ids)
	require.Equal(t, "beta", report.Nodes[1].Result.Stdout)
}
