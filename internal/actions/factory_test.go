package actions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/cph/internal/ports"
	"github.com/alexisbeaulieu97/cph/internal/step"
)

func TestFactoryCreate(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	ctx := step.StepContext{EnvType: "local"}

	tests := []struct {
		name     string
		step     step.Step
		kind     string
		describe string
	}{
		{name: "mkdir", step: step.Step{Type: step.TypeMkdir, Cmd: []string{"./out"}}, kind: KindFile, describe: "mkdir ./out"},
		{name: "copy", step: step.Step{Type: step.TypeCopy, Cmd: []string{"a", "b"}}, kind: KindFile, describe: "copy a -> b"},
		{name: "chmod", step: step.Step{Type: step.TypeChmod, Cmd: []string{"755", "run.sh"}}, kind: KindFile, describe: "chmod 755 run.sh"},
		{name: "shell", step: step.Step{Type: step.TypeShell, Cmd: []string{"echo", "hi"}}, kind: KindShell, describe: "echo hi"},
		{name: "test", step: step.Step{Type: step.TypeTest, Cmd: []string{"python3", "main.py"}, Cwd: "./ws"}, kind: KindShell, describe: "python3 main.py (in ./ws)"},
		{name: "python script", step: step.Step{Type: step.TypePython, Cmd: []string{"gen.py"}}, kind: KindPython, describe: "python gen.py"},
		{name: "python code", step: step.Step{Type: step.TypePython, Cmd: []string{"import os", "print(1)"}}, kind: KindPython, describe: "python <2 line(s)>"},
		{name: "docker", step: step.Step{Type: step.TypeDockerRm, Cmd: []string{"-f", "box"}}, kind: KindDocker, describe: "docker rm -f box"},
		{name: "result", step: step.Step{Type: step.TypeResult, Cmd: []string{"ok:", "{{step_0.stdout}}"}}, kind: KindResult, describe: "result ok: {{step_0.stdout}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, ok := f.Create(tt.step, ctx)
			require.True(t, ok)
			require.Equal(t, tt.kind, req.Kind())
			require.Equal(t, tt.describe, req.Describe())
		})
	}
}

func TestFactoryRejectsIncompleteSteps(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	for _, s := range []step.Step{
		{Type: step.TypeShell},
		{Type: step.TypeCopy, Cmd: []string{"only-src"}},
		{Type: step.TypeMkdir, Cmd: []string{"  "}},
		{Type: step.TypeChmod, Cmd: []string{"755"}},
		{Type: step.StepType("unknown"), Cmd: []string{"x"}},
	} {
		_, ok := f.Create(s, step.StepContext{})
		require.False(t, ok, "step %s should be rejected", s.Label())
	}
}

func TestFactoryCarriesPolicyFlags(t *testing.T) {
	t.Parallel()

	req, ok := NewFactory().Create(step.Step{Type: step.TypeShell, Cmd: []string{"true"}, AllowFailure: true, ShowOutput: true}, step.StepContext{})
	require.True(t, ok)
	require.True(t, req.AllowFailure())
	require.True(t, req.ShowOutput())
}

func TestFactoryRoutesCommandsIntoContainer(t *testing.T) {
	t.Parallel()

	f := NewFactory(WithContainer("judge"))
	ctx := step.StepContext{EnvType: "docker"}

	req, ok := f.Create(step.Step{Type: step.TypeShell, Cmd: []string{"make"}, Cwd: "/ws"}, ctx)
	require.True(t, ok)
	docker, isDocker := req.(*DockerRequest)
	require.True(t, isDocker)
	require.Equal(t, []string{"exec", "-w", "/ws", "judge", "sh", "-c", "make"}, docker.Argv())

	req, ok = f.Create(step.Step{Type: step.TypePython, Cmd: []string{"main.py"}}, ctx)
	require.True(t, ok)
	require.Equal(t, "docker exec judge python3 main.py", req.Describe())

	req, ok = f.Create(step.Step{Type: step.TypeShell, Cmd: []string{"ls"}, ForceEnvType: "local"}, ctx)
	require.True(t, ok)
	require.IsType(t, &CommandRequest{}, req)
}

func TestRequestSubstituteReturnsCopy(t *testing.T) {
	t.Parallel()

	upper := func(s string) string { return strings.ToUpper(s) }
	requests := []ports.Request{
		NewCommandRequest([]string{"echo", "x"}, "dir", false, false),
		&PythonRequest{Code: []string{"x.py"}},
		&FileRequest{Op: step.TypeCopy, Path: "a", Dst: "b"},
		&DockerRequest{Subcommand: "exec", Args: []string{"box", "ls"}},
		&ResultRequest{Text: "done"},
	}

	for _, req := range requests {
		before := req.Describe()
		changed := req.Substitute(upper)
		require.Equal(t, before, req.Describe(), "original %s must not change", req.Kind())
		require.NotEqual(t, before, changed.Describe())
	}
}
