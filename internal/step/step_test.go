package step

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTypeIgnoresCase(t *testing.T) {
	t.Parallel()

	cases := map[string]StepType{
		"MKDIR":       TypeMkdir,
		" docker_run": TypeDockerRun,
		"MoveTree":    TypeMoveTree,
		"result":      TypeResult,
	}
	for raw, want := range cases {
		got, ok := ParseType(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got)
	}

	_, ok := ParseType("fly")
	require.False(t, ok)
}

func TestStepTypeCategories(t *testing.T) {
	t.Parallel()

	require.True(t, TypeCopyTree.IsPathPair())
	require.True(t, TypeRmTree.IsSinglePath())
	require.True(t, TypeOJ.IsCommand())
	require.True(t, TypeDockerCp.IsDocker())
	require.False(t, TypeShell.IsDocker())
	require.False(t, TypeResult.IsCommand())
}

func TestFormatDictOmitsEmptyValuesAndAddsAlias(t *testing.T) {
	t.Parallel()

	ctx := StepContext{
		ContestName: "abc300",
		Language:    "cpp",
		Extra:       map[string]string{"contest_name": "shadowed", "judge": "atcoder", "empty": ""},
	}
	dict := ctx.FormatDict()

	require.Equal(t, "abc300", dict["contest_name"])
	require.Equal(t, "cpp", dict["language_name"])
	require.Equal(t, "atcoder", dict["judge"])
	require.NotContains(t, dict, "problem_name")
	require.NotContains(t, dict, "empty")
}

func TestFormatLeavesUnknownPlaceholders(t *testing.T) {
	t.Parallel()

	dict := map[string]string{"a": "1", "ab": "2"}
	require.Equal(t, "1-2-{c}", Format("{a}-{ab}-{c}", dict))
	require.Equal(t, "plain", Format("plain", dict))
	require.Equal(t, "{a}", Format("{a}", nil))

	var nilFormatter *Formatter
	require.Equal(t, "{a}", nilFormatter.Format("{a}"))
}

func TestWorkspaceDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultWorkspace, StepContext{}.Workspace())
	require.Equal(t, "/ws", StepContext{WorkspacePath: "/ws"}.Workspace())
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	original := Step{Type: TypeShell, Cmd: []string{"echo", "a"}, FormatOptions: map[string]any{"k": 1}}
	clone := original.Clone()
	clone.Cmd[1] = "b"
	clone.FormatOptions["k"] = 2

	require.Equal(t, "a", original.Cmd[1])
	require.Equal(t, 1, original.FormatOptions["k"])
}

func TestNewMkdirIsAutoGenerated(t *testing.T) {
	t.Parallel()

	s := NewMkdir("./out")
	require.Equal(t, TypeMkdir, s.Type)
	require.True(t, s.AllowFailure)
	require.True(t, s.AutoGenerated)
	require.Empty(t, s.Cwd)
	require.Equal(t, "./out", s.Arg(0))
	require.Empty(t, s.Arg(3))
}

func TestValidateStepsRules(t *testing.T) {
	t.Parallel()

	steps := []Step{
		{Type: TypeMove, Cmd: []string{"", "dst"}},
		{Type: TypeShell, Cmd: []string{""}},
		{Type: TypeResult, Cmd: nil},
		{Type: TypeDockerRun, Cmd: []string{"image"}},
		{Type: TypeRemove, Cmd: []string{"x"}},
	}
	errs := ValidateSteps(steps)
	require.Len(t, errs, 3)
	require.Contains(t, errs[0].Error(), "steps[0].cmd")
	require.Contains(t, errs[0].Error(), "cannot be empty")
	require.Contains(t, errs[1].Error(), "steps[1].cmd[0]")
	require.Contains(t, errs[2].Error(), "steps[2].cmd")
}
