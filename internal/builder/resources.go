package builder

import (
	"github.com/alexisbeaulieu97/cph/internal/graph"
	"github.com/alexisbeaulieu97/cph/internal/step"
)

// ExtractResources derives the filesystem footprint of s. Command-like and
// container steps conservatively require workspace; any step with a cwd also
// requires that directory.
func ExtractResources(s step.Step, workspace string) graph.ResourceInfo {
	res := graph.NewResourceInfo()
	requireParent := func(p string) {
		if dir, ok := step.ParentDir(p); ok {
			res.RequiresDirs.Add(dir)
		}
	}
	arg := s.Arg

	switch s.Type {
	case step.TypeMkdir:
		if arg(0) != "" {
			res.CreatesDirs.Add(arg(0))
		}
	case step.TypeTouch:
		if arg(0) != "" {
			res.CreatesFiles.Add(arg(0))
			requireParent(arg(0))
		}
	case step.TypeCopy, step.TypeMove:
		if len(s.Cmd) >= 2 {
			res.ReadsFiles.Add(arg(0))
			res.CreatesFiles.Add(arg(1))
			requireParent(arg(1))
		}
	case step.TypeCopyTree, step.TypeMoveTree:
		if len(s.Cmd) >= 2 {
			res.ReadsFiles.Add(arg(0))
			res.CreatesDirs.Add(arg(1))
			requireParent(arg(1))
		}
	case step.TypeRemove, step.TypeRmTree:
		if arg(0) != "" {
			res.ReadsFiles.Add(arg(0))
		}
	case step.TypeChmod:
		if len(s.Cmd) >= 2 {
			res.ReadsFiles.Add(s.Cmd[len(s.Cmd)-1])
		}
	case step.TypeTest:
		res.RequiresDirs.Add(workspace)
		if arg(1) != "" {
			res.ReadsFiles.Add(arg(1))
		}
	case step.TypeShell, step.TypePython, step.TypeBuild, step.TypeOJ,
		step.TypeDockerRun, step.TypeDockerExec, step.TypeDockerCp, step.TypeDockerBuild,
		step.TypeDockerCommit, step.TypeDockerRm, step.TypeDockerRmi:
		res.RequiresDirs.Add(workspace)
	case step.TypeResult:
	}

	if s.Cwd != "" && s.Cwd != "." {
		res.RequiresDirs.Add(s.Cwd)
	}
	return res
}
