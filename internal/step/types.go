package step

import (
	"strings"
)

// StepType is the discriminant of a workflow step.
type StepType string

const (
	TypeMkdir        StepType = "mkdir"
	TypeTouch        StepType = "touch"
	TypeCopy         StepType = "copy"
	TypeCopyTree     StepType = "copytree"
	TypeMove         StepType = "move"
	TypeMoveTree     StepType = "movetree"
	TypeRemove       StepType = "remove"
	TypeRmTree       StepType = "rmtree"
	TypeChmod        StepType = "chmod"
	TypeShell        StepType = "shell"
	TypePython       StepType = "python"
	TypeBuild        StepType = "build"
	TypeTest         StepType = "test"
	TypeOJ           StepType = "oj"
	TypeDockerRun    StepType = "docker_run"
	TypeDockerExec   StepType = "docker_exec"
	TypeDockerCp     StepType = "docker_cp"
	TypeDockerBuild  StepType = "docker_build"
	TypeDockerCommit StepType = "docker_commit"
	TypeDockerRm     StepType = "docker_rm"
	TypeDockerRmi    StepType = "docker_rmi"
	TypeResult       StepType = "result"
)

var knownTypes = map[StepType]struct{}{
	TypeMkdir: {}, TypeTouch: {}, TypeCopy: {}, TypeCopyTree: {}, TypeMove: {}, TypeMoveTree: {},
	TypeRemove: {}, TypeRmTree: {}, TypeChmod: {}, TypeShell: {}, TypePython: {}, TypeBuild: {},
	TypeTest: {}, TypeOJ: {}, TypeDockerRun: {}, TypeDockerExec: {}, TypeDockerCp: {},
	TypeDockerBuild: {}, TypeDockerCommit: {}, TypeDockerRm: {}, TypeDockerRmi: {}, TypeResult: {},
}

// ParseType maps a raw type name to a known StepType. Matching ignores case
// and surrounding whitespace.
func ParseType(raw string) (StepType, bool) {
	t := StepType(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := knownTypes[t]
	return t, ok
}

// Known reports whether t is part of the closed step type set.
func (t StepType) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// IsPathPair reports whether the step takes (src, dst) arguments.
func (t StepType) IsPathPair() bool {
	switch t {
	case TypeCopy, TypeCopyTree, TypeMove, TypeMoveTree:
		return true
	}
	return false
}

// IsSinglePath reports whether the step operates on one target path.
func (t StepType) IsSinglePath() bool {
	switch t {
	case TypeMkdir, TypeTouch, TypeRemove, TypeRmTree:
		return true
	}
	return false
}

// IsCommand reports whether cmd[0] names a program to run.
func (t StepType) IsCommand() bool {
	switch t {
	case TypeShell, TypePython, TypeBuild, TypeTest, TypeOJ:
		return true
	}
	return false
}

// IsDocker reports whether the step is carried out by the container runtime.
func (t StepType) IsDocker() bool {
	return strings.HasPrefix(string(t), "docker_")
}

// String implements fmt.Stringer.
func (t StepType) String() string { return string(t) }

// Step is one parsed workflow instruction. Steps are treated as values: every
// transformation produces a new Step instead of editing one in place.
type Step struct {
	Type          StepType       `json:"type"`
	Cmd           []string       `json:"cmd"`
	AllowFailure  bool           `json:"allow_failure,omitempty"`
	ShowOutput    bool           `json:"show_output,omitempty"`
	Cwd           string         `json:"cwd,omitempty"`
	ForceEnvType  string         `json:"force_env_type,omitempty"`
	FormatOptions map[string]any `json:"format_options,omitempty"`
	OutputFormat  string         `json:"output_format,omitempty"`
	FormatPreset  string         `json:"format_preset,omitempty"`
	Name          string         `json:"name,omitempty"`
	// AutoGenerated marks steps inserted by dependency resolution.
	AutoGenerated bool `json:"auto_generated,omitempty"`
}

// Arg returns cmd[i] or an empty string when the argument is absent.
func (s Step) Arg(i int) string {
	if i < 0 || i >= len(s.Cmd) {
		return ""
	}
	return s.Cmd[i]
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	out.Cmd = append([]string(nil), s.Cmd...)
	if s.FormatOptions != nil {
		out.FormatOptions = make(map[string]any, len(s.FormatOptions))
		for k, v := range s.FormatOptions {
			out.FormatOptions[k] = v
		}
	}
	return out
}

// Label returns the display name of the step, falling back to its type and
// arguments.
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if len(s.Cmd) == 0 {
		return string(s.Type)
	}
	return string(s.Type) + " " + strings.Join(s.Cmd, " ")
}

// NewMkdir builds a directory preparation step as inserted by the resolver.
func NewMkdir(dir string) Step {
	return Step{
		Type:          TypeMkdir,
		Cmd:           []string{dir},
		AllowFailure:  true,
		AutoGenerated: true,
		Name:          "prepare " + dir,
	}
}
