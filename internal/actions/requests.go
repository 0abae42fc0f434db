package actions

import (
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/cph/internal/ports"
	"github.com/alexisbeaulieu97/cph/internal/step"
)

// Request families reported by Kind.
const (
	KindShell  = "shell"
	KindPython = "python"
	KindFile   = "file"
	KindDocker = "docker"
	KindResult = "result"
)

type policy struct {
	allowFailure bool
	showOutput   bool
}

func (p policy) AllowFailure() bool { return p.allowFailure }
func (p policy) ShowOutput() bool   { return p.showOutput }

func policyOf(s step.Step) policy {
	return policy{allowFailure: s.AllowFailure, showOutput: s.ShowOutput}
}

// CommandRequest runs a program on the local machine. A single-element
// Argv is handed to the shell, anything longer is executed directly.
type CommandRequest struct {
	policy
	kind string
	Argv []string
	Cwd  string
}

// NewCommandRequest builds a shell-family request.
func NewCommandRequest(argv []string, cwd string, allowFailure, showOutput bool) *CommandRequest {
	return &CommandRequest{
		policy: policy{allowFailure: allowFailure, showOutput: showOutput},
		kind:   KindShell,
		Argv:   append([]string(nil), argv...),
		Cwd:    cwd,
	}
}

func (r *CommandRequest) Kind() string { return r.kind }

func (r *CommandRequest) Describe() string {
	desc := strings.Join(r.Argv, " ")
	if r.Cwd != "" {
		desc += " (in " + r.Cwd + ")"
	}
	return desc
}

func (r *CommandRequest) Substitute(fn func(string) string) ports.Request {
	out := *r
	out.Argv = mapStrings(r.Argv, fn)
	out.Cwd = fn(r.Cwd)
	return &out
}

// PythonRequest runs a script file or inline code with the interpreter.
type PythonRequest struct {
	policy
	// Code holds either one script path or the lines of an inline program.
	Code []string
	Cwd  string
}

func (r *PythonRequest) Kind() string { return KindPython }

func (r *PythonRequest) Describe() string {
	if path, ok := r.ScriptPath(); ok {
		return "python " + path
	}
	return fmt.Sprintf("python <%d line(s)>", len(r.Code))
}

// ScriptPath reports whether the request names a .py file instead of code.
func (r *PythonRequest) ScriptPath() (string, bool) {
	if len(r.Code) == 1 && strings.HasSuffix(strings.TrimSpace(r.Code[0]), ".py") {
		return strings.TrimSpace(r.Code[0]), true
	}
	return "", false
}

func (r *PythonRequest) Substitute(fn func(string) string) ports.Request {
	out := *r
	out.Code = mapStrings(r.Code, fn)
	out.Cwd = fn(r.Cwd)
	return &out
}

// FileRequest performs one filesystem operation.
type FileRequest struct {
	policy
	Op   step.StepType
	Path string
	// Dst is the destination of copy and move operations.
	Dst string
	// Mode is the octal permission string of chmod.
	Mode string
}

func (r *FileRequest) Kind() string { return KindFile }

func (r *FileRequest) Describe() string {
	switch {
	case r.Op == step.TypeChmod:
		return fmt.Sprintf("chmod %s %s", r.Mode, r.Path)
	case r.Dst != "":
		return fmt.Sprintf("%s %s -> %s", r.Op, r.Path, r.Dst)
	default:
		return fmt.Sprintf("%s %s", r.Op, r.Path)
	}
}

func (r *FileRequest) Substitute(fn func(string) string) ports.Request {
	out := *r
	out.Path = fn(r.Path)
	out.Dst = fn(r.Dst)
	out.Mode = fn(r.Mode)
	return &out
}

// DockerRequest invokes one docker CLI subcommand.
type DockerRequest struct {
	policy
	Subcommand string
	Args       []string
}

func (r *DockerRequest) Kind() string { return KindDocker }

func (r *DockerRequest) Describe() string {
	return strings.TrimSpace("docker " + r.Subcommand + " " + strings.Join(r.Args, " "))
}

// Argv returns the full command line, binary excluded.
func (r *DockerRequest) Argv() []string {
	return append([]string{r.Subcommand}, r.Args...)
}

func (r *DockerRequest) Substitute(fn func(string) string) ports.Request {
	out := *r
	out.Args = mapStrings(r.Args, fn)
	return &out
}

// ResultRequest reports its text as stdout without running anything. It is
// how workflows surface values captured from earlier steps.
type ResultRequest struct {
	policy
	Text string
}

func (r *ResultRequest) Kind() string     { return KindResult }
func (r *ResultRequest) Describe() string { return "result " + r.Text }

func (r *ResultRequest) Substitute(fn func(string) string) ports.Request {
	out := *r
	out.Text = fn(r.Text)
	return &out
}

func mapStrings(in []string, fn func(string) string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fn(s)
	}
	return out
}
