package actions

import (
	"strings"

	"github.com/alexisbeaulieu97/cph/internal/ports"
	"github.com/alexisbeaulieu97/cph/internal/step"
)

// DefaultContainer is the container command steps run in when the context
// selects the docker environment.
const DefaultContainer = "cph_container"

// EnvDocker is the env_type value that routes command steps into a container.
const EnvDocker = "docker"

// Factory is the default ports.RequestFactory.
type Factory struct {
	container string
}

// FactoryOption customises a Factory.
type FactoryOption func(*Factory)

// WithContainer sets the container used for docker environment commands.
func WithContainer(name string) FactoryOption {
	return func(f *Factory) {
		if name != "" {
			f.container = name
		}
	}
}

// NewFactory creates a Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{container: DefaultContainer}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ ports.RequestFactory = (*Factory)(nil)

// Create materialises s. Steps whose arguments cannot form a request are
// rejected with ok=false.
func (f *Factory) Create(s step.Step, ctx step.StepContext) (ports.Request, bool) {
	if len(s.Cmd) == 0 {
		return nil, false
	}
	p := policyOf(s)

	switch s.Type {
	case step.TypeMkdir, step.TypeTouch, step.TypeRemove, step.TypeRmTree:
		if strings.TrimSpace(s.Cmd[0]) == "" {
			return nil, false
		}
		return &FileRequest{policy: p, Op: s.Type, Path: s.Cmd[0]}, true
	case step.TypeCopy, step.TypeCopyTree, step.TypeMove, step.TypeMoveTree:
		if len(s.Cmd) < 2 || s.Cmd[0] == "" || s.Cmd[1] == "" {
			return nil, false
		}
		return &FileRequest{policy: p, Op: s.Type, Path: s.Cmd[0], Dst: s.Cmd[1]}, true
	case step.TypeChmod:
		if len(s.Cmd) < 2 {
			return nil, false
		}
		return &FileRequest{policy: p, Op: s.Type, Mode: s.Cmd[0], Path: s.Cmd[len(s.Cmd)-1]}, true
	case step.TypeShell, step.TypeBuild, step.TypeTest, step.TypeOJ:
		if f.inContainer(s, ctx) {
			return f.containerExec(p, s.Cmd, s.Cwd), true
		}
		return &CommandRequest{policy: p, kind: KindShell, Argv: append([]string(nil), s.Cmd...), Cwd: s.Cwd}, true
	case step.TypePython:
		if f.inContainer(s, ctx) {
			req := &PythonRequest{Code: s.Cmd}
			return f.containerExec(p, pythonArgv(DefaultPython, req), s.Cwd), true
		}
		return &PythonRequest{policy: p, Code: append([]string(nil), s.Cmd...), Cwd: s.Cwd}, true
	case step.TypeDockerRun, step.TypeDockerExec, step.TypeDockerCp, step.TypeDockerBuild,
		step.TypeDockerCommit, step.TypeDockerRm, step.TypeDockerRmi:
		return &DockerRequest{
			policy:     p,
			Subcommand: strings.TrimPrefix(string(s.Type), "docker_"),
			Args:       append([]string(nil), s.Cmd...),
		}, true
	case step.TypeResult:
		return &ResultRequest{policy: p, Text: strings.Join(s.Cmd, " ")}, true
	default:
		return nil, false
	}
}

func (f *Factory) inContainer(s step.Step, ctx step.StepContext) bool {
	env := ctx.EnvType
	if s.ForceEnvType != "" {
		env = s.ForceEnvType
	}
	return strings.EqualFold(env, EnvDocker)
}

func (f *Factory) containerExec(p policy, argv []string, cwd string) *DockerRequest {
	args := make([]string, 0, len(argv)+3)
	if cwd != "" {
		args = append(args, "-w", cwd)
	}
	args = append(args, f.container)
	if len(argv) == 1 {
		argv = []string{"sh", "-c", argv[0]}
	}
	args = append(args, argv...)
	return &DockerRequest{policy: p, Subcommand: "exec", Args: args}
}
