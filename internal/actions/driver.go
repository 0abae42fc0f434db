package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/alexisbeaulieu97/cph/internal/logger"
	"github.com/alexisbeaulieu97/cph/internal/ports"
)

// DefaultPython is the interpreter used for python steps.
const DefaultPython = "python3"

// LocalDriver executes requests on the local machine. It keeps no per-run
// state and is safe for concurrent use.
type LocalDriver struct {
	shell  string
	python string
	docker string
	env    map[string]string
	logger *logger.Logger
}

// DriverOption customises a LocalDriver.
type DriverOption func(*LocalDriver)

// WithShell forces the shell used for single-string commands.
func WithShell(shell string) DriverOption {
	return func(d *LocalDriver) {
		d.shell = shell
	}
}

// WithPython overrides the python interpreter.
func WithPython(python string) DriverOption {
	return func(d *LocalDriver) {
		if python != "" {
			d.python = python
		}
	}
}

// WithDockerBinary overrides the docker executable.
func WithDockerBinary(bin string) DriverOption {
	return func(d *LocalDriver) {
		if bin != "" {
			d.docker = bin
		}
	}
}

// WithEnv adds variables to every spawned process.
func WithEnv(env map[string]string) DriverOption {
	return func(d *LocalDriver) {
		d.env = env
	}
}

// WithDriverLogger injects a logger.
func WithDriverLogger(l *logger.Logger) DriverOption {
	return func(d *LocalDriver) {
		d.logger = l
	}
}

// NewLocalDriver creates a LocalDriver.
func NewLocalDriver(opts ...DriverOption) *LocalDriver {
	d := &LocalDriver{python: DefaultPython, docker: "docker"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ ports.Driver = (*LocalDriver)(nil)

// Execute runs req and reports its outcome. Errors never escape as Go errors;
// they are folded into a failed result.
func (d *LocalDriver) Execute(ctx context.Context, req ports.Request) ports.OperationResult {
	if err := ctx.Err(); err != nil {
		return ports.FailedResult(err.Error())
	}

	switch r := req.(type) {
	case *CommandRequest:
		return d.runCommand(ctx, r.Argv, r.Cwd)
	case *PythonRequest:
		return d.run(ctx, pythonArgv(d.python, r), r.Cwd)
	case *DockerRequest:
		return d.run(ctx, append([]string{d.docker}, r.Argv()...), "")
	case *FileRequest:
		if err := applyFile(r); err != nil {
			d.logger.With("request", r.Describe()).Debug("file operation failed")
			return ports.OperationResult{Success: false, ReturnCode: 1, Stderr: err.Error()}
		}
		return ports.OperationResult{Success: true}
	case *ResultRequest:
		return ports.OperationResult{Success: true, Stdout: r.Text}
	case nil:
		return ports.FailedResult("request cannot be nil")
	default:
		return ports.FailedResult(fmt.Sprintf("unsupported request kind %q", req.Kind()))
	}
}

func (d *LocalDriver) runCommand(ctx context.Context, argv []string, cwd string) ports.OperationResult {
	if len(argv) != 1 {
		return d.run(ctx, argv, cwd)
	}
	shell, shellArgs, err := determineShell(d.shell)
	if err != nil {
		return ports.FailedResult(err.Error())
	}
	args := append([]string{shell}, shellArgs...)
	return d.run(ctx, append(args, argv[0]), cwd)
}

func (d *LocalDriver) run(ctx context.Context, argv []string, cwd string) ports.OperationResult {
	if len(argv) == 0 || argv[0] == "" {
		return ports.FailedResult("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = buildEnv(d.env)
	if cwd != "" {
		cmd.Dir = cwd
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.logger.With("argv", argv).Debug("spawning process")
	err := cmd.Run()
	res := ports.OperationResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		res.Success = true
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ReturnCode = exitErr.ExitCode()
		return res
	}

	// The process never started.
	res.ReturnCode = -1
	res.Error = err.Error()
	if strings.TrimSpace(res.Stderr) == "" {
		res.Stderr = err.Error()
	}
	return res
}

func pythonArgv(python string, r *PythonRequest) []string {
	if path, ok := r.ScriptPath(); ok {
		return []string{python, path}
	}
	return []string{python, "-c", strings.Join(r.Code, "\n")}
}

func determineShell(explicit string) (string, []string, error) {
	if explicit != "" {
		return explicit, []string{"-c"}, nil
	}

	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}

	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}

	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}

	return "", nil, fmt.Errorf("no suitable shell found")
}

func buildEnv(custom map[string]string) []string {
	env := os.Environ()
	for k, v := range custom {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
