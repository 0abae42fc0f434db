package ports

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/cph/internal/step"
)

// Request is a materialised action produced by a RequestFactory and owned by
// exactly one graph node. The engine never inspects what a request does; it
// only reads the policy flags and rewrites templated string fields.
type Request interface {
	// Kind names the action family (shell, file, docker, ...). Used for
	// diagnostics and graph metrics.
	Kind() string
	// AllowFailure reports whether a failed result may be ignored.
	AllowFailure() bool
	// ShowOutput reports whether captured output should be printed.
	ShowOutput() bool
	// Describe returns a one-line human readable summary.
	Describe() string
	// Substitute returns a copy of the request with fn applied to every
	// string-bearing field. The receiver is never modified.
	Substitute(fn func(string) string) Request
}

// Driver turns a Request into an OperationResult. One driver instance serves
// an entire run and must be safe for concurrent use when the graph executes
// in parallel.
type Driver interface {
	Execute(ctx context.Context, req Request) OperationResult
}

// DriverFunc adapts a plain function to the Driver interface.
type DriverFunc func(ctx context.Context, req Request) OperationResult

// Execute calls f(ctx, req).
func (f DriverFunc) Execute(ctx context.Context, req Request) OperationResult {
	return f(ctx, req)
}

// RequestFactory materialises steps. ok=false means the step cannot be turned
// into a request and must be left out of the graph.
type RequestFactory interface {
	Create(s step.Step, ctx step.StepContext) (Request, bool)
}

// OperationResult is the outcome of executing one request.
type OperationResult struct {
	Success    bool   `json:"success"`
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	// Error carries a driver-level failure description (spawn error, panic).
	Error string `json:"error,omitempty"`
}

// Field returns the textual form of a result field addressable from
// {{step_X.field}} placeholders.
func (r OperationResult) Field(name string) (string, bool) {
	switch name {
	case "stdout":
		return r.Stdout, true
	case "stderr":
		return r.Stderr, true
	case "returncode":
		return strconv.Itoa(r.ReturnCode), true
	case "success":
		return strconv.FormatBool(r.Success), true
	default:
		return "", false
	}
}

// FailedResult builds a failed result carrying message on stderr.
func FailedResult(message string) OperationResult {
	return OperationResult{Success: false, ReturnCode: -1, Stderr: message, Error: message}
}

// StepFailure is raised when a request without allow_failure reports failure.
type StepFailure struct {
	NodeID  string
	Request Request
	Result  OperationResult
}

func (e *StepFailure) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("step failure")
	if e.NodeID != "" {
		fmt.Fprintf(&b, ": %s", e.NodeID)
	}
	if e.Request != nil {
		fmt.Fprintf(&b, " (%s)", e.Request.Describe())
	}
	fmt.Fprintf(&b, ": exited with code %d", e.Result.ReturnCode)
	if detail := strings.TrimSpace(e.Result.Stderr); detail != "" {
		fmt.Fprintf(&b, ": %s", detail)
	}
	return b.String()
}
