package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/alexisbeaulieu97/cph/internal/ports"
)

// Decision says which captured streams should be printed.
type Decision struct {
	ShowStdout bool
	ShowStderr bool
	Reason     string
}

// Decide is the pure output gate. Output is shown only when the request asked
// for it and the stream carries non-blank text.
func Decide(showOutput bool, res ports.OperationResult) Decision {
	if !showOutput {
		return Decision{Reason: "show_output is disabled"}
	}
	hasOut := strings.TrimSpace(res.Stdout) != ""
	hasErr := strings.TrimSpace(res.Stderr) != ""
	if !hasOut && !hasErr {
		return Decision{Reason: "no output to show"}
	}
	return Decision{ShowStdout: hasOut, ShowStderr: hasErr, Reason: "show_output is enabled"}
}

// ShouldPrint reduces Decide to a flag and the text to print, stdout first.
func ShouldPrint(showOutput bool, res ports.OperationResult) (bool, string) {
	d := Decide(showOutput, res)
	var parts []string
	if d.ShowStdout {
		parts = append(parts, res.Stdout)
	}
	if d.ShowStderr {
		parts = append(parts, res.Stderr)
	}
	if len(parts) == 0 {
		return false, ""
	}
	return true, strings.Join(parts, "")
}

// Printer writes request output to the terminal, stderr in red. It is safe
// for concurrent use and can be registered as a graph observer.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	stderr *color.Color
}

// PrinterOption customises a Printer.
type PrinterOption func(*Printer)

// WithWriters overrides the destination writers.
func WithWriters(out, errOut io.Writer) PrinterOption {
	return func(p *Printer) {
		p.out = out
		p.errOut = errOut
	}
}

// WithoutColor disables ANSI colouring.
func WithoutColor() PrinterOption {
	return func(p *Printer) {
		p.stderr.DisableColor()
	}
}

// NewPrinter creates a Printer writing to os.Stdout and os.Stderr.
func NewPrinter(opts ...PrinterOption) *Printer {
	p := &Printer{
		out:    os.Stdout,
		errOut: os.Stderr,
		stderr: color.New(color.FgRed),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Print emits res according to Decide and reports whether anything was
// written.
func (p *Printer) Print(req ports.Request, res ports.OperationResult) bool {
	if req == nil {
		return false
	}
	d := Decide(req.ShowOutput(), res)
	if !d.ShowStdout && !d.ShowStderr {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if d.ShowStdout {
		fmt.Fprint(p.out, withNewline(res.Stdout))
	}
	if d.ShowStderr {
		p.stderr.Fprint(p.errOut, withNewline(res.Stderr))
	}
	return true
}

// Observe prints the output of finished nodes.
func (p *Printer) Observe(_ context.Context, event ports.NodeEvent) {
	if event.Result == nil {
		return
	}
	if event.Type != ports.EventNodeSucceeded && event.Type != ports.EventNodeFailed {
		return
	}
	p.Print(event.Request, *event.Result)
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
