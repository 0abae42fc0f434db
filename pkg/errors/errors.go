package errors

import (
	"fmt"
	"strings"
)

// ParseError represents a step that could not be decoded from its JSON form.
type ParseError struct {
	Path    string
	Index   int
	Message string
	Err     error
}

// NewParseError constructs a ParseError for the step at index.
func NewParseError(path string, index int, message string, err error) error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Index: index, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	location := fmt.Sprintf("steps[%d]", e.Index)
	if e.Index < 0 {
		location = "steps"
	}
	if e.Path != "" {
		return fmt.Sprintf("parse error: %s: %s: %s", e.Path, location, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", location, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures a structural rule violated by a parsed step or by configuration.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FactoryError records a step the request factory refused to materialise.
type FactoryError struct {
	Index    int
	StepType string
}

// NewFactoryError constructs a FactoryError.
func NewFactoryError(index int, stepType string) error {
	return &FactoryError{Index: index, StepType: stepType}
}

func (e *FactoryError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("factory error: steps[%d]: no request could be created for step type %q", e.Index, e.StepType)
}

// CycleError reports that no topological order exists. Nodes lists the ids
// left unresolved; Detail optionally carries a formatted cycle report.
type CycleError struct {
	Nodes  []string
	Detail string
}

// NewCycleError constructs a CycleError.
func NewCycleError(nodes []string, detail string) error {
	return &CycleError{Nodes: append([]string(nil), nodes...), Detail: detail}
}

func (e *CycleError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("cycle error: no valid execution order, unresolved nodes: %s", strings.Join(e.Nodes, ", "))
	if e.Detail != "" {
		msg += "\n\n" + e.Detail
	}
	return msg
}

// ExecutionError represents a runtime failure while executing a node.
type ExecutionError struct {
	StepID string
	Err    error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(stepID string, err error) error {
	return &ExecutionError{StepID: stepID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.StepID != "" {
		return fmt.Sprintf("execution error on step %s: %v", e.StepID, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
