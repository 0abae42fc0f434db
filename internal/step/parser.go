package step

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

// rawStep mirrors the JSON shape of a step before type checking.
type rawStep struct {
	Type          *string         `json:"type"`
	Cmd           json.RawMessage `json:"cmd"`
	AllowFailure  bool            `json:"allow_failure"`
	ShowOutput    bool            `json:"show_output"`
	Cwd           *string         `json:"cwd"`
	ForceEnvType  *string         `json:"force_env_type"`
	FormatOptions map[string]any  `json:"format_options"`
	OutputFormat  *string         `json:"output_format"`
	FormatPreset  *string         `json:"format_preset"`
	Name          string          `json:"name"`
}

type document struct {
	Steps []json.RawMessage `json:"steps"`
}

// ParseFile reads path and parses its steps. Errors carry the path.
func ParseFile(path string, ctx StepContext) ([]Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cpherrors.NewParseError(path, -1, fmt.Sprintf("read steps: %v", err), err)
	}
	return parse(path, data, ctx)
}

// Parse decodes a JSON step list, formats every cmd element and cwd against
// ctx, and validates the result. The document is either an array of steps or
// an object with a "steps" array.
//
// All parse and validation errors are collected and returned joined together
// with the steps that parsed successfully. Callers must not build a graph when
// the error is non-nil.
func Parse(data []byte, ctx StepContext) ([]Step, error) {
	return parse("", data, ctx)
}

func parse(path string, data []byte, ctx StepContext) ([]Step, error) {
	entries, err := splitEntries(data)
	if err != nil {
		return nil, cpherrors.NewParseError(path, -1, err.Error(), err)
	}

	formatter := NewFormatter(ctx.FormatDict())

	var (
		steps []Step
		errs  []error
	)
	for i, entry := range entries {
		s, err := decodeStep(entry, formatter)
		if err != nil {
			errs = append(errs, withPath(err, path, i))
			continue
		}
		if verrs := validateStep(i, s); len(verrs) > 0 {
			errs = append(errs, verrs...)
		}
		steps = append(steps, s)
	}

	return steps, errors.Join(errs...)
}

func splitEntries(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("document is empty")
	}

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode step list: %w", err)
		}
		return entries, nil
	case '{':
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decode step document: %w", err)
		}
		if doc.Steps == nil {
			return nil, errors.New(`document object must contain a "steps" array`)
		}
		return doc.Steps, nil
	default:
		return nil, errors.New("document must be a JSON array of steps")
	}
}

func decodeStep(entry json.RawMessage, formatter *Formatter) (Step, error) {
	var raw rawStep
	if err := json.Unmarshal(entry, &raw); err != nil {
		return Step{}, cpherrors.NewParseError("", 0, fmt.Sprintf("malformed step: %v", err), err)
	}

	if raw.Type == nil || strings.TrimSpace(*raw.Type) == "" {
		return Step{}, cpherrors.NewParseError("", 0, "missing step type", nil)
	}
	stepType, ok := ParseType(*raw.Type)
	if !ok {
		return Step{}, cpherrors.NewParseError("", 0, fmt.Sprintf("unknown step type: %s", *raw.Type), nil)
	}

	args, err := decodeCmd(raw.Cmd)
	if err != nil {
		return Step{}, cpherrors.NewParseError("", 0, err.Error(), nil)
	}
	for i := range args {
		args[i] = formatter.Format(args[i])
	}

	s := Step{
		Type:          stepType,
		Cmd:           args,
		AllowFailure:  raw.AllowFailure,
		ShowOutput:    raw.ShowOutput,
		FormatOptions: raw.FormatOptions,
		Name:          raw.Name,
	}
	if raw.Cwd != nil {
		s.Cwd = formatter.Format(*raw.Cwd)
	}
	if raw.ForceEnvType != nil {
		s.ForceEnvType = *raw.ForceEnvType
	}
	if raw.OutputFormat != nil {
		s.OutputFormat = *raw.OutputFormat
	}
	if raw.FormatPreset != nil {
		s.FormatPreset = *raw.FormatPreset
	}
	return s, nil
}

// decodeCmd accepts an array of JSON scalars. Non-string scalars keep their
// literal JSON text, so 5 becomes "5".
func decodeCmd(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, errors.New("missing cmd")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, errors.New("cmd must be an array")
	}

	args := make([]string, 0, len(elems))
	for i, elem := range elems {
		var s string
		if err := json.Unmarshal(elem, &s); err == nil {
			args = append(args, s)
			continue
		}
		text := strings.TrimSpace(string(elem))
		switch {
		case text == "null":
			args = append(args, "")
		case strings.HasPrefix(text, "[") || strings.HasPrefix(text, "{"):
			return nil, fmt.Errorf("cmd[%d] must be a scalar", i)
		default:
			args = append(args, text)
		}
	}
	return args, nil
}

func withPath(err error, path string, index int) error {
	var parseErr *cpherrors.ParseError
	if errors.As(err, &parseErr) {
		return cpherrors.NewParseError(path, index, parseErr.Message, parseErr.Err)
	}
	return cpherrors.NewParseError(path, index, "", err)
}
