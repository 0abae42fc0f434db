package step

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return validateInst
}

type pathPairArgs struct {
	Src string `validate:"required"`
	Dst string `validate:"required"`
}

type pathArgs struct {
	Path string `validate:"required"`
}

type commandArgs struct {
	Program string `validate:"required"`
}

// ValidateSteps checks the structural rules of every step and returns all
// violations, in step order.
func ValidateSteps(steps []Step) []error {
	var errs []error
	for i, s := range steps {
		errs = append(errs, validateStep(i, s)...)
	}
	return errs
}

func validateStep(index int, s Step) []error {
	v := validatorInstance()
	field := fieldForStep(index, "cmd")

	if err := v.Var(s.Cmd, "min=1"); err != nil {
		return []error{cpherrors.NewValidationError(field, fmt.Sprintf("%s: command cannot be empty", s.Type), err)}
	}

	switch {
	case s.Type.IsPathPair():
		if err := v.Var(s.Cmd, "min=2"); err != nil {
			return []error{cpherrors.NewValidationError(field,
				fmt.Sprintf("%s: requires at least 2 arguments (src, dst), got %d", s.Type, len(s.Cmd)), err)}
		}
		if err := v.Struct(pathPairArgs{Src: s.Cmd[0], Dst: s.Cmd[1]}); err != nil {
			return []error{cpherrors.NewValidationError(field,
				fmt.Sprintf("%s: source and destination paths cannot be empty", s.Type), err)}
		}
	case s.Type.IsSinglePath():
		if err := v.Struct(pathArgs{Path: s.Cmd[0]}); err != nil {
			return []error{cpherrors.NewValidationError(fieldForStep(index, "cmd[0]"),
				fmt.Sprintf("%s: path cannot be empty", s.Type), err)}
		}
	case s.Type.IsCommand():
		if err := v.Struct(commandArgs{Program: s.Cmd[0]}); err != nil {
			return []error{cpherrors.NewValidationError(fieldForStep(index, "cmd[0]"),
				fmt.Sprintf("%s: command cannot be empty", s.Type), err)}
		}
	}
	return nil
}

func fieldForStep(index int, field string) string {
	return fmt.Sprintf("steps[%d].%s", index, field)
}
