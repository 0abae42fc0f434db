package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/cph/internal/render"
	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

func newPlanCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <workflow>",
		Short: "Show the resolved steps, dependency graph and parallel groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, root)
			if err != nil {
				return err
			}

			prepared, err := a.prepare(args[0])
			if err != nil {
				return err
			}

			view, err := render.Plan(prepared)
			fmt.Fprintln(cmd.OutOrStdout(), view)

			var cycleErr *cpherrors.CycleError
			if errors.As(err, &cycleErr) && cycleErr.Detail != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), cycleErr.Detail)
			}
			return err
		},
	}
}
