package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Check a workflow file without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, root)
			if err != nil {
				return err
			}

			prepared, prepErr := a.service.PrepareFile(args[0], a.cfg.StepContext())
			problems := flatten(prepErr)
			if prepErr == nil {
				problems = append(problems, prepared.FactoryErrors...)
				if _, err := prepared.Graph.GetParallelGroups(); err != nil {
					problems = append(problems, err)
				}
			}

			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				fmt.Fprintf(out, "✓ %s is valid: %d step(s), %d node(s)\n", args[0], len(prepared.Steps), prepared.Graph.Len())
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(out, "✗ %v\n", p)
			}
			return fmt.Errorf("%s has %d problem(s)", args[0], len(problems))
		},
	}
}
