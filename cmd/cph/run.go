package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/cph/internal/render"
	"github.com/alexisbeaulieu97/cph/internal/workflow"
)

type runOptions struct {
	parallel   bool
	linear     bool
	maxWorkers int
	contest    string
	problem    string
	language   string
	workspace  string
	envType    string
	jsonOutput bool
}

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Execute a workflow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, a, &opts)
			return runWorkflow(cmd, a, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.parallel, "parallel", "p", false, "Run independent steps concurrently")
	cmd.Flags().BoolVar(&opts.linear, "linear", false, "Run steps in list order without dependency analysis")
	cmd.Flags().IntVar(&opts.maxWorkers, "max-workers", 0, "Maximum concurrent steps")
	cmd.Flags().StringVar(&opts.contest, "contest", "", "Contest name template variable")
	cmd.Flags().StringVar(&opts.problem, "problem", "", "Problem name template variable")
	cmd.Flags().StringVar(&opts.language, "language", "", "Language template variable")
	cmd.Flags().StringVar(&opts.workspace, "workspace", "", "Workspace path template variable")
	cmd.Flags().StringVar(&opts.envType, "env-type", "", "Execution environment (local or docker)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the run report as JSON")

	return cmd
}

// applyRunFlags lets explicitly set flags win over configuration values.
func applyRunFlags(cmd *cobra.Command, a *app, opts *runOptions) {
	flags := cmd.Flags()
	if !flags.Changed("parallel") {
		opts.parallel = a.cfg.Parallel
	}
	if !flags.Changed("linear") {
		opts.linear = a.cfg.Linear
	}
	if !flags.Changed("max-workers") {
		opts.maxWorkers = a.cfg.MaxWorkers
	}

	ctx := &a.cfg.Context
	overrides := []struct {
		value  string
		target *string
	}{
		{opts.contest, &ctx.ContestName},
		{opts.problem, &ctx.ProblemName},
		{opts.language, &ctx.Language},
		{opts.workspace, &ctx.WorkspacePath},
		{opts.envType, &ctx.EnvType},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.target = o.value
		}
	}
}

func runMode(opts runOptions) workflow.Mode {
	switch {
	case opts.linear && opts.parallel:
		return workflow.ModeBatch
	case opts.linear:
		return workflow.ModeLinear
	case opts.parallel:
		return workflow.ModeParallel
	default:
		return workflow.ModeSequential
	}
}

func runWorkflow(cmd *cobra.Command, a *app, path string, opts runOptions) error {
	prepared, err := a.prepare(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	report, runErr := a.service.Run(ctx, workflow.RunRequest{
		Prepared:   prepared,
		Mode:       runMode(opts),
		MaxWorkers: opts.maxWorkers,
	})
	if report == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, render.Report(report))
	}

	if runErr != nil {
		return runErr
	}
	if !report.Success() {
		return fmt.Errorf("workflow finished with %d failed and %d skipped step(s)", report.Failed, report.Skipped)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
