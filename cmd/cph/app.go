package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/cph/internal/actions"
	"github.com/alexisbeaulieu97/cph/internal/config"
	"github.com/alexisbeaulieu97/cph/internal/logger"
	"github.com/alexisbeaulieu97/cph/internal/output"
	"github.com/alexisbeaulieu97/cph/internal/workflow"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	printer *output.Printer
	service *workflow.Service
}

// newApp loads the environment file and configuration, then wires the
// logger, printer and workflow service.
func newApp(cmd *cobra.Command, root *rootFlags) (*app, error) {
	if err := config.LoadDotEnv(root.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(root.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if root.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{
		Level:         level,
		HumanReadable: isTerminal(cmd.ErrOrStderr()),
		Writer:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	printerOpts := []output.PrinterOption{output.WithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr())}
	if !isTerminal(cmd.OutOrStdout()) {
		printerOpts = append(printerOpts, output.WithoutColor())
	}
	printer := output.NewPrinter(printerOpts...)

	var factoryOpts []actions.FactoryOption
	if cfg.Container != "" {
		factoryOpts = append(factoryOpts, actions.WithContainer(cfg.Container))
	}
	driver := actions.NewLocalDriver(actions.WithDriverLogger(log))
	service := workflow.NewService(
		actions.NewFactory(factoryOpts...),
		driver,
		workflow.WithLogger(log),
		workflow.WithSink(printer),
	)

	return &app{cfg: cfg, log: log, printer: printer, service: service}, nil
}

func (a *app) prepare(path string) (*workflow.Prepared, error) {
	prepared, err := a.service.PrepareFile(path, a.cfg.StepContext())
	if err != nil {
		return prepared, err
	}
	for _, ferr := range prepared.FactoryErrors {
		a.log.Warn(ferr.Error())
	}
	return prepared, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// flatten expands joined errors so each problem can be listed on its own.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
