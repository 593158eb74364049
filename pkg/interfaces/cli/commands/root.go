// Package commands implements the mrp command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrp-planner/pkg/config"
	"github.com/vsinha/mrp-planner/pkg/interfaces/cli/output"
	"github.com/vsinha/mrp-planner/pkg/logger"
)

// rootOptions carries the persistent flags and what PersistentPreRunE loads from them
type rootOptions struct {
	configPath string
	format     string
	outputDir  string

	cfg *config.Config
	log *logger.Logger
}

// NewRootCommand builds the mrp command tree
func NewRootCommand() *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:   "mrp",
		Short: "Material requirements planning",
		Long: `mrp nets open demand against stock and scheduled receipts for every
active item, records each execution as a numbered run, and turns the
resulting shortages into purchase requisitions or work orders.

Planning inputs come from a CSV scenario directory or an ERP database;
runs are kept in SQLite. See --config for the YAML configuration file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			o.cfg = cfg
			o.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.log != nil {
				o.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "mrp.yaml", "configuration file")
	pf.StringVar(&o.format, "format", output.FormatText, "output format: text, json, csv")
	pf.StringVar(&o.outputDir, "output-dir", "", "write run reports to this directory")

	root.AddCommand(
		newRunCommand(o),
		newApplyCommand(o),
		newRunsCommand(o),
		newValidateCommand(o),
		newExplodeCommand(o),
		newCriticalPathCommand(o),
		newServeCommand(o),
		newGenerateCommand(),
	)
	return root
}

func (o *rootOptions) printer(cmd *cobra.Command) (*output.Printer, error) {
	return output.NewPrinter(cmd.OutOrStdout(), output.Config{Format: o.format, OutputDir: o.outputDir})
}

// withRuntime builds the engine, runs fn and closes every connection afterwards
func (o *rootOptions) withRuntime(cmd *cobra.Command, fn func(rt *Runtime, p *output.Printer) error) error {
	p, err := o.printer(cmd)
	if err != nil {
		return err
	}
	rt, err := Build(o.cfg, o.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			o.log.Warn("failed to close runtime", "error", err)
		}
	}()
	return fn(rt, p)
}
