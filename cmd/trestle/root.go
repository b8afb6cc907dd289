package main

import (
	"github.com/spf13/cobra"

	"Trestle/internal/calc/model"
	"Trestle/internal/config"
	"Trestle/internal/logging"
	"Trestle/internal/workspace"
)

type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	inv        *model.Inventory
}

func (a *app) options() workspace.Options {
	return a.cfg.Analysis.Workspace()
}

func newRootCmd() *cobra.Command {
	a := &app{inv: model.StandardInventory()}
	root := &cobra.Command{
		Use:   "trestle",
		Short: "Analyze planar trusses under a moving truck load",
		Long: `Trestle builds the stiffness model of a planar truss, runs it through
every position of the load test truck and rates each member.

Designs are JSON or YAML files; the format follows the extension.

Examples:
  # Start a three panel Pratt truss and test it
  trestle new --panels 3 --template pratt -o bridge.yaml
  trestle analyze bridge.yaml

  # Brace an unstable design, then write the load test report
  trestle autofix bridge.yaml -o braced.yaml
  trestle report braced.yaml -o report.pdf`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Logging.Level = a.logLevel
			}
			// stdout carries command output
			if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
				cfg.Logging.Output = "stderr"
			}
			logging.Init(cfg.Logging)
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override")

	root.AddCommand(
		newNewCmd(a),
		newAnalyzeCmd(a),
		newAutofixCmd(a),
		newSweepCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newBatchCmd(a),
	)
	return root
}
