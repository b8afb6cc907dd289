package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"Trestle/internal/calc/model"
	"Trestle/internal/calc/premium/importer"
	"Trestle/internal/calc/report"
	"Trestle/internal/workspace"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		out  string
		meta report.Meta
	)
	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Write the load test report as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := model.ReadFile(args[0])
			if err != nil {
				return err
			}
			sum, err := workspace.New(d, a.inv, a.options()).Analyze(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := report.Write(f, d, sum, meta); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", out, sum.Status)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "output", "o", "report.pdf", "Output PDF file")
	f.StringVar(&meta.Project, "project", "", "Project name")
	f.StringVar(&meta.Author, "author", "", "Author")
	f.StringVar(&meta.Title, "title", "", "Report title")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out      string
		analyzed bool
	)
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write a design, and optionally its analysis, to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := model.ReadFile(args[0])
			if err != nil {
				return err
			}
			ws := workspace.New(d, a.inv, a.options())
			if analyzed {
				if _, err := ws.Analyze(cmd.Context()); err != nil {
					return err
				}
			}
			wb, err := importer.Export(ws.Design(), ws.Summary())
			if err != nil {
				return err
			}
			defer wb.Close()
			if err := wb.SaveAs(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "design.xlsx", "Output workbook")
	cmd.Flags().BoolVar(&analyzed, "analyze", true, "Include ratings and member forces")
	return cmd
}
