package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/model"
	"Trestle/internal/workspace"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		subdivisions int
		autoRepair   bool
		asJSON       bool
		save         string
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Run the load test on a design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := model.ReadFile(args[0])
			if err != nil {
				return err
			}
			o := a.options()
			if subdivisions > 0 {
				o.Analysis.Loads.Subdivisions = subdivisions
			}
			if cmd.Flags().Changed("auto-repair") {
				o.AutoRepair = autoRepair
			}
			ws := workspace.New(d, a.inv, o)
			sum, err := ws.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			if save != "" && sum.Repair != nil && sum.Repair.MembersAdded > 0 {
				if err := model.WriteFile(save, ws.Design()); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum.Lite())
			}
			printSummary(cmd.OutOrStdout(), d.Name, sum)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&subdivisions, "subdivisions", "s", 0, "Load positions per panel (default from config)")
	f.BoolVar(&autoRepair, "auto-repair", false, "Brace an unstable design before testing it")
	f.BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	f.StringVar(&save, "save", "", "Write the repaired design to this file")
	return cmd
}

func printSummary(out io.Writer, name string, sum *analysis.Summary) {
	fmt.Fprintf(out, "Design: %s\n", name)
	fmt.Fprintf(out, "Vehicle: %s, %d load cases\n", sum.Truck.Name, len(sum.Results))
	if sum.Repair != nil {
		fmt.Fprintf(out, "Autofix: %d member(s) added in %d iteration(s)\n", sum.Repair.MembersAdded, sum.Repair.Iterations)
	}
	fmt.Fprintf(out, "Status: %s\n", sum.Status)
	if sum.Status == analysis.Unstable {
		fmt.Fprintf(out, "Unstable joints: %v\n", sum.UnstableJoints)
		return
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tStock\tL (m)\tL/r\tC (kN)\tC/Pc\tT (kN)\tT/Pt\tStatus\t")
	for _, m := range sum.Members {
		fmt.Fprintf(w, "%d\t%s %s %d\t%.2f\t%.0f\t%.1f\t%.2f\t%.1f\t%.2f\t%s\t\n",
			m.ID, m.Stock.Material, m.Stock.Section, m.Stock.Size, m.Length, m.Slenderness,
			m.MaxCompressionKN, m.CompressionRatio, m.MaxTensionKN, m.TensionRatio, m.Status)
	}
	w.Flush()
	fmt.Fprintf(out, "\nGoverning ratio: %.2f\n", sum.MaxRatio())
}
