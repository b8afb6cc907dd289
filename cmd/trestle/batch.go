package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Trestle/internal/calc/model"
	"Trestle/internal/calc/premium/batch"
)

func newBatchCmd(a *app) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Test several designs and list their verdicts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in batch.Input
			for _, path := range args {
				d, err := model.ReadFile(path)
				if err != nil {
					return err
				}
				in.Items = append(in.Items, d)
			}
			res, err := batch.Analyze(cmd.Context(), in, a.inv, a.options().Analysis, workers)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Design\tStatus\tMax ratio\tFailing members")
			for _, it := range res.Results {
				if it.Error != "" {
					fmt.Fprintf(w, "%s\tERROR\t\t%s\n", it.Name, it.Error)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%v\n", it.Name, it.Status, it.MaxRatio, it.Failing)
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d designs pass.\n", res.Passing, len(res.Results))
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Parallel analyses (default one per CPU)")
	return cmd
}
