package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/model"
	"Trestle/internal/workspace"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		step         float64
		exaggeration float64
		showFailure  bool
	)
	cmd := &cobra.Command{
		Use:   "sweep FILE",
		Short: "Drive the truck across the design and print interpolated frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if step <= 0 {
				return fmt.Errorf("step must be positive")
			}
			d, err := model.ReadFile(args[0])
			if err != nil {
				return err
			}
			o := a.options()
			if cmd.Flags().Changed("exaggeration") {
				o.Interp.Exaggeration = exaggeration
			}
			ws := workspace.New(d, a.inv, o)
			sum, err := ws.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			if showFailure && sum.Status == analysis.Failing {
				o.Analysis.Failed = sum.Failed()
				ws = workspace.New(d, a.inv, o)
				if _, err := ws.Analyze(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Failed members degraded.")
			}
			seq := ws.Engine().Sequence()
			if seq == nil {
				return fmt.Errorf("design is unstable")
			}
			lo, hi := seq.Range()
			fs := seq.NewFrame()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "Position\tMax |ratio|\tMember\tFailing\tFront x\tAngle (deg)\t")
			for k := 0; ; k++ {
				p := lo + float64(k)*step
				if p > hi+1e-9 {
					break
				}
				if err := ws.InterpolateInto(p, fs); err != nil {
					return err
				}
				worst, id := 0.0, 0
				for i, r := range fs.Ratios {
					if math.Abs(r) > worst {
						worst, id = math.Abs(r), seq.Summary().Members[i].ID
					}
				}
				fmt.Fprintf(w, "%.2f\t%.3f\t%d\t%d\t%.2f\t%.3f\t\n",
					p, worst, id, fs.Failing, fs.Load.Front.X, fs.Load.Angle*180/math.Pi)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Float64Var(&step, "step", 0.1, "Load position step (panels)")
	cmd.Flags().Float64Var(&exaggeration, "exaggeration", 0, "Displacement scale for the vehicle pose")
	cmd.Flags().BoolVar(&showFailure, "show-failure", false, "Soften members that fail for strength and sweep again")
	return cmd
}
