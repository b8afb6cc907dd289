package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"Trestle/internal/calc/autofix"
	"Trestle/internal/calc/model"
	"Trestle/internal/workspace"
)

func newAutofixCmd(a *app) *cobra.Command {
	var (
		out           string
		maxIterations int
	)
	cmd := &cobra.Command{
		Use:   "autofix FILE",
		Short: "Add members until an unstable design is stable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := model.ReadFile(args[0])
			if err != nil {
				return err
			}
			o := a.options()
			if maxIterations > 0 {
				o.MaxRepairIterations = maxIterations
			}
			ws := workspace.New(d, a.inv, o)
			res, err := ws.Autofix(cmd.Context())
			notes, ok := autofix.Note(res, err)
			if !ok {
				return err
			}
			for _, m := range res.Added {
				fmt.Fprintf(cmd.OutOrStdout(), "Added member %d: joints %d-%d\n", m.ID, m.A, m.B)
			}
			fmt.Fprintln(cmd.OutOrStdout(), notes)
			if out == "" {
				out = args[0]
			}
			if res.MembersAdded > 0 {
				if err := model.WriteFile(out, ws.Design()); err != nil {
					return err
				}
			}
			if !res.Success {
				return fmt.Errorf("design is still unstable")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: overwrite FILE)")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Repair passes (default from config)")
	return cmd
}
