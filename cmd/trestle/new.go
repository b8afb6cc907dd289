package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"Trestle/internal/calc/model"
)

func newNewCmd(a *app) *cobra.Command {
	var (
		cond     model.Conditions
		template string
		height   float64
		name     string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a design from a template",
		Long: `Create a design file. The "deck" template holds only the supports and
deck joints; "pratt" adds a complete Pratt truss of the default stock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var d model.Design
			switch template {
			case "deck":
				d = model.NewDeck(name, cond)
			case "pratt":
				d = model.PrattTruss(name, cond, height, a.inv.DefaultStock())
			default:
				return fmt.Errorf("unknown template %q", template)
			}
			if err := model.WriteFile(out, d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d joints, %d members.\n", out, len(d.Joints), len(d.Members))
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&cond.PanelCount, "panels", "n", 4, "Number of deck panels")
	f.Float64Var(&cond.DeckElevation, "deck", 0, "Deck elevation (m)")
	f.StringVar((*string)(&cond.LoadType), "load", string(model.StandardTruck), "Load test truck: standard or permit")
	f.StringVar((*string)(&cond.DeckType), "deck-type", string(model.MediumStrengthDeck), "Deck: medium or high")
	f.StringVarP(&template, "template", "t", "deck", "Template: deck or pratt")
	f.Float64Var(&height, "height", model.PanelLength, "Truss height for the pratt template (m)")
	f.StringVar(&name, "name", "", "Design name")
	f.StringVarP(&out, "output", "o", "", "Output file (.json, .yaml) [required]")
	cmd.MarkFlagRequired("output")
	return cmd
}
