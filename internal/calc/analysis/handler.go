package analysis

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"Trestle/internal/calc/autofix"
	"Trestle/internal/calc/model"
)

type Input struct {
	Design         model.Design `json:"design"`
	Subdivisions   int          `json:"subdivisions"`
	AutoRepair     bool         `json:"auto_repair"`
	IncludeResults bool         `json:"include_results"`
}

type Output struct {
	Summary *Summary      `json:"summary"`
	Design  *model.Design `json:"design,omitempty"` // set when auto repair added members
}

// Handler analyzes a posted design without storing it.
type Handler struct {
	Inventory *model.Inventory
	Options   Options
	// MaxRepairIterations bounds auto repair; zero uses the autofix default.
	MaxRepairIterations int
}

func (h *Handler) inventory() *model.Inventory {
	if h.Inventory == nil {
		return model.StandardInventory()
	}
	return h.Inventory
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	opts := h.Options
	if input.Subdivisions > 0 {
		opts.Loads.Subdivisions = input.Subdivisions
	}

	inv := h.inventory()
	design := input.Design
	sum, err := Run(r.Context(), design, inv, opts)
	var out Output
	if err == nil && sum.Status == Unstable && input.AutoRepair {
		st := &autofix.DesignStructure{D: design}
		f := &autofix.Fixer{Inventory: inv, PivotTolerance: opts.PivotTolerance, MaxIterations: h.MaxRepairIterations}
		res, ferr := f.Run(r.Context(), st)
		if ferr != nil && !errors.Is(ferr, autofix.ErrIterationLimit) && !errors.Is(ferr, autofix.ErrNoCandidate) {
			err = ferr
		} else if res.MembersAdded > 0 {
			sum, err = Run(r.Context(), st.D, inv, opts)
			out.Design = &st.D
		}
		if err == nil {
			sum.Repair = &Repair{MembersAdded: res.MembersAdded, Iterations: res.Iterations, Success: res.Success}
		}
	}
	if err != nil {
		var me *model.ModelError
		if errors.As(err, &me) {
			http.Error(w, me.Error(), http.StatusUnprocessableEntity)
			return
		}
		log.WithError(err).Warn("analysis failed")
		http.Error(w, "Calculation error: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !input.IncludeResults {
		sum = sum.Lite()
	}
	out.Summary = sum
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
