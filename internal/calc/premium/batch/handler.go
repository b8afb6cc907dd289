package batch

import (
	"encoding/json"
	"net/http"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/model"
)

type Handler struct {
	Inventory *model.Inventory
	Options   analysis.Options
	Workers   int
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	opts := h.Options
	if opts.PivotTolerance == 0 {
		opts = analysis.DefaultOptions()
	}
	res, err := Analyze(r.Context(), input, h.Inventory, opts, h.Workers)
	if err != nil {
		http.Error(w, "Calculation error: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
