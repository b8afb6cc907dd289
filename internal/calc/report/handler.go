package report

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/model"
)

type Input struct {
	Meta
	Design model.Design `json:"design"`
}

type Handler struct {
	Inventory *model.Inventory
	Options   analysis.Options
}

// Generate analyzes a posted design and returns its load test report.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	inv := h.Inventory
	if inv == nil {
		inv = model.StandardInventory()
	}
	opts := h.Options
	if opts.PivotTolerance == 0 {
		opts = analysis.DefaultOptions()
	}
	sum, err := analysis.Run(r.Context(), input.Design, inv, opts)
	if err != nil {
		var me *model.ModelError
		if errors.As(err, &me) {
			http.Error(w, me.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "Calculation error: "+err.Error(), http.StatusBadRequest)
		return
	}
	Serve(w, input.Design, sum, input.Meta)
}

// Serve streams the report as a PDF attachment.
func Serve(w http.ResponseWriter, d model.Design, sum *analysis.Summary, meta Meta) {
	pdf := Build(d, sum, meta)
	if err := pdf.Error(); err != nil {
		log.WithError(err).Error("report layout failed")
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"report.pdf\"")
	if err := pdf.Output(w); err != nil {
		log.WithError(err).Warn("report write failed")
	}
}
