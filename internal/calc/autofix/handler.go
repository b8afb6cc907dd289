package autofix

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"Trestle/internal/calc/model"
)

type Input struct {
	Design        model.Design `json:"design"`
	MaxIterations int          `json:"max_iterations"`
}

type Output struct {
	Result
	Design model.Design `json:"design"`
	Notes  string       `json:"notes"`
}

type Handler struct {
	Inventory      *model.Inventory
	PivotTolerance float64
}

// Fix runs autofix on a posted design and returns the braced copy.
func (h *Handler) Fix(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	st := &DesignStructure{D: input.Design}
	f := &Fixer{Inventory: h.Inventory, PivotTolerance: h.PivotTolerance, MaxIterations: input.MaxIterations}
	res, err := f.Run(r.Context(), st)
	notes, ok := Note(res, err)
	if !ok {
		log.WithError(err).Debug("autofix rejected design")
		http.Error(w, "Calculation error: "+err.Error(), http.StatusBadRequest)
		return
	}
	out := Output{Result: res, Design: st.D, Notes: notes}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// Note describes the outcome of Run for a user. ok is false when err is
// not one of the bounded failures Run reports with a partial result.
func Note(res Result, err error) (notes string, ok bool) {
	switch {
	case err == nil && res.MembersAdded == 0:
		return "Structure is already stable.", true
	case err == nil:
		return "Structure braced.", true
	case errors.Is(err, ErrIterationLimit), errors.Is(err, ErrNoCandidate):
		return err.Error(), true
	}
	return "", false
}
