package recommend

import (
	"encoding/json"
	"net/http"

	"Trestle/internal/calc/model"
)

type Handler struct {
	Inventory *model.Inventory
}

func (h *Handler) Stock(w http.ResponseWriter, r *http.Request) {
	var input StockInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	inv := h.Inventory
	if inv == nil {
		inv = model.StandardInventory()
	}
	res, err := Stock(inv, input)
	if err != nil {
		http.Error(w, "Calculation error: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
