package importer

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/model"
)

const MaxUploadSize = 10 << 20 // 10MB

type Handler struct{}

// ReadUpload parses the design workbook sent as the "file" form field.
func ReadUpload(w http.ResponseWriter, r *http.Request) (model.Design, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File required", http.StatusBadRequest)
		return model.Design{}, false
	}
	defer file.Close()

	d, err := ReadDesign(file)
	if err != nil {
		http.Error(w, "Invalid file: "+err.Error(), http.StatusBadRequest)
		return model.Design{}, false
	}
	return d, true
}

// Design converts an uploaded workbook to a JSON design.
func (h *Handler) Design(w http.ResponseWriter, r *http.Request) {
	d, ok := ReadUpload(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d)
}

// Serve streams a design workbook, with results when sum is set.
func Serve(w http.ResponseWriter, d model.Design, sum *analysis.Summary) {
	f, err := Export(d, sum)
	if err != nil {
		log.WithError(err).Error("workbook export failed")
		http.Error(w, "Export error", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"design.xlsx\"")
	if _, err := f.WriteTo(w); err != nil {
		log.WithError(err).Warn("workbook write failed")
	}
}
