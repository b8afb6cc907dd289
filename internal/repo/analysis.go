package repo

import (
	"fmt"
	"strconv"

	"Trestle/internal/calc/analysis"
)

// StoredRatio is one member's governing ratios as persisted: ASCII decimal
// strings rounded to two places.
type StoredRatio struct {
	ID          int    `json:"id"`
	Compression string `json:"compression"`
	Tension     string `json:"tension"`
}

// StoredAnalysis is the persisted outline of an analysis. Rounding makes it
// unfit for a pass/fail decision, so every loaded value is Provisional and
// the design must be analyzed again before its status is trusted.
type StoredAnalysis struct {
	Version     uint64        `json:"version"`
	Status      string        `json:"status"`
	Passing     bool          `json:"passing"`
	Provisional bool          `json:"provisional"`
	Members     []StoredRatio `json:"members"`
}

// EncodeAnalysis rounds a summary for storage.
func EncodeAnalysis(sum *analysis.Summary) StoredAnalysis {
	a := StoredAnalysis{
		Version: sum.Version,
		Status:  string(sum.Status),
		Passing: sum.Passing,
		Members: make([]StoredRatio, len(sum.Members)),
	}
	for i, m := range sum.Members {
		a.Members[i] = StoredRatio{
			ID:          m.ID,
			Compression: strconv.FormatFloat(m.CompressionRatio, 'f', 2, 64),
			Tension:     strconv.FormatFloat(m.TensionRatio, 'f', 2, 64),
		}
	}
	return a
}

// Ratios parses the stored ratios back, keyed by member ID.
func (a StoredAnalysis) Ratios() (compression, tension map[int]float64, err error) {
	compression = make(map[int]float64, len(a.Members))
	tension = make(map[int]float64, len(a.Members))
	for _, m := range a.Members {
		c, err := strconv.ParseFloat(m.Compression, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("member %d compression: %w", m.ID, err)
		}
		t, err := strconv.ParseFloat(m.Tension, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("member %d tension: %w", m.ID, err)
		}
		compression[m.ID], tension[m.ID] = c, t
	}
	return compression, tension, nil
}
