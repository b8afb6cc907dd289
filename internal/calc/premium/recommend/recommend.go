package recommend

import (
	"fmt"

	"Trestle/internal/calc/column"
	"Trestle/internal/calc/model"
)

// StockInput asks for the lightest size of one material and section that
// carries the given forces over the given length.
type StockInput struct {
	Material      string  `json:"material"`
	Section       string  `json:"section"`
	LengthM       float64 `json:"length_m"`
	CompressionKN float64 `json:"compression_kn"` // magnitude
	TensionKN     float64 `json:"tension_kn"`
	MaxLR         float64 `json:"max_slenderness"`
}

type StockResult struct {
	Stock                 model.Stock `json:"stock"`
	Shape                 string      `json:"shape"`
	CompressiveStrengthKN float64     `json:"compressive_strength_kn"`
	TensileStrengthKN     float64     `json:"tensile_strength_kn"`
	Slenderness           float64     `json:"slenderness"`
	Notes                 string      `json:"notes"`
}

// Stock walks the sizes of a section from the smallest up and returns the
// first one with both ratios at most 1 and acceptable slenderness.
func Stock(inv *model.Inventory, in StockInput) (StockResult, error) {
	if in.LengthM <= 0 {
		return StockResult{}, fmt.Errorf("invalid length %g", in.LengthM)
	}
	if in.CompressionKN < 0 || in.TensionKN < 0 {
		return StockResult{}, fmt.Errorf("forces are magnitudes")
	}
	if in.MaxLR <= 0 {
		in.MaxLR = model.MaxSlenderness
	}
	mat, ok := inv.Material(in.Material)
	if !ok {
		return StockResult{}, fmt.Errorf("unknown material %q", in.Material)
	}
	for size := 0; ; size++ {
		sh, ok := inv.Shape(in.Section, size)
		if !ok {
			if size == 0 {
				return StockResult{}, fmt.Errorf("unknown section %q", in.Section)
			}
			return StockResult{}, fmt.Errorf("no %s %s size carries %.1f kN compression and %.1f kN tension over %.2f m",
				in.Material, in.Section, in.CompressionKN, in.TensionKN, in.LengthM)
		}
		lr := column.Slenderness(sh, in.LengthM)
		pc := column.CompressiveStrength(mat, sh, in.LengthM)
		pt := column.TensileStrength(mat, sh)
		if lr > in.MaxLR || in.CompressionKN > pc || in.TensionKN > pt {
			continue
		}
		return StockResult{
			Stock:                 model.Stock{Material: in.Material, Section: in.Section, Size: size},
			Shape:                 sh.Name,
			CompressiveStrengthKN: pc,
			TensileStrengthKN:     pt,
			Slenderness:           lr,
			Notes:                 "Smallest size of the section that passes.",
		}, nil
	}
}
