// Package column rates a single pin-ended member in tension and compression.
package column

import (
	"fmt"
	"math"

	"Trestle/internal/calc/model"
)

const (
	TensionResistanceFactor     = 0.95
	CompressionResistanceFactor = 0.90
	inelasticLimit              = 2.25
)

// TensileStrength returns φt·Fy·A in kN.
func TensileStrength(m model.Material, s model.Shape) float64 {
	return TensionResistanceFactor * m.Fy * s.Area
}

// BucklingParameter returns λ = L²·Fy·A / (π²·E·I).
func BucklingParameter(m model.Material, s model.Shape, length float64) float64 {
	return length * length * m.Fy * s.Area / (math.Pi * math.Pi * m.E * s.Moment)
}

// CompressiveStrength returns the factored compressive capacity in kN:
// inelastic buckling 0.66^λ·Fy·A up to λ = 2.25, elastic 0.88·Fy·A/λ beyond.
func CompressiveStrength(m model.Material, s model.Shape, length float64) float64 {
	lambda := BucklingParameter(m, s, length)
	if lambda <= inelasticLimit {
		return CompressionResistanceFactor * math.Pow(0.66, lambda) * m.Fy * s.Area
	}
	return CompressionResistanceFactor * 0.88 * m.Fy * s.Area / lambda
}

// Slenderness returns L/r.
func Slenderness(s model.Shape, length float64) float64 {
	r := s.RadiusOfGyration()
	if r == 0 {
		return math.Inf(1)
	}
	return length / r
}

type Input struct {
	Material string  `json:"material"`
	Section  string  `json:"section"`
	Size     int     `json:"size"`
	LengthM  float64 `json:"length_m"`
	ForceKN  float64 `json:"force_kn"` // tension positive
	MaxLR    float64 `json:"max_slenderness"`
}

type Result struct {
	Shape                 string  `json:"shape"`
	AreaM2                float64 `json:"area_m2"`
	MomentM4              float64 `json:"moment_m4"`
	RadiusM               float64 `json:"radius_of_gyration_m"`
	Slenderness           float64 `json:"slenderness"`
	Lambda                float64 `json:"lambda"`
	CompressiveStrengthKN float64 `json:"compressive_strength_kn"`
	TensileStrengthKN     float64 `json:"tensile_strength_kn"`
	Ratio                 float64 `json:"ratio"` // -1 full compression .. +1 full tension
	SlendernessOK         bool    `json:"slenderness_ok"`
	OK                    bool    `json:"ok"`
	Notes                 string  `json:"notes"`
}

// Calculate rates a member of standard stock.
func Calculate(in Input) (Result, error) {
	return CalculateWith(model.StandardInventory(), in)
}

func CalculateWith(inv *model.Inventory, in Input) (Result, error) {
	if in.LengthM <= 0 {
		return Result{}, fmt.Errorf("invalid length %g", in.LengthM)
	}
	if in.MaxLR <= 0 {
		in.MaxLR = model.MaxSlenderness
	}
	mat, sh, err := inv.Resolve(model.Stock{Material: in.Material, Section: in.Section, Size: in.Size})
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Shape:                 sh.Name,
		AreaM2:                sh.Area,
		MomentM4:              sh.Moment,
		RadiusM:               sh.RadiusOfGyration(),
		Slenderness:           Slenderness(sh, in.LengthM),
		Lambda:                BucklingParameter(mat, sh, in.LengthM),
		CompressiveStrengthKN: CompressiveStrength(mat, sh, in.LengthM),
		TensileStrengthKN:     TensileStrength(mat, sh),
	}
	res.Ratio = Ratio(in.ForceKN, res.CompressiveStrengthKN, res.TensileStrengthKN)
	res.SlendernessOK = res.Slenderness <= in.MaxLR
	res.OK = res.SlendernessOK && math.Abs(res.Ratio) <= 1
	switch {
	case !res.SlendernessOK:
		res.Notes = "Member is too slender."
	case res.Lambda > inelasticLimit:
		res.Notes = "Elastic buckling governs compression."
	default:
		res.Notes = "Inelastic buckling governs compression."
	}
	return res, nil
}

// Ratio maps a signed axial force onto the capacity scale where -1 is full
// compressive and +1 full tensile strength.
func Ratio(force, compressive, tensile float64) float64 {
	switch {
	case force > 0:
		return force / tensile
	case force < 0:
		return force / compressive
	}
	return 0
}
