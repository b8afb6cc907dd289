package model

import (
	"fmt"
	"math"
)

// Material is a structural steel grade. E and Fy are in kPa, density in kg/m³.
type Material struct {
	Name    string             `json:"name"`
	Short   string             `json:"short"`
	E       float64            `json:"e_kpa"`
	Fy      float64            `json:"fy_kpa"`
	Density float64            `json:"density"`
	Cost    map[string]float64 `json:"cost"` // $ per kg, keyed by section short name
}

// Shape is one size of a cross section. Area is in m², Moment in m⁴.
type Shape struct {
	Section   string  `json:"section"`
	Size      int     `json:"size"`
	Name      string  `json:"name"`
	Width     float64 `json:"width_mm"`
	Thickness float64 `json:"thickness_mm,omitempty"`
	Area      float64 `json:"area_m2"`
	Moment    float64 `json:"moment_m4"`
}

// RadiusOfGyration returns sqrt(I/A) in metres.
func (s Shape) RadiusOfGyration() float64 {
	if s.Area <= 0 {
		return 0
	}
	return math.Sqrt(s.Moment / s.Area)
}

type CrossSection struct {
	Name   string  `json:"name"`
	Short  string  `json:"short"`
	Shapes []Shape `json:"shapes"`
}

// Inventory is the stock catalogue members draw from.
type Inventory struct {
	Materials []Material     `json:"materials"`
	Sections  []CrossSection `json:"sections"`
}

var standardWidths = []int{
	30, 35, 40, 45, 50, 55, 60, 65, 70, 75, 80, 90, 100, 110, 120, 130, 140,
	150, 160, 170, 180, 190, 200, 220, 240, 260, 280, 300, 320, 340, 360, 400, 500,
}

// DefaultStockSize is the 120 mm size.
const DefaultStockSize = 14

// StandardInventory returns the catalogue of carbon, high-strength low-alloy
// and quenched and tempered steels in solid bar and hollow tube sections.
func StandardInventory() *Inventory {
	return &Inventory{
		Materials: []Material{
			{Name: "Carbon Steel", Short: "CS", E: 200e6, Fy: 250000, Density: 7850,
				Cost: map[string]float64{"Bar": 4.30, "Tube": 6.30}},
			{Name: "High-Strength Low-Alloy Steel", Short: "HSS", E: 200e6, Fy: 345000, Density: 7850,
				Cost: map[string]float64{"Bar": 5.60, "Tube": 7.00}},
			{Name: "Quenched & Tempered Steel", Short: "QTS", E: 200e6, Fy: 485000, Density: 7850,
				Cost: map[string]float64{"Bar": 6.00, "Tube": 7.70}},
		},
		Sections: []CrossSection{
			{Name: "Solid Bar", Short: "Bar", Shapes: barShapes()},
			{Name: "Hollow Tube", Short: "Tube", Shapes: tubeShapes()},
		},
	}
}

func barShapes() []Shape {
	out := make([]Shape, len(standardWidths))
	for i, w := range standardWidths {
		fw := float64(w)
		out[i] = Shape{
			Section: "Bar",
			Size:    i,
			Name:    fmt.Sprintf("%dx%d", w, w),
			Width:   fw,
			Area:    fw * fw * 1e-6,
			Moment:  math.Pow(fw, 4) / 12 * 1e-12,
		}
	}
	return out
}

func tubeShapes() []Shape {
	out := make([]Shape, len(standardWidths))
	for i, w := range standardWidths {
		t := w / 20
		if t < 2 {
			t = 2
		}
		fw, ft := float64(w), float64(t)
		inner := fw - 2*ft
		out[i] = Shape{
			Section:   "Tube",
			Size:      i,
			Name:      fmt.Sprintf("%dx%dx%d", w, w, t),
			Width:     fw,
			Thickness: ft,
			Area:      (fw*fw - inner*inner) * 1e-6,
			Moment:    (math.Pow(fw, 4) - math.Pow(inner, 4)) / 12 * 1e-12,
		}
	}
	return out
}

// Material looks up a material by short name.
func (inv *Inventory) Material(short string) (Material, bool) {
	for _, m := range inv.Materials {
		if m.Short == short {
			return m, true
		}
	}
	return Material{}, false
}

// Shape looks up a size of the named section.
func (inv *Inventory) Shape(section string, size int) (Shape, bool) {
	for _, cs := range inv.Sections {
		if cs.Short != section {
			continue
		}
		if size < 0 || size >= len(cs.Shapes) {
			return Shape{}, false
		}
		return cs.Shapes[size], true
	}
	return Shape{}, false
}

// Resolve returns the material and shape a stock refers to.
func (inv *Inventory) Resolve(s Stock) (Material, Shape, error) {
	m, ok := inv.Material(s.Material)
	if !ok {
		return Material{}, Shape{}, fmt.Errorf("unknown material %q", s.Material)
	}
	sh, ok := inv.Shape(s.Section, s.Size)
	if !ok {
		return Material{}, Shape{}, fmt.Errorf("unknown shape %s/%d", s.Section, s.Size)
	}
	return m, sh, nil
}

// DefaultStock is used when no member provides a better choice.
func (inv *Inventory) DefaultStock() Stock {
	s := Stock{Size: DefaultStockSize}
	if len(inv.Materials) > 0 {
		s.Material = inv.Materials[0].Short
	}
	if len(inv.Sections) > 0 {
		cs := inv.Sections[len(inv.Sections)-1]
		s.Section = cs.Short
		if s.Size >= len(cs.Shapes) {
			s.Size = len(cs.Shapes) - 1
		}
	}
	return s
}
