// Package loads turns a design into factored dead loads and the sequence
// of moving truck load cases.
package loads

import (
	"errors"
	"fmt"

	"Trestle/internal/calc/model"
)

const (
	DeadLoadFactor = 1.35
	// LiveLoadFactor includes the 33% dynamic load allowance.
	LiveLoadFactor = 1.75 * 1.33
	Gravity        = 9.8066 // m/s²

	mediumDeckWeight = 120.265 // kN per panel point
	highDeckWeight   = 82.608
	wearingSurface   = 33.097

	DefaultSubdivisions = 4
)

var ErrNoDeck = errors.New("loads: design has no deck to carry the truck")

type Axle struct {
	Offset float64 `json:"offset_m"` // distance behind the front axle
	LoadKN float64 `json:"load_kn"`
}

type Truck struct {
	Name  string `json:"name"`
	Axles []Axle `json:"axles"`
}

// Length is the distance from the front to the rearmost axle.
func (t Truck) Length() float64 {
	l := 0.0
	for _, a := range t.Axles {
		if a.Offset > l {
			l = a.Offset
		}
	}
	return l
}

// TotalKN is the unfactored truck weight.
func (t Truck) TotalKN() float64 {
	w := 0.0
	for _, a := range t.Axles {
		w += a.LoadKN
	}
	return w
}

// TruckFor returns the design vehicle for a load type.
func TruckFor(lt model.LoadType) Truck {
	if lt == model.PermitTruck {
		return Truck{Name: "Heavy permit truck", Axles: []Axle{{0, 124}, {4, 124}}}
	}
	return Truck{Name: "Standard truck", Axles: []Axle{{0, 44}, {4, 181}}}
}

// DeckWeight returns the factored deck dead load at an interior deck joint.
func DeckWeight(dt model.DeckType, factor float64) float64 {
	if dt == model.HighStrengthDeck {
		return factor*highDeckWeight + wearingSurface
	}
	return factor*mediumDeckWeight + wearingSurface
}

// JointLoad is a force applied at a joint, in kN. Joint is the joint ID.
type JointLoad struct {
	Joint int     `json:"joint"`
	Fx    float64 `json:"fx"`
	Fy    float64 `json:"fy"`
}

// LoadCase is the complete set of joint forces for one truck position.
// Position is the front axle location in panels from the left deck joint.
type LoadCase struct {
	Index    int         `json:"index"`
	Position float64     `json:"position"`
	Loads    []JointLoad `json:"loads"`
}

type Options struct {
	Subdivisions   int
	DeadLoadFactor float64
	LiveLoadFactor float64
	Truck          *Truck // nil selects the vehicle from the load type
}

func DefaultOptions() Options {
	return Options{
		Subdivisions:   DefaultSubdivisions,
		DeadLoadFactor: DeadLoadFactor,
		LiveLoadFactor: LiveLoadFactor,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Subdivisions <= 0 {
		o.Subdivisions = d.Subdivisions
	}
	if o.DeadLoadFactor <= 0 {
		o.DeadLoadFactor = d.DeadLoadFactor
	}
	if o.LiveLoadFactor <= 0 {
		o.LiveLoadFactor = d.LiveLoadFactor
	}
	return o
}

// TruckOf returns the vehicle the options select for a snapshot.
func (o Options) TruckOf(s *model.Snapshot) Truck {
	if o.Truck != nil {
		return *o.Truck
	}
	return TruckFor(s.Conditions.LoadType)
}

// Positions lists the front axle positions in panels: every 1/sub of a
// panel from the left deck joint to the right one.
func Positions(panels, sub int) []float64 {
	if sub <= 0 {
		sub = DefaultSubdivisions
	}
	out := make([]float64, panels*sub+1)
	for k := range out {
		out[k] = float64(k) / float64(sub)
	}
	return out
}

// Generate builds one load case per truck position. Every case carries the
// factored dead load plus the factored truck.
func Generate(s *model.Snapshot, o Options) ([]LoadCase, error) {
	if len(s.Deck) < 2 {
		return nil, ErrNoDeck
	}
	o = o.normalized()
	truck := o.TruckOf(s)
	if len(truck.Axles) == 0 {
		return nil, fmt.Errorf("loads: truck %q has no axles", truck.Name)
	}

	dead := make([]float64, len(s.Joints))
	addDeadLoads(s, o, dead)

	panels := len(s.Deck) - 1
	pl := s.Conditions.PanelLength
	x0 := s.Joints[s.Deck[0]].X
	positions := Positions(panels, o.Subdivisions)
	cases := make([]LoadCase, len(positions))
	fy := make([]float64, len(s.Joints))
	for k, p := range positions {
		copy(fy, dead)
		front := x0 + p*pl
		for _, a := range truck.Axles {
			Apportion(s, front-a.Offset, -o.LiveLoadFactor*a.LoadKN, fy)
		}
		cases[k] = LoadCase{Index: k, Position: p, Loads: collect(s, fy)}
	}
	return cases, nil
}

// DeadLoads returns the factored self weight of members and deck.
func DeadLoads(s *model.Snapshot, o Options) []JointLoad {
	fy := make([]float64, len(s.Joints))
	addDeadLoads(s, o.normalized(), fy)
	return collect(s, fy)
}

func addDeadLoads(s *model.Snapshot, o Options, fy []float64) {
	for _, m := range s.Members {
		w := o.DeadLoadFactor * m.Shape.Area * m.Length * m.Material.Density * Gravity / 2 / 1000
		fy[m.A] -= w
		fy[m.B] -= w
	}
	if len(s.Deck) < 2 {
		return
	}
	w := DeckWeight(s.Conditions.DeckType, o.DeadLoadFactor)
	last := len(s.Deck) - 1
	for i, j := range s.Deck {
		if i == 0 || i == last {
			fy[j] -= w / 2
		} else {
			fy[j] -= w
		}
	}
}

// Apportion splits a vertical force at deck coordinate x between the two
// deck joints bracketing it, linearly by x. Forces off the deck are dropped.
func Apportion(s *model.Snapshot, x, f float64, fy []float64) {
	deck := s.Deck
	if len(deck) == 0 {
		return
	}
	const eps = 1e-9
	first, last := s.Joints[deck[0]].X, s.Joints[deck[len(deck)-1]].X
	if x < first-eps || x > last+eps {
		return
	}
	for i := 0; i+1 < len(deck); i++ {
		xa, xb := s.Joints[deck[i]].X, s.Joints[deck[i+1]].X
		if x > xb+eps && i+2 < len(deck) {
			continue
		}
		u := (x - xa) / (xb - xa)
		if u < 0 {
			u = 0
		} else if u > 1 {
			u = 1
		}
		fy[deck[i]] += (1 - u) * f
		fy[deck[i+1]] += u * f
		return
	}
	fy[deck[0]] += f
}

func collect(s *model.Snapshot, fy []float64) []JointLoad {
	var out []JointLoad
	for i, v := range fy {
		if v != 0 {
			out = append(out, JointLoad{Joint: s.Joints[i].ID, Fy: v})
		}
	}
	return out
}

type Input struct {
	Design       model.Design `json:"design"`
	Subdivisions int          `json:"subdivisions"`
}

type Result struct {
	Truck      Truck      `json:"truck"`
	DeadLoadKN float64    `json:"dead_load_kn"`
	LiveLoadKN float64    `json:"live_load_kn"` // factored truck weight
	Cases      []LoadCase `json:"cases"`
	Notes      string     `json:"notes"`
}

// Calculate generates the load cases of a design built from standard stock.
func Calculate(in Input) (Result, error) {
	s, err := model.Build(in.Design, model.StandardInventory())
	if err != nil {
		return Result{}, err
	}
	o := DefaultOptions()
	if in.Subdivisions > 0 {
		o.Subdivisions = in.Subdivisions
	}
	cases, err := Generate(s, o)
	if err != nil {
		return Result{}, err
	}
	truck := o.TruckOf(s)
	res := Result{
		Truck:      truck,
		LiveLoadKN: o.LiveLoadFactor * truck.TotalKN(),
		Cases:      cases,
		Notes:      fmt.Sprintf("Dead load factor %.2f, live load factor %.4f including impact.", o.DeadLoadFactor, o.LiveLoadFactor),
	}
	for _, l := range DeadLoads(s, o) {
		res.DeadLoadKN -= l.Fy
	}
	return res, nil
}
