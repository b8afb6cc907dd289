// Package model holds the editable truss design and the immutable,
// analysis-ready snapshot built from it.
package model

import "math"

// Support is the boundary condition of a joint.
type Support string

const (
	Free    Support = "free"
	Pin     Support = "pin"
	RollerX Support = "roller_x" // slides along x, y restrained
	RollerY Support = "roller_y" // slides along y, x restrained
)

// RestrainsX reports whether the support removes the x translation.
func (s Support) RestrainsX() bool { return s == Pin || s == RollerY }

// RestrainsY reports whether the support removes the y translation.
func (s Support) RestrainsY() bool { return s == Pin || s == RollerX }

func (s Support) valid() bool {
	switch s {
	case Free, Pin, RollerX, RollerY, "":
		return true
	}
	return false
}

type LoadType string

const (
	StandardTruck LoadType = "standard"
	PermitTruck   LoadType = "permit"
)

type DeckType string

const (
	MediumStrengthDeck DeckType = "medium"
	HighStrengthDeck   DeckType = "high"
)

const (
	PanelLength    = 4.0   // m
	MaxSlenderness = 300.0 // default allowable L/r
	MaxJoints      = 100
	MaxMembers     = 200

	deckTolerance = 1e-6 // m
)

// Joint is a connection point. Positions are in metres.
type Joint struct {
	ID      int     `json:"id" yaml:"id"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Support Support `json:"support,omitempty" yaml:"support,omitempty"`
}

// Stock identifies a material, cross section and size in an Inventory.
type Stock struct {
	Material string `json:"material" yaml:"material"` // short name, e.g. "CS"
	Section  string `json:"section" yaml:"section"`   // short name, "Bar" or "Tube"
	Size     int    `json:"size" yaml:"size"`         // size index within the section
}

// Member is a straight two-force bar between joints A and B (joint IDs).
type Member struct {
	ID    int   `json:"id" yaml:"id"`
	A     int   `json:"a" yaml:"a"`
	B     int   `json:"b" yaml:"b"`
	Stock Stock `json:"stock" yaml:"stock"`
}

// Conditions are the site and loading conditions of a design.
type Conditions struct {
	PanelCount           int      `json:"panel_count" yaml:"panel_count"`
	PanelLength          float64  `json:"panel_length,omitempty" yaml:"panel_length,omitempty"`
	DeckElevation        float64  `json:"deck_elevation" yaml:"deck_elevation"`
	LoadType             LoadType `json:"load_type,omitempty" yaml:"load_type,omitempty"`
	DeckType             DeckType `json:"deck_type,omitempty" yaml:"deck_type,omitempty"`
	AllowableSlenderness float64  `json:"allowable_slenderness,omitempty" yaml:"allowable_slenderness,omitempty"`
	// DeckJoints lists the loaded joints left to right. When empty they are
	// found at the panel points along the deck elevation.
	DeckJoints []int `json:"deck_joints,omitempty" yaml:"deck_joints,omitempty"`
}

// Normalized returns a copy with defaults filled in.
func (c Conditions) Normalized() Conditions {
	if c.PanelLength <= 0 {
		c.PanelLength = PanelLength
	}
	if c.LoadType == "" {
		c.LoadType = StandardTruck
	}
	if c.DeckType == "" {
		c.DeckType = MediumStrengthDeck
	}
	if c.AllowableSlenderness <= 0 {
		c.AllowableSlenderness = MaxSlenderness
	}
	return c
}

// SpanLength is the deck length in metres.
func (c Conditions) SpanLength() float64 {
	return float64(c.PanelCount) * c.Normalized().PanelLength
}

// Design is the externally owned editable structure.
type Design struct {
	Name       string     `json:"name" yaml:"name"`
	Conditions Conditions `json:"conditions" yaml:"conditions"`
	Joints     []Joint    `json:"joints" yaml:"joints"`
	Members    []Member   `json:"members" yaml:"members"`
}

// Clone returns a deep copy so callers can hand out read-only views.
func (d Design) Clone() Design {
	c := d
	c.Conditions.DeckJoints = append([]int(nil), d.Conditions.DeckJoints...)
	c.Joints = append([]Joint(nil), d.Joints...)
	c.Members = append([]Member(nil), d.Members...)
	return c
}

// Joint returns the joint with the given ID.
func (d Design) Joint(id int) (Joint, bool) {
	for _, j := range d.Joints {
		if j.ID == id {
			return j, true
		}
	}
	return Joint{}, false
}

// Connected reports whether a member already joins a and b.
func (d Design) Connected(a, b int) bool {
	for _, m := range d.Members {
		if (m.A == a && m.B == b) || (m.A == b && m.B == a) {
			return true
		}
	}
	return false
}

// NextMemberID returns an ID not used by any member.
func (d Design) NextMemberID() int {
	id := 0
	for _, m := range d.Members {
		if m.ID > id {
			id = m.ID
		}
	}
	return id + 1
}

// MostCommonStock returns the stock used by the most members, ties going to
// the stock seen first. ok is false for a design without members.
func (d Design) MostCommonStock() (Stock, bool) {
	counts := make(map[Stock]int)
	var best Stock
	n := 0
	for _, m := range d.Members {
		counts[m.Stock]++
		if c := counts[m.Stock]; c > n {
			best, n = m.Stock, c
		}
	}
	return best, n > 0
}

func hypot(x, y float64) float64 { return math.Sqrt(x*x + y*y) }
