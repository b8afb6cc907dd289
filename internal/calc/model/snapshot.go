package model

import (
	"fmt"
	"math"
	"sort"
)

// Restrained marks a DOF removed by a support.
const Restrained = -1

// JointInfo is a joint in a Snapshot. DOF holds the global equation numbers
// of the x and y translations, or Restrained.
type JointInfo struct {
	ID      int
	X, Y    float64
	Support Support
	DOF     [2]int
}

// MemberInfo is a member in a Snapshot with its precomputed geometry.
// A and B are joint indices into Snapshot.Joints.
type MemberInfo struct {
	ID          int
	A, B        int
	Stock       Stock
	Material    Material
	Shape       Shape
	Length      float64
	Cos, Sin    float64
	Axial       float64 // E·A/L, kN/m
	Slenderness float64 // L/r
}

// Snapshot is an immutable, validated view of a design. Every analysis
// result refers to exactly one Snapshot.
type Snapshot struct {
	Joints     []JointInfo
	Members    []MemberInfo
	Conditions Conditions
	// Deck holds the indices of the loaded deck joints, left to right.
	Deck   []int
	NumDOF int

	index map[int]int
}

// JointIndex maps a joint ID to its index in Joints.
func (s *Snapshot) JointIndex(id int) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// DOFJoint maps an equation number back to its joint index and direction
// (0 for x, 1 for y).
func (s *Snapshot) DOFJoint(dof int) (joint, dir int, ok bool) {
	for i, j := range s.Joints {
		for d := 0; d < 2; d++ {
			if j.DOF[d] == dof {
				return i, d, true
			}
		}
	}
	return 0, 0, false
}

// Build validates a design against an inventory and numbers its degrees of
// freedom. Restrained translations are omitted from the equation system.
func Build(d Design, inv *Inventory) (*Snapshot, error) {
	if len(d.Joints) > MaxJoints {
		return nil, &ModelError{Kind: TooLarge, Detail: fmt.Sprintf("%d joints, limit %d", len(d.Joints), MaxJoints)}
	}
	if len(d.Members) > MaxMembers {
		return nil, &ModelError{Kind: TooLarge, Detail: fmt.Sprintf("%d members, limit %d", len(d.Members), MaxMembers)}
	}

	s := &Snapshot{
		Joints:     make([]JointInfo, len(d.Joints)),
		Members:    make([]MemberInfo, len(d.Members)),
		Conditions: d.Conditions.Normalized(),
		index:      make(map[int]int, len(d.Joints)),
	}
	s.Conditions.DeckJoints = append([]int(nil), d.Conditions.DeckJoints...)

	dof := 0
	for i, j := range d.Joints {
		if _, dup := s.index[j.ID]; dup {
			return nil, &ModelError{Kind: DuplicateJoint, Joint: j.ID}
		}
		if !j.Support.valid() {
			return nil, &ModelError{Kind: UnknownSupport, Joint: j.ID, Detail: string(j.Support)}
		}
		sup := j.Support
		if sup == "" {
			sup = Free
		}
		s.index[j.ID] = i
		info := JointInfo{ID: j.ID, X: j.X, Y: j.Y, Support: sup, DOF: [2]int{Restrained, Restrained}}
		if !sup.RestrainsX() {
			info.DOF[0] = dof
			dof++
		}
		if !sup.RestrainsY() {
			info.DOF[1] = dof
			dof++
		}
		s.Joints[i] = info
	}
	s.NumDOF = dof

	type pair struct{ a, b int }
	seen := make(map[pair]int, len(d.Members))
	ids := make(map[int]bool, len(d.Members))
	for i, m := range d.Members {
		if ids[m.ID] {
			return nil, &ModelError{Kind: DuplicateMember, Member: m.ID, Detail: "member ID reused"}
		}
		ids[m.ID] = true
		a, ok := s.index[m.A]
		if !ok {
			return nil, &ModelError{Kind: DanglingJoint, Member: m.ID, Joint: m.A}
		}
		b, ok := s.index[m.B]
		if !ok {
			return nil, &ModelError{Kind: DanglingJoint, Member: m.ID, Joint: m.B}
		}
		if a == b {
			return nil, &ModelError{Kind: SelfMember, Member: m.ID, Joint: m.A}
		}
		key := pair{a, b}
		if b < a {
			key = pair{b, a}
		}
		if other, dup := seen[key]; dup {
			return nil, &ModelError{Kind: DuplicateMember, Member: m.ID, Detail: fmt.Sprintf("same joints as member %d", other)}
		}
		seen[key] = m.ID

		mat, sh, err := inv.Resolve(m.Stock)
		if err != nil {
			return nil, &ModelError{Kind: UnknownStock, Member: m.ID, Detail: err.Error()}
		}
		ja, jb := s.Joints[a], s.Joints[b]
		dx, dy := jb.X-ja.X, jb.Y-ja.Y
		l := hypot(dx, dy)
		if l < deckTolerance {
			return nil, &ModelError{Kind: ZeroLength, Member: m.ID}
		}
		info := MemberInfo{
			ID:          m.ID,
			A:           a,
			B:           b,
			Stock:       m.Stock,
			Material:    mat,
			Shape:       sh,
			Length:      l,
			Cos:         dx / l,
			Sin:         dy / l,
			Axial:       mat.E * sh.Area / l,
			Slenderness: math.Inf(1),
		}
		if r := sh.RadiusOfGyration(); r > 0 {
			info.Slenderness = l / r
		}
		s.Members[i] = info
	}

	deck, err := s.findDeck()
	if err != nil {
		return nil, err
	}
	s.Deck = deck
	return s, nil
}

// findDeck resolves the loaded joints. An explicit list wins; otherwise one
// joint is required at every panel point along the deck elevation, starting
// from the leftmost joint at that elevation.
func (s *Snapshot) findDeck() ([]int, error) {
	c := s.Conditions
	if len(c.DeckJoints) > 0 {
		deck := make([]int, 0, len(c.DeckJoints))
		for _, id := range c.DeckJoints {
			i, ok := s.index[id]
			if !ok {
				return nil, &ModelError{Kind: MissingDeckJoint, Joint: id}
			}
			deck = append(deck, i)
		}
		sort.SliceStable(deck, func(a, b int) bool { return s.Joints[deck[a]].X < s.Joints[deck[b]].X })
		return deck, nil
	}
	if c.PanelCount <= 0 {
		return nil, nil
	}

	var level []int
	for i, j := range s.Joints {
		if math.Abs(j.Y-c.DeckElevation) < deckTolerance {
			level = append(level, i)
		}
	}
	if len(level) == 0 {
		return nil, &ModelError{Kind: MissingDeckJoint, Detail: fmt.Sprintf("no joint at deck elevation %g", c.DeckElevation)}
	}
	sort.SliceStable(level, func(a, b int) bool { return s.Joints[level[a]].X < s.Joints[level[b]].X })
	x0 := s.Joints[level[0]].X

	deck := make([]int, 0, c.PanelCount+1)
	for p := 0; p <= c.PanelCount; p++ {
		x := x0 + float64(p)*c.PanelLength
		found := -1
		for _, i := range level {
			if math.Abs(s.Joints[i].X-x) < deckTolerance {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, &ModelError{Kind: MissingDeckJoint, Detail: fmt.Sprintf("panel point %d at x=%g", p, x)}
		}
		deck = append(deck, found)
	}
	return deck, nil
}

// Design reconstructs the design the snapshot was built from.
func (s *Snapshot) Design() Design {
	d := Design{Conditions: s.Conditions}
	d.Conditions.DeckJoints = append([]int(nil), s.Conditions.DeckJoints...)
	d.Joints = make([]Joint, len(s.Joints))
	for i, j := range s.Joints {
		d.Joints[i] = Joint{ID: j.ID, X: j.X, Y: j.Y, Support: j.Support}
	}
	d.Members = make([]Member, len(s.Members))
	for i, m := range s.Members {
		d.Members[i] = Member{ID: m.ID, A: s.Joints[m.A].ID, B: s.Joints[m.B].ID, Stock: m.Stock}
	}
	return d
}
