package model

import "math"

// NewDeck returns a design holding only the deck joints for the given
// conditions: a pin at the left abutment and an x-roller at the right.
func NewDeck(name string, c Conditions) Design {
	c = c.Normalized()
	d := Design{Name: name, Conditions: c}
	for p := 0; p <= c.PanelCount; p++ {
		sup := Free
		switch p {
		case 0:
			sup = Pin
		case c.PanelCount:
			sup = RollerX
		}
		d.Joints = append(d.Joints, Joint{
			ID:      p + 1,
			X:       float64(p) * c.PanelLength,
			Y:       c.DeckElevation,
			Support: sup,
		})
	}
	return d
}

// PrattTruss returns a through truss of the given height over the deck: a
// top chord joint above every deck joint, verticals at each panel point and
// diagonals sloping down toward midspan.
func PrattTruss(name string, c Conditions, height float64, stock Stock) Design {
	d := NewDeck(name, c)
	c = d.Conditions
	n := c.PanelCount
	top := func(p int) int { return n + 2 + p }
	for p := 0; p <= n; p++ {
		d.Joints = append(d.Joints, Joint{
			ID: top(p),
			X:  float64(p) * c.PanelLength,
			Y:  c.DeckElevation + height,
		})
	}
	add := func(a, b int) {
		d.Members = append(d.Members, Member{ID: len(d.Members) + 1, A: a, B: b, Stock: stock})
	}
	for p := 0; p < n; p++ {
		add(p+1, p+2)
	}
	for p := 0; p < n; p++ {
		add(top(p), top(p+1))
	}
	for p := 0; p <= n; p++ {
		add(p+1, top(p))
	}
	for p := 0; p < n; p++ {
		if 2*p < n {
			add(top(p), p+2)
		} else {
			add(p+1, top(p+1))
		}
	}
	return d
}

// TranssectedJoints returns the IDs of joints lying strictly inside the
// segment between joints a and b.
func TranssectedJoints(d Design, a, b int) []int {
	ja, ok := d.Joint(a)
	if !ok {
		return nil
	}
	jb, ok := d.Joint(b)
	if !ok {
		return nil
	}
	var out []int
	for _, j := range d.Joints {
		if j.ID == a || j.ID == b {
			continue
		}
		if onSegment(ja.X, ja.Y, jb.X, jb.Y, j.X, j.Y) {
			out = append(out, j.ID)
		}
	}
	return out
}

func onSegment(ax, ay, bx, by, px, py float64) bool {
	dx, dy := bx-ax, by-ay
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return false
	}
	t := ((px-ax)*dx + (py-ay)*dy) / l2
	if t <= 0 || t >= 1 {
		return false
	}
	cross := (px-ax)*dy - (py-ay)*dx
	return math.Abs(cross)/math.Sqrt(l2) < deckTolerance
}
