package model

import (
	"errors"
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func triangle() Design {
	st := Stock{Material: "CS", Section: "Tube", Size: DefaultStockSize}
	return Design{
		Name: "triangle",
		Joints: []Joint{
			{ID: 1, X: 0, Y: 0, Support: Pin},
			{ID: 2, X: 1, Y: 1},
			{ID: 3, X: 2, Y: 0, Support: RollerX},
		},
		Members: []Member{
			{ID: 1, A: 1, B: 2, Stock: st},
			{ID: 2, A: 2, B: 3, Stock: st},
			{ID: 3, A: 1, B: 3, Stock: st},
		},
	}
}

func Test_inventory01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("inventory01. bar and tube properties")

	inv := StandardInventory()
	bar, ok := inv.Shape("Bar", 0)
	if !ok {
		tst.Fatalf("bar size 0 missing")
	}
	chk.String(tst, bar.Name, "30x30")
	chk.Float64(tst, "bar area", 1e-15, bar.Area, 9e-4)
	chk.Float64(tst, "bar moment", 1e-20, bar.Moment, 30*30*30*30/12.0*1e-12)

	tube, _ := inv.Shape("Tube", DefaultStockSize)
	chk.String(tst, tube.Name, "120x120x6")
	chk.Float64(tst, "tube area", 1e-15, tube.Area, (120*120-108*108)*1e-6)
	chk.Float64(tst, "tube r", 1e-12, tube.RadiusOfGyration(), math.Sqrt(tube.Moment/tube.Area))

	small, _ := inv.Shape("Tube", 0)
	chk.Float64(tst, "min wall", 0, small.Thickness, 2)

	if _, ok := inv.Shape("Tube", 33); ok {
		tst.Errorf("size 33 should not exist")
	}
	if _, _, err := inv.Resolve(Stock{Material: "XX", Section: "Bar"}); err == nil {
		tst.Errorf("unknown material should fail")
	}
	chk.Int(tst, "bar sizes", len(inv.Sections[0].Shapes), 33)
}

func Test_snapshot01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("snapshot01. dof numbering and geometry")

	s, err := Build(triangle(), StandardInventory())
	if err != nil {
		tst.Fatalf("build failed: %v", err)
	}
	// pin: none, free: 0,1, roller_x: x only
	chk.Int(tst, "ndof", s.NumDOF, 3)
	chk.Ints(tst, "pin dofs", s.Joints[0].DOF[:], []int{Restrained, Restrained})
	chk.Ints(tst, "free dofs", s.Joints[1].DOF[:], []int{0, 1})
	chk.Ints(tst, "roller dofs", s.Joints[2].DOF[:], []int{2, Restrained})

	m := s.Members[0]
	chk.Float64(tst, "length", 1e-15, m.Length, math.Sqrt2)
	chk.Float64(tst, "cos", 1e-15, m.Cos, 1/math.Sqrt2)
	chk.Float64(tst, "axial", 1e-6, m.Axial, m.Material.E*m.Shape.Area/math.Sqrt2)
	chk.Float64(tst, "slenderness", 1e-9, m.Slenderness, math.Sqrt2/m.Shape.RadiusOfGyration())

	j, dir, ok := s.DOFJoint(2)
	if !ok {
		tst.Fatalf("dof 2 not found")
	}
	chk.Int(tst, "dof 2 joint", j, 2)
	chk.Int(tst, "dof 2 dir", dir, 0)

	back := s.Design()
	chk.Int(tst, "round trip members", len(back.Members), 3)
	chk.Int(tst, "member b", back.Members[1].B, 3)
}

func Test_snapshot02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("snapshot02. malformed structures")

	inv := StandardInventory()
	cases := []struct {
		name string
		edit func(d *Design)
		kind ErrorKind
	}{
		{"dangling", func(d *Design) { d.Members[0].B = 9 }, DanglingJoint},
		{"self", func(d *Design) { d.Members[0].B = 1 }, SelfMember},
		{"zero length", func(d *Design) { d.Joints[1].X, d.Joints[1].Y = 0, 0 }, ZeroLength},
		{"duplicate", func(d *Design) { d.Members[2].A, d.Members[2].B = 2, 1 }, DuplicateMember},
		{"duplicate id", func(d *Design) { d.Members[2].ID = 1 }, DuplicateMember},
		{"joint id", func(d *Design) { d.Joints[2].ID = 1 }, DuplicateJoint},
		{"support", func(d *Design) { d.Joints[0].Support = "fixed" }, UnknownSupport},
		{"stock", func(d *Design) { d.Members[0].Stock.Size = 99 }, UnknownStock},
		{"deck", func(d *Design) { d.Conditions.PanelCount = 3 }, MissingDeckJoint},
	}
	for _, c := range cases {
		d := triangle()
		c.edit(&d)
		_, err := Build(d, inv)
		var me *ModelError
		if !errors.As(err, &me) {
			tst.Errorf("%s: expected ModelError, got %v", c.name, err)
			continue
		}
		if me.Kind != c.kind {
			tst.Errorf("%s: kind %q, want %q", c.name, me.Kind, c.kind)
		}
	}

	big := Design{}
	for i := 0; i <= MaxJoints; i++ {
		big.Joints = append(big.Joints, Joint{ID: i + 1, X: float64(i)})
	}
	var me *ModelError
	if _, err := Build(big, inv); !errors.As(err, &me) || me.Kind != TooLarge {
		tst.Errorf("expected TooLarge, got %v", err)
	}
}

func Test_deck01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("deck01. deck joints and templates")

	c := Conditions{PanelCount: 4, DeckElevation: 2}
	st := Stock{Material: "CS", Section: "Tube", Size: DefaultStockSize}
	d := PrattTruss("pratt", c, 4, st)
	chk.Int(tst, "joints", len(d.Joints), 10)
	chk.Int(tst, "members", len(d.Members), 17)

	s, err := Build(d, StandardInventory())
	if err != nil {
		tst.Fatalf("build: %v", err)
	}
	chk.Ints(tst, "deck", s.Deck, []int{0, 1, 2, 3, 4})
	chk.Int(tst, "ndof", s.NumDOF, 17)

	// explicit list is sorted by x
	d.Conditions.DeckJoints = []int{3, 1, 2}
	s, err = Build(d, StandardInventory())
	if err != nil {
		tst.Fatalf("build: %v", err)
	}
	chk.Ints(tst, "explicit deck", s.Deck, []int{0, 1, 2})

	chk.Ints(tst, "transsected", TranssectedJoints(d, 1, 5), []int{2, 3, 4})
	if got := TranssectedJoints(d, 1, 7); len(got) != 0 {
		tst.Errorf("diagonal crosses no joints, got %v", got)
	}

	st2, ok := d.MostCommonStock()
	if !ok || st2 != st {
		tst.Errorf("most common stock %v", st2)
	}
	chk.Int(tst, "next id", d.NextMemberID(), 18)
}
