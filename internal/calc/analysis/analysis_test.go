package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cpmech/gosl/chk"

	"Trestle/internal/calc/loads"
	"Trestle/internal/calc/model"
)

var (
	tube = model.Stock{Material: "CS", Section: "Tube", Size: model.DefaultStockSize}
	bar  = model.Stock{Material: "CS", Section: "Bar", Size: 0}
)

func build(tst *testing.T, d model.Design) *model.Snapshot {
	s, err := model.Build(d, model.StandardInventory())
	if err != nil {
		tst.Fatalf("build: %v", err)
	}
	return s
}

func analyze(tst *testing.T, d model.Design, lc ...loads.LoadCase) *Summary {
	sum, err := Analyze(context.Background(), build(tst, d), lc, DefaultOptions())
	if err != nil {
		tst.Fatalf("analyze: %v", err)
	}
	return sum
}

func point(joint int, fx, fy float64) loads.LoadCase {
	return loads.LoadCase{Loads: []loads.JointLoad{{Joint: joint, Fx: fx, Fy: fy}}}
}

func reaction(tst *testing.T, r Result, joint int) Reaction {
	for _, re := range r.Reactions {
		if re.Joint == joint {
			return re
		}
	}
	tst.Fatalf("no reaction at joint %d", joint)
	return Reaction{}
}

func apex(second model.Support, closed bool) model.Design {
	d := model.Design{
		Joints: []model.Joint{
			{ID: 1, X: 0, Y: 0, Support: model.Pin},
			{ID: 2, X: 1, Y: 1},
			{ID: 3, X: 2, Y: 0, Support: second},
		},
		Members: []model.Member{
			{ID: 1, A: 1, B: 2, Stock: tube},
			{ID: 2, A: 2, B: 3, Stock: tube},
		},
	}
	if closed {
		d.Members = append(d.Members, model.Member{ID: 3, A: 1, B: 3, Stock: tube})
	}
	return d
}

func Test_scenario01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("scenario01. three joints, unit load at the apex")

	// two members on two pins
	sum := analyze(tst, apex(model.Pin, false), point(2, 0, -1))
	chk.String(tst, string(sum.Status), string(Passing))
	r := sum.Results[0]
	chk.Float64(tst, "N1", 1e-9, r.Forces[0], -1/math.Sqrt2)
	chk.Float64(tst, "N2", 1e-9, r.Forces[1], -1/math.Sqrt2)
	ra, rc := reaction(tst, r, 1), reaction(tst, r, 3)
	chk.Float64(tst, "Ay", 1e-9, ra.Fy, 0.5)
	chk.Float64(tst, "Cy", 1e-9, rc.Fy, 0.5)
	chk.Float64(tst, "Ax", 1e-9, ra.Fx, 0.5)
	chk.Float64(tst, "Cx", 1e-9, rc.Fx, -0.5)

	// two members on a pin and a roller form a mechanism
	sum = analyze(tst, apex(model.RollerX, false), point(2, 0, -1))
	chk.String(tst, string(sum.Status), string(Unstable))
	chk.String(tst, string(sum.Results[0].Status), string(CaseUnstable))
	if sum.Results[0].Forces != nil {
		tst.Errorf("unstable case exposes forces")
	}

	// closing the triangle restores stability
	sum = analyze(tst, apex(model.RollerX, true), point(2, 0, -1))
	r = sum.Results[0]
	chk.Float64(tst, "AB", 1e-9, r.Forces[0], -1/math.Sqrt2)
	chk.Float64(tst, "BC", 1e-9, r.Forces[1], -1/math.Sqrt2)
	chk.Float64(tst, "AC", 1e-9, r.Forces[2], 0.5)
	ra, rc = reaction(tst, r, 1), reaction(tst, r, 3)
	chk.Float64(tst, "Ay", 1e-9, ra.Fy, 0.5)
	chk.Float64(tst, "Cy", 1e-9, rc.Fy, 0.5)
	chk.Float64(tst, "Ax", 1e-9, ra.Fx, 0)
	chk.Float64(tst, "roller has no x reaction", 0, rc.Fx, 0)
	chk.Float64(tst, "free joint has no motion at pin", 0, r.Displacements[0], 0)
	if r.Displacements[3] >= 0 {
		tst.Errorf("apex should move down, got %g", r.Displacements[3])
	}
}

func Test_equilibrium01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("equilibrium01. reactions balance every load case")

	d := model.PrattTruss("pratt", model.Conditions{PanelCount: 5, DeckElevation: 0}, 4, tube)
	s := build(tst, d)
	opts := DefaultOptions()
	cases, err := loads.Generate(s, opts.Loads)
	if err != nil {
		tst.Fatalf("generate: %v", err)
	}
	sum, err := Analyze(context.Background(), s, cases, opts)
	if err != nil {
		tst.Fatalf("analyze: %v", err)
	}
	chk.Int(tst, "results", len(sum.Results), len(cases))
	for i, r := range sum.Results {
		fx, fy, m := 0.0, 0.0, 0.0
		add := func(joint int, x, y float64) {
			j, _ := s.JointIndex(joint)
			fx += x
			fy += y
			m += s.Joints[j].X*y - s.Joints[j].Y*x
		}
		for _, l := range cases[i].Loads {
			add(l.Joint, l.Fx, l.Fy)
		}
		for _, re := range r.Reactions {
			add(re.Joint, re.Fx, re.Fy)
		}
		chk.Float64(tst, "ΣFx", 1e-6, fx, 0)
		chk.Float64(tst, "ΣFy", 1e-6, fy, 0)
		chk.Float64(tst, "ΣM", 1e-5, m, 0)
	}
}

// methodOfJoints solves the joint equilibrium equations of a statically
// determinate truss directly: unknowns are member forces then reactions.
func methodOfJoints(tst *testing.T, s *model.Snapshot, lc loads.LoadCase) []float64 {
	nm := len(s.Members)
	type rdof struct{ j, k int }
	var rs []rdof
	for i, j := range s.Joints {
		if j.Support.RestrainsX() {
			rs = append(rs, rdof{i, 0})
		}
		if j.Support.RestrainsY() {
			rs = append(rs, rdof{i, 1})
		}
	}
	n := 2 * len(s.Joints)
	if nm+len(rs) != n {
		tst.Fatalf("truss is not determinate: %d unknowns, %d equations", nm+len(rs), n)
	}
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n+1)
	}
	for c, m := range s.Members {
		a[2*m.A][c] += m.Cos
		a[2*m.A+1][c] += m.Sin
		a[2*m.B][c] -= m.Cos
		a[2*m.B+1][c] -= m.Sin
	}
	for c, r := range rs {
		a[2*r.j+r.k][nm+c] = 1
	}
	for _, l := range lc.Loads {
		j, _ := s.JointIndex(l.Joint)
		a[2*j][n] -= l.Fx
		a[2*j+1][n] -= l.Fy
	}
	for c := 0; c < n; c++ {
		p := c
		for r := c + 1; r < n; r++ {
			if math.Abs(a[r][c]) > math.Abs(a[p][c]) {
				p = r
			}
		}
		a[c], a[p] = a[p], a[c]
		if math.Abs(a[c][c]) < 1e-12 {
			tst.Fatalf("equilibrium matrix is singular")
		}
		for r := 0; r < n; r++ {
			if r == c {
				continue
			}
			f := a[r][c] / a[c][c]
			for k := c; k <= n; k++ {
				a[r][k] -= f * a[c][k]
			}
		}
	}
	x := make([]float64, nm)
	for c := range x {
		x[c] = a[c][n] / a[c][c]
	}
	return x
}

func Test_determinacy01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("determinacy01. stiffness method agrees with method of joints")

	for n := 2; n <= 4; n++ {
		d := model.PrattTruss("pratt", model.Conditions{PanelCount: n}, 3, tube)
		s := build(tst, d)
		cases, err := loads.Generate(s, loads.DefaultOptions())
		if err != nil {
			tst.Fatalf("generate: %v", err)
		}
		sum, err := Analyze(context.Background(), s, cases, DefaultOptions())
		if err != nil {
			tst.Fatalf("analyze: %v", err)
		}
		for i, lc := range cases {
			want := methodOfJoints(tst, s, lc)
			chk.Array(tst, "forces", 1e-7, sum.Results[i].Forces, want)
		}
	}
}

func Test_slenderness01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("slenderness01. zero-force slender member")

	d := model.Design{
		Conditions: model.Conditions{AllowableSlenderness: 100},
		Joints: []model.Joint{
			{ID: 1, X: 0, Y: 0, Support: model.Pin},
			{ID: 2, X: 1, Y: 1},
			{ID: 3, X: 2, Y: 0, Support: model.RollerX},
			{ID: 4, X: 1, Y: 0},
		},
		Members: []model.Member{
			{ID: 1, A: 1, B: 2, Stock: tube},
			{ID: 2, A: 2, B: 3, Stock: tube},
			{ID: 3, A: 1, B: 4, Stock: tube},
			{ID: 4, A: 4, B: 3, Stock: tube},
			{ID: 5, A: 2, B: 4, Stock: bar}, // L/r = 115
		},
	}
	sum := analyze(tst, d, point(2, 0, -10))
	chk.String(tst, string(sum.Status), string(FailsSlenderness))
	r := sum.Results[0]
	chk.String(tst, string(r.Status), string(CaseFailsSlenderness))
	chk.Float64(tst, "zero force", 1e-9, r.Forces[4], 0)
	chk.String(tst, string(r.MemberStatus[4]), string(MemberFailsSlenderness))
	chk.String(tst, string(r.MemberStatus[0]), string(MemberOK))
	chk.String(tst, string(sum.Members[4].Status), string(MemberFailsSlenderness))
	if sum.Passing {
		tst.Errorf("slender design reported passing")
	}

	// the same member within the limit passes
	d.Conditions.AllowableSlenderness = 0
	sum = analyze(tst, d, point(2, 0, -10))
	chk.String(tst, string(sum.Status), string(Passing))
}

func Test_strength01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("strength01. overloaded member")

	d := apex(model.RollerX, true)
	d.Members[0].Stock = bar
	s := build(tst, d)
	caps := NewCapacities(s)
	load := 3 * caps.Compressive[0] / math.Sqrt2 // AB carries load/√2
	sum := analyze(tst, d, point(2, 0, -load))
	chk.String(tst, string(sum.Status), string(Failing))
	chk.String(tst, string(sum.Results[0].Status), string(StableButFailing))
	chk.Float64(tst, "ratio", 1e-9, sum.Members[0].CompressionRatio, 1.5)
	chk.Float64(tst, "max compression", 1e-6, sum.Members[0].MaxCompressionKN, 1.5*caps.Compressive[0])
	chk.String(tst, string(sum.Members[0].Status), string(MemberFailsStrength))
	chk.String(tst, string(sum.Members[2].Status), string(MemberOK))
	chk.Float64(tst, "max ratio", 1e-9, sum.MaxRatio(), 1.5)
}

func Test_instability01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("instability01. chain and brace")

	d := model.Design{
		Joints: []model.Joint{
			{ID: 1, X: 0, Y: 0, Support: model.Pin},
			{ID: 2, X: 1, Y: 0},
			{ID: 3, X: 0, Y: 1, Support: model.Pin},
		},
		Members: []model.Member{{ID: 1, A: 1, B: 2, Stock: tube}},
	}
	sum := analyze(tst, d, point(2, 0, -1))
	chk.String(tst, string(sum.Status), string(Unstable))
	chk.Ints(tst, "unstable joints", sum.UnstableJoints, []int{2})
	chk.Ints(tst, "unstable dofs", sum.UnstableDOFs, []int{1})

	d.Members = append(d.Members, model.Member{ID: 2, A: 3, B: 2, Stock: tube})
	sum = analyze(tst, d, point(2, 0, -1))
	if sum.Status == Unstable {
		tst.Fatalf("braced chain still unstable")
	}
	chk.Float64(tst, "brace", 1e-9, sum.Results[0].Forces[1], math.Sqrt2)
	chk.Float64(tst, "chain", 1e-9, sum.Results[0].Forces[0], -1)
}

func Test_degraded01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("degraded01. failed chord stretches but carries the same force")

	s := build(tst, apex(model.RollerX, true))
	lc := []loads.LoadCase{point(2, 0, -1)}
	sum, err := Analyze(context.Background(), s, lc, DefaultOptions())
	if err != nil {
		tst.Fatal(err)
	}
	o := DefaultOptions()
	o.Failed = []bool{false, false, true}
	deg, err := Analyze(context.Background(), s, lc, o)
	if err != nil {
		tst.Fatal(err)
	}
	if !deg.Degraded || sum.Degraded {
		tst.Errorf("degraded flag: %v %v", deg.Degraded, sum.Degraded)
	}
	if deg.Snapshot != s {
		tst.Errorf("summary does not refer to the analyzed snapshot")
	}

	// determinate: forces do not depend on stiffness
	chk.Array(tst, "forces", 1e-9, deg.Results[0].Forces, sum.Results[0].Forces)
	chk.Float64(tst, "roller slides 50x", 1e-12, deg.Results[0].Displacements[4], 50*sum.Results[0].Displacements[4])
	chk.Float64(tst, "capacity unchanged", 0, deg.Members[2].TensionRatio, sum.Members[2].TensionRatio)

	o.Failed = []bool{true}
	if _, err := Analyze(context.Background(), s, lc, o); err == nil {
		tst.Errorf("mismatched failure list accepted")
	}

	chk.Int(tst, "failed flags", len(sum.Failed()), 3)
	for i, f := range sum.Failed() {
		if f != (sum.Members[i].Status == MemberFailsStrength) {
			tst.Errorf("member %d flag %v", sum.Members[i].ID, f)
		}
	}
}

func Test_run01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("run01. cancellation and progress")

	d := model.PrattTruss("pratt", model.Conditions{PanelCount: 3}, 4, tube)
	calls := 0
	opts := DefaultOptions()
	opts.Progress = func(done, total int) {
		calls++
		chk.Int(tst, "total", total, 13)
		chk.Int(tst, "done", done, calls)
	}
	sum, err := Run(context.Background(), d, model.StandardInventory(), opts)
	if err != nil {
		tst.Fatalf("run: %v", err)
	}
	chk.Int(tst, "progress calls", calls, 13)
	chk.String(tst, sum.Truck.Name, "Standard truck")
	chk.Array(tst, "positions", 1e-15, sum.Positions()[:3], []float64{0, 0.25, 0.5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, d, model.StandardInventory(), DefaultOptions()); !errors.Is(err, context.Canceled) {
		tst.Errorf("expected cancellation, got %v", err)
	}

	d.Members[0].B = 99
	_, err = Run(context.Background(), d, model.StandardInventory(), DefaultOptions())
	var me *model.ModelError
	if !errors.As(err, &me) {
		tst.Errorf("expected ModelError, got %v", err)
	}
}

func Test_handler01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("handler01. analyze endpoint with auto repair")

	d := model.PrattTruss("pratt", model.Conditions{PanelCount: 3}, 4, tube)
	d.Members = d.Members[:len(d.Members)-1]

	h := &Handler{}
	post := func(in Input) *httptest.ResponseRecorder {
		body, _ := json.Marshal(in)
		rec := httptest.NewRecorder()
		h.Calc(rec, httptest.NewRequest(http.MethodPost, "/api/tools/analyze", bytes.NewReader(body)))
		return rec
	}

	rec := post(Input{Design: d})
	chk.Int(tst, "status", rec.Code, http.StatusOK)
	var out Output
	json.NewDecoder(rec.Body).Decode(&out)
	chk.String(tst, string(out.Summary.Status), string(Unstable))
	if out.Design != nil {
		tst.Errorf("design returned without repair")
	}

	rec = post(Input{Design: d, AutoRepair: true, IncludeResults: true})
	chk.Int(tst, "status", rec.Code, http.StatusOK)
	out = Output{}
	json.NewDecoder(rec.Body).Decode(&out)
	if out.Summary.Status == Unstable {
		tst.Errorf("auto repair left the truss unstable")
	}
	if out.Summary.Repair == nil || out.Summary.Repair.MembersAdded != 1 || !out.Summary.Repair.Success {
		tst.Errorf("unexpected repair %+v", out.Summary.Repair)
	}
	if out.Design == nil || len(out.Design.Members) != len(d.Members)+1 {
		tst.Errorf("repaired design missing")
	}
	chk.Int(tst, "results", len(out.Summary.Results), 13)

	d.Members[0].A = 42
	rec = post(Input{Design: d})
	chk.Int(tst, "model error", rec.Code, http.StatusUnprocessableEntity)
}
