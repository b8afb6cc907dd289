// Package autofix braces unstable trusses by adding members until the
// stiffness matrix is no longer singular. It never removes or moves
// anything.
package autofix

import (
	"context"
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"Trestle/internal/calc/model"
	"Trestle/internal/calc/solver"
	"Trestle/internal/calc/stiffness"
)

const DefaultMaxIterations = 3

var (
	// ErrIterationLimit is returned when the structure is still unstable
	// after the last permitted repair pass. Members added so far remain.
	ErrIterationLimit = errors.New("autofix: structure still unstable after iteration limit")
	// ErrNoCandidate is returned when no new member can stiffen a
	// mechanism, e.g. when the structure lacks supports.
	ErrNoCandidate = errors.New("autofix: no member can brace the mechanism")
)

const (
	moveTolerance       = 1e-6
	elongationTolerance = 1e-2
)

// Structure is the editable design autofix works on.
type Structure interface {
	Design() model.Design
	AddMember(a, b int, stock model.Stock) (model.Member, error)
}

type Fixer struct {
	Inventory      *model.Inventory
	PivotTolerance float64
	MaxIterations  int
}

type Result struct {
	MembersAdded int            `json:"members_added"`
	Iterations   int            `json:"iterations"`
	Success      bool           `json:"success"`
	Added        []model.Member `json:"added,omitempty"`
}

func (f *Fixer) maxIterations() int {
	if f.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return f.MaxIterations
}

func (f *Fixer) inventory() *model.Inventory {
	if f.Inventory == nil {
		return model.StandardInventory()
	}
	return f.Inventory
}

// Run repairs st in at most MaxIterations passes. A stable structure is
// returned untouched with Success set.
func (f *Fixer) Run(ctx context.Context, st Structure) (Result, error) {
	logger := log.WithField("component", "autofix")
	inv := f.inventory()
	var res Result
	for it := 0; ; it++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		d := st.Design()
		s, err := model.Build(d, inv)
		if err != nil {
			return res, err
		}
		K := stiffness.Assemble(s)
		fac, err := solver.Factor(K.N, K.Data, f.PivotTolerance)
		var se *solver.SingularError
		if err != nil && !errors.As(err, &se) {
			return res, err
		}
		if se == nil {
			res.Success = true
			return res, nil
		}
		if it == f.maxIterations() {
			return res, fmt.Errorf("%w (%d members added, %d degrees of freedom left)", ErrIterationLimit, res.MembersAdded, len(se.DOFs))
		}
		res.Iterations++

		stock, ok := d.MostCommonStock()
		if !ok {
			stock = inv.DefaultStock()
		}
		braces := Plan(s, fac, se.DOFs)
		if len(braces) == 0 {
			return res, ErrNoCandidate
		}
		for _, b := range braces {
			m, err := st.AddMember(s.Joints[b.A].ID, s.Joints[b.B].ID, stock)
			if err != nil {
				return res, fmt.Errorf("autofix: add member %d-%d: %w", s.Joints[b.A].ID, s.Joints[b.B].ID, err)
			}
			res.Added = append(res.Added, m)
			res.MembersAdded++
			logger.WithFields(log.Fields{
				"member": m.ID,
				"a":      m.A,
				"b":      m.B,
				"length": b.Length,
			}).Info("added bracing member")
		}
	}
}

// Brace is a proposed member between joint indices A and B.
type Brace struct {
	A, B   int
	Length float64
}

// Plan proposes one brace per mechanism mode. Each brace joins a joint that
// moves in the mode to the nearest joint it is not yet connected to, such
// that the mode stretches the new member and the member does not pass
// through another joint. Remaining modes are projected onto the motions the
// chosen braces still allow before they are braced in turn.
func Plan(s *model.Snapshot, fac *solver.Cholesky, dofs []int) []Brace {
	d := s.Design()
	modes := make([][]float64, len(dofs))
	for i, dof := range dofs {
		modes[i] = fac.Mode(dof)
	}
	connected := make(map[[2]int]bool)
	for _, m := range s.Members {
		connected[pairKey(m.A, m.B)] = true
	}

	var out []Brace
	for i := range modes {
		v := modes[i]
		if normalize(v) == 0 {
			continue
		}
		b, ok := nearest(s, d, v, connected)
		if !ok {
			continue
		}
		connected[pairKey(b.A, b.B)] = true
		out = append(out, b)

		// keep later modes free of motion the new member resists
		ev := elongation(s, v, b.A, b.B)
		for k := i + 1; k < len(modes); k++ {
			ek := elongation(s, modes[k], b.A, b.B)
			if ek == 0 {
				continue
			}
			for n := range modes[k] {
				modes[k][n] -= ek / ev * v[n]
			}
		}
	}
	return out
}

func nearest(s *model.Snapshot, d model.Design, v []float64, connected map[[2]int]bool) (Brace, bool) {
	best := Brace{Length: math.Inf(1)}
	found := false
	for a, ja := range s.Joints {
		if motion(ja, v) <= moveTolerance {
			continue
		}
		for b, jb := range s.Joints {
			if a == b || connected[pairKey(a, b)] {
				continue
			}
			l := math.Hypot(jb.X-ja.X, jb.Y-ja.Y)
			if l >= best.Length || l == 0 {
				continue
			}
			if math.Abs(elongation(s, v, a, b)) <= elongationTolerance {
				continue
			}
			if len(model.TranssectedJoints(d, ja.ID, jb.ID)) > 0 {
				continue
			}
			best = Brace{A: a, B: b, Length: l}
			found = true
		}
	}
	return best, found
}

func pairKey(a, b int) [2]int {
	if b < a {
		a, b = b, a
	}
	return [2]int{a, b}
}

func component(j model.JointInfo, v []float64, k int) float64 {
	if j.DOF[k] == model.Restrained {
		return 0
	}
	return v[j.DOF[k]]
}

func motion(j model.JointInfo, v []float64) float64 {
	return math.Hypot(component(j, v, 0), component(j, v, 1))
}

// elongation is the stretch a member between joints a and b would see
// under the motion v.
func elongation(s *model.Snapshot, v []float64, a, b int) float64 {
	ja, jb := s.Joints[a], s.Joints[b]
	dx, dy := jb.X-ja.X, jb.Y-ja.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return 0
	}
	ux := component(jb, v, 0) - component(ja, v, 0)
	uy := component(jb, v, 1) - component(ja, v, 1)
	return (ux*dx + uy*dy) / l
}

func normalize(v []float64) float64 {
	big := 0.0
	for _, x := range v {
		big = math.Max(big, math.Abs(x))
	}
	if big == 0 {
		return 0
	}
	for i := range v {
		v[i] /= big
	}
	return big
}
