// Package stiffness assembles the global stiffness matrix and load vectors
// of a truss snapshot. Restrained translations are condensed out.
package stiffness

import (
	"fmt"

	"Trestle/internal/calc/loads"
	"Trestle/internal/calc/model"
)

// Matrix is a dense row-major square matrix owned by a single analysis.
type Matrix struct {
	N    int
	Data []float64
}

func NewMatrix(n int) *Matrix {
	return &Matrix{N: n, Data: make([]float64, n*n)}
}

func (m *Matrix) At(i, j int) float64 { return m.Data[i*m.N+j] }

func (m *Matrix) Add(i, j int, v float64) { m.Data[i*m.N+j] += v }

// Element returns the 4x4 member stiffness in global axes, ordered
// (ax, ay, bx, by).
func Element(m model.MemberInfo) [4][4]float64 {
	c, s := m.Cos, m.Sin
	k := m.Axial
	cc, cs, ss := k*c*c, k*c*s, k*s*s
	return [4][4]float64{
		{cc, cs, -cc, -cs},
		{cs, ss, -cs, -ss},
		{-cc, -cs, cc, cs},
		{-cs, -ss, cs, ss},
	}
}

// FailedDegradation scales the axial stiffness of a failed member.
const FailedDegradation = 1.0 / 50.0

// Degrade returns a copy of s whose failed members keep FailedDegradation
// of their axial stiffness. failed is indexed like s.Members.
func Degrade(s *model.Snapshot, failed []bool) (*model.Snapshot, error) {
	if len(failed) != len(s.Members) {
		return nil, fmt.Errorf("stiffness: %d failure flags for %d members", len(failed), len(s.Members))
	}
	c := *s
	c.Members = append([]model.MemberInfo(nil), s.Members...)
	for i, f := range failed {
		if f {
			c.Members[i].Axial *= FailedDegradation
		}
	}
	return &c, nil
}

// Map returns the global equation numbers of a member's end translations.
func Map(s *model.Snapshot, m model.MemberInfo) [4]int {
	a, b := s.Joints[m.A].DOF, s.Joints[m.B].DOF
	return [4]int{a[0], a[1], b[0], b[1]}
}

// Assemble adds every member's contribution into a fresh matrix.
func Assemble(s *model.Snapshot) *Matrix {
	K := NewMatrix(s.NumDOF)
	for _, m := range s.Members {
		AddMember(K, s, m)
	}
	return K
}

// AddMember scatters one member into K.
func AddMember(K *Matrix, s *model.Snapshot, m model.MemberInfo) {
	ke := Element(m)
	umap := Map(s, m)
	for i, I := range umap {
		if I == model.Restrained {
			continue
		}
		for j, J := range umap {
			if J == model.Restrained {
				continue
			}
			K.Add(I, J, ke[i][j])
		}
	}
}

// LoadVector writes the free-DOF components of a load case into f, which
// must have length s.NumDOF. Components at restrained DOFs go straight to
// the supports and are left out.
func LoadVector(s *model.Snapshot, lc loads.LoadCase, f []float64) error {
	if len(f) != s.NumDOF {
		return fmt.Errorf("stiffness: load vector length %d, want %d", len(f), s.NumDOF)
	}
	for i := range f {
		f[i] = 0
	}
	for _, l := range lc.Loads {
		j, ok := s.JointIndex(l.Joint)
		if !ok {
			return &model.ModelError{Kind: model.DanglingJoint, Joint: l.Joint, Detail: fmt.Sprintf("load case %d", lc.Index)}
		}
		dof := s.Joints[j].DOF
		if dof[0] != model.Restrained {
			f[dof[0]] += l.Fx
		}
		if dof[1] != model.Restrained {
			f[dof[1]] += l.Fy
		}
	}
	return nil
}
