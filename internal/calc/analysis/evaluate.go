package analysis

import (
	"math"

	"Trestle/internal/calc/column"
	"Trestle/internal/calc/loads"
	"Trestle/internal/calc/model"
)

// Capacities are the load-independent member properties of a snapshot.
type Capacities struct {
	Compressive []float64 // kN
	Tensile     []float64 // kN
	Slenderness []float64
	Slender     []bool
	Allowable   float64
}

func NewCapacities(s *model.Snapshot) Capacities {
	n := len(s.Members)
	c := Capacities{
		Compressive: make([]float64, n),
		Tensile:     make([]float64, n),
		Slenderness: make([]float64, n),
		Slender:     make([]bool, n),
		Allowable:   s.Conditions.AllowableSlenderness,
	}
	for i, m := range s.Members {
		c.Compressive[i] = column.CompressiveStrength(m.Material, m.Shape, m.Length)
		c.Tensile[i] = column.TensileStrength(m.Material, m.Shape)
		c.Slenderness[i] = m.Slenderness
		c.Slender[i] = m.Slenderness > c.Allowable
	}
	return c
}

// AxialForce returns the member force for the given joint displacements,
// positive in tension. d holds (x, y) per joint.
func AxialForce(m model.MemberInfo, d []float64) float64 {
	dx := d[2*m.B] - d[2*m.A]
	dy := d[2*m.B+1] - d[2*m.A+1]
	return m.Axial * (m.Cos*dx + m.Sin*dy)
}

// Evaluate recovers forces, ratios, statuses and reactions for one load
// case from the free-DOF displacement vector u.
func Evaluate(s *model.Snapshot, lc loads.LoadCase, u []float64, caps Capacities) Result {
	nj, nm := len(s.Joints), len(s.Members)
	r := Result{
		Index:             lc.Index,
		Position:          lc.Position,
		Displacements:     make([]float64, 2*nj),
		Forces:            make([]float64, nm),
		TensionRatios:     make([]float64, nm),
		CompressionRatios: make([]float64, nm),
		Slenderness:       caps.Slenderness,
		MemberStatus:      make([]MemberStatus, nm),
	}
	for i, j := range s.Joints {
		for k := 0; k < 2; k++ {
			if j.DOF[k] != model.Restrained {
				r.Displacements[2*i+k] = u[j.DOF[k]]
			}
		}
	}

	// residual per joint: applied load plus the pull of every member
	resid := make([]float64, 2*nj)
	for _, l := range lc.Loads {
		if j, ok := s.JointIndex(l.Joint); ok {
			resid[2*j] += l.Fx
			resid[2*j+1] += l.Fy
		}
	}

	slender, failing := false, false
	for i, m := range s.Members {
		n := AxialForce(m, r.Displacements)
		r.Forces[i] = n
		resid[2*m.A] += n * m.Cos
		resid[2*m.A+1] += n * m.Sin
		resid[2*m.B] -= n * m.Cos
		resid[2*m.B+1] -= n * m.Sin

		if n > 0 {
			r.TensionRatios[i] = n / caps.Tensile[i]
		} else if n < 0 {
			r.CompressionRatios[i] = -n / caps.Compressive[i]
		}
		switch {
		case caps.Slender[i]:
			r.MemberStatus[i] = MemberFailsSlenderness
			slender = true
		case r.TensionRatios[i] > 1 || r.CompressionRatios[i] > 1:
			r.MemberStatus[i] = MemberFailsStrength
			failing = true
		default:
			r.MemberStatus[i] = MemberOK
		}
	}

	for i, j := range s.Joints {
		rx, ry := j.Support.RestrainsX(), j.Support.RestrainsY()
		if !rx && !ry {
			continue
		}
		re := Reaction{Joint: j.ID}
		if rx {
			re.Fx = -resid[2*i]
		}
		if ry {
			re.Fy = -resid[2*i+1]
		}
		r.Reactions = append(r.Reactions, re)
	}

	switch {
	case slender:
		r.Status = CaseFailsSlenderness
	case failing:
		r.Status = StableButFailing
	default:
		r.Status = StableAndPassing
	}
	return r
}

// ratings folds per-case results into governing member ratings.
func ratings(s *model.Snapshot, caps Capacities, results []Result) []MemberRating {
	out := make([]MemberRating, len(s.Members))
	for i, m := range s.Members {
		mr := MemberRating{
			ID:                    m.ID,
			Stock:                 m.Stock,
			Shape:                 m.Shape.Name,
			Length:                m.Length,
			Slenderness:           m.Slenderness,
			AllowableSlenderness:  caps.Allowable,
			CompressiveStrengthKN: caps.Compressive[i],
			TensileStrengthKN:     caps.Tensile[i],
			Status:                MemberOK,
		}
		for _, r := range results {
			if r.Forces == nil {
				continue
			}
			mr.MaxTensionKN = math.Max(mr.MaxTensionKN, r.Forces[i])
			mr.MaxCompressionKN = math.Max(mr.MaxCompressionKN, -r.Forces[i])
			mr.TensionRatio = math.Max(mr.TensionRatio, r.TensionRatios[i])
			mr.CompressionRatio = math.Max(mr.CompressionRatio, r.CompressionRatios[i])
		}
		switch {
		case caps.Slender[i]:
			mr.Status = MemberFailsSlenderness
		case mr.TensionRatio > 1 || mr.CompressionRatio > 1:
			mr.Status = MemberFailsStrength
		}
		out[i] = mr
	}
	return out
}
