// Package analysis runs the linear elastic truss analysis over every load
// case and rates each member for strength and slenderness.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"Trestle/internal/calc/loads"
	"Trestle/internal/calc/model"
	"Trestle/internal/calc/solver"
	"Trestle/internal/calc/stiffness"
)

type Options struct {
	PivotTolerance float64
	Loads          loads.Options
	// Failed, when set, marks members (in snapshot order) whose stiffness
	// is degraded to show the structure after they give way.
	Failed []bool
	// Progress, when set, is called after each load case.
	Progress func(done, total int)
}

func DefaultOptions() Options {
	return Options{PivotTolerance: solver.DefaultPivotTolerance, Loads: loads.DefaultOptions()}
}

// Run builds the snapshot and load cases of a design and analyzes them.
func Run(ctx context.Context, d model.Design, inv *model.Inventory, opts Options) (*Summary, error) {
	s, err := model.Build(d, inv)
	if err != nil {
		return nil, err
	}
	cases, err := loads.Generate(s, opts.Loads)
	if err != nil {
		return nil, err
	}
	sum, err := Analyze(ctx, s, cases, opts)
	if err != nil {
		return nil, err
	}
	sum.Truck = opts.Loads.TruckOf(s)
	return sum, nil
}

// Analyze solves every load case against one factorization of the
// stiffness matrix. A singular matrix yields an Unstable summary, not an
// error.
func Analyze(ctx context.Context, s *model.Snapshot, cases []loads.LoadCase, opts Options) (*Summary, error) {
	logger := log.WithField("component", "analysis")
	caps := NewCapacities(s)
	sum := &Summary{Snapshot: s}

	solved := s
	if opts.Failed != nil {
		var err error
		if solved, err = stiffness.Degrade(s, opts.Failed); err != nil {
			return nil, err
		}
		sum.Degraded = true
	}
	K := stiffness.Assemble(solved)
	fac, err := solver.Factor(K.N, K.Data, opts.PivotTolerance)
	var se *solver.SingularError
	if errors.As(err, &se) {
		sum.Status = Unstable
		sum.UnstableDOFs = se.DOFs
		sum.UnstableJoints = DegenerateJoints(s, se.DOFs)
		sum.Results = make([]Result, len(cases))
		for i, lc := range cases {
			sum.Results[i] = Result{Index: lc.Index, Position: lc.Position, Status: CaseUnstable}
		}
		sum.Members = ratings(s, caps, nil)
		logger.WithFields(log.Fields{"joints": sum.UnstableJoints, "dofs": se.DOFs}).Debug("structure is unstable")
		return sum, nil
	}
	if err != nil {
		return nil, err
	}

	f := make([]float64, s.NumDOF)
	sum.Results = make([]Result, len(cases))
	for i, lc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis cancelled after %d of %d load cases: %w", i, len(cases), err)
		}
		if err := stiffness.LoadVector(s, lc, f); err != nil {
			return nil, err
		}
		if err := fac.Solve(f, f); err != nil {
			return nil, err
		}
		sum.Results[i] = Evaluate(solved, lc, f, caps)
		if opts.Progress != nil {
			opts.Progress(i+1, len(cases))
		}
	}

	sum.Members = ratings(s, caps, sum.Results)
	sum.Status = Passing
	for _, m := range sum.Members {
		if m.Status == MemberFailsSlenderness {
			sum.Status = FailsSlenderness
			break
		}
		if m.Status == MemberFailsStrength {
			sum.Status = Failing
		}
	}
	sum.Passing = sum.Status == Passing
	logger.WithFields(log.Fields{
		"cases":     len(cases),
		"status":    sum.Status,
		"max_ratio": sum.MaxRatio(),
	}).Debug("analysis complete")
	return sum, nil
}

// DegenerateJoints maps equation numbers to the IDs of their joints, in
// joint order without repeats.
func DegenerateJoints(s *model.Snapshot, dofs []int) []int {
	seen := make(map[int]bool)
	var idx []int
	for _, d := range dofs {
		j, _, ok := s.DOFJoint(d)
		if ok && !seen[j] {
			seen[j] = true
			idx = append(idx, j)
		}
	}
	sort.Ints(idx)
	ids := make([]int, len(idx))
	for i, j := range idx {
		ids[i] = s.Joints[j].ID
	}
	return ids
}
