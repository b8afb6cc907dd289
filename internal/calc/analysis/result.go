package analysis

import (
	"Trestle/internal/calc/loads"
	"Trestle/internal/calc/model"
)

// Status is the verdict over the whole load sweep.
type Status string

const (
	Passing          Status = "PASSING"
	Failing          Status = "FAILING"
	FailsSlenderness Status = "FAILS_SLENDERNESS"
	Unstable         Status = "UNSTABLE"
)

// CaseStatus is the verdict for one load case.
type CaseStatus string

const (
	StableAndPassing     CaseStatus = "STABLE_AND_PASSING"
	StableButFailing     CaseStatus = "STABLE_BUT_FAILING"
	CaseFailsSlenderness CaseStatus = "FAILS_SLENDERNESS"
	CaseUnstable         CaseStatus = "UNSTABLE"
)

type MemberStatus string

const (
	MemberOK               MemberStatus = "OK"
	MemberFailsStrength    MemberStatus = "FAILS_STRENGTH"
	MemberFailsSlenderness MemberStatus = "FAILS_SLENDERNESS"
)

// Reaction is a support force in kN.
type Reaction struct {
	Joint int     `json:"joint"`
	Fx    float64 `json:"fx"`
	Fy    float64 `json:"fy"`
}

// Result is the complete state of one load case. Slices indexed by member
// follow Snapshot.Members; Displacements holds (x, y) per joint in
// Snapshot.Joints order, zero at restrained translations.
type Result struct {
	Index             int            `json:"index"`
	Position          float64        `json:"position"`
	Status            CaseStatus     `json:"status"`
	Displacements     []float64      `json:"displacements,omitempty"`
	Reactions         []Reaction     `json:"reactions,omitempty"`
	Forces            []float64      `json:"forces,omitempty"`
	TensionRatios     []float64      `json:"tension_ratios,omitempty"`
	CompressionRatios []float64      `json:"compression_ratios,omitempty"`
	Slenderness       []float64      `json:"slenderness,omitempty"`
	MemberStatus      []MemberStatus `json:"member_status,omitempty"`
}

// MemberRating is a member's governing state over every load case.
type MemberRating struct {
	ID                    int          `json:"id"`
	Stock                 model.Stock  `json:"stock"`
	Shape                 string       `json:"shape"`
	Length                float64      `json:"length_m"`
	Slenderness           float64      `json:"slenderness"`
	AllowableSlenderness  float64      `json:"allowable_slenderness"`
	CompressiveStrengthKN float64      `json:"compressive_strength_kn"`
	TensileStrengthKN     float64      `json:"tensile_strength_kn"`
	MaxCompressionKN      float64      `json:"max_compression_kn"`
	MaxTensionKN          float64      `json:"max_tension_kn"`
	CompressionRatio      float64      `json:"compression_ratio"`
	TensionRatio          float64      `json:"tension_ratio"`
	Status                MemberStatus `json:"status"`
}

// Repair records an automatic autofix pass preceding the analysis.
type Repair struct {
	MembersAdded int  `json:"members_added"`
	Iterations   int  `json:"iterations"`
	Success      bool `json:"success"`
}

// Summary is the immutable outcome of one analysis. It is valid while
// Version matches the version of the structure it was computed from.
type Summary struct {
	Version        uint64          `json:"version"`
	Status         Status          `json:"status"`
	Passing        bool            `json:"passing"`
	Members        []MemberRating  `json:"members"`
	Results        []Result        `json:"results,omitempty"`
	UnstableDOFs   []int           `json:"unstable_dofs,omitempty"`
	UnstableJoints []int           `json:"unstable_joints,omitempty"`
	Truck          loads.Truck     `json:"truck"`
	Repair         *Repair         `json:"repair,omitempty"`
	Degraded       bool            `json:"degraded,omitempty"`
	Snapshot       *model.Snapshot `json:"-"`
}

// Failed flags the members that fail for strength, in snapshot order, for
// a degraded rerun through Options.Failed.
func (s *Summary) Failed() []bool {
	out := make([]bool, len(s.Members))
	for i, m := range s.Members {
		out[i] = m.Status == MemberFailsStrength
	}
	return out
}

// MaxRatio returns the largest tension or compression ratio of any member.
func (s *Summary) MaxRatio() float64 {
	r := 0.0
	for _, m := range s.Members {
		if m.CompressionRatio > r {
			r = m.CompressionRatio
		}
		if m.TensionRatio > r {
			r = m.TensionRatio
		}
	}
	return r
}

// Positions lists the load positions of the results in order.
func (s *Summary) Positions() []float64 {
	out := make([]float64, len(s.Results))
	for i, r := range s.Results {
		out[i] = r.Position
	}
	return out
}

// Lite returns a copy without the per-case results.
func (s *Summary) Lite() *Summary {
	c := *s
	c.Results = nil
	return &c
}
