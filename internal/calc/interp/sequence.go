// Package interp turns the discrete load case results of an analysis into
// a continuous structural state for any load position.
package interp

import (
	"errors"
	"math"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/column"
	"Trestle/internal/calc/loads"
	"Trestle/internal/calc/model"
)

var (
	ErrNoSequence = errors.New("interp: no analysis available")
	ErrUnstable   = errors.New("interp: structure is unstable")
)

// WearSurfaceHeight lifts wheel contact points above the deck joints, m.
const WearSurfaceHeight = 0.8

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (a Vec2) add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) scale(s float64) Vec2 { return Vec2{a.X * s, a.Y * s} }
func (a Vec2) dot(b Vec2) float64 { return a.X*b.X + a.Y*b.Y }
func (a Vec2) norm() float64 { return math.Hypot(a.X, a.Y) }
func lerp(a, b Vec2, t float64) Vec2 { return Vec2{a.X + t*(b.X-a.X), a.Y + t*(b.Y-a.Y)} }

// Pose places the vehicle: front and rear wheel contacts and the unit
// vector from rear to front.
type Pose struct {
	Front     Vec2    `json:"front"`
	Rear      Vec2    `json:"rear"`
	Direction Vec2    `json:"direction"`
	Angle     float64 `json:"angle"` // radians from +x
	OnDeck    bool    `json:"on_deck"`
}

// FrameState is the structure at one load position. Displacements follow
// Snapshot.Joints; Forces, Ratios and Statuses follow Snapshot.Members.
// Ratios are signed: -1 is full compressive, +1 full tensile strength.
type FrameState struct {
	Position      float64                 `json:"position"`
	Lower         int                     `json:"lower"`
	Upper         int                     `json:"upper"`
	T             float64                 `json:"t"`
	Displacements []Vec2                  `json:"displacements"`
	Forces        []float64               `json:"forces"`
	Ratios        []float64               `json:"ratios"`
	Statuses      []analysis.MemberStatus `json:"statuses"`
	Failing       int                     `json:"failing"`
	Load          Pose                    `json:"load"`
}

func (fs *FrameState) reset(nj, nm int) {
	if cap(fs.Displacements) < nj {
		fs.Displacements = make([]Vec2, nj)
	}
	fs.Displacements = fs.Displacements[:nj]
	if cap(fs.Forces) < nm {
		fs.Forces = make([]float64, nm)
		fs.Ratios = make([]float64, nm)
		fs.Statuses = make([]analysis.MemberStatus, nm)
	}
	fs.Forces = fs.Forces[:nm]
	fs.Ratios = fs.Ratios[:nm]
	fs.Statuses = fs.Statuses[:nm]
	fs.Failing = 0
	fs.Load = Pose{}
}

type Options struct {
	// Exaggeration scales displacements when placing the vehicle on the
	// deformed deck. Zero uses the undeformed geometry.
	Exaggeration float64
	// AxleSpacing overrides the distance between front and rear contact.
	AxleSpacing float64
	WearSurface float64
}

// Sequence is an immutable, ordered run of analysis results ready for
// interpolation.
type Sequence struct {
	sum     *analysis.Summary
	snap    *model.Snapshot
	pos     []float64
	caps    analysis.Capacities
	spacing float64
	wear    float64
	exag    float64
	panel   float64
}

func NewSequence(sum *analysis.Summary, o Options) (*Sequence, error) {
	if sum == nil || len(sum.Results) == 0 || sum.Snapshot == nil {
		return nil, ErrNoSequence
	}
	if sum.Status == analysis.Unstable {
		return nil, ErrUnstable
	}
	q := &Sequence{
		sum:   sum,
		snap:  sum.Snapshot,
		pos:   sum.Positions(),
		caps:  analysis.NewCapacities(sum.Snapshot),
		wear:  o.WearSurface,
		exag:  o.Exaggeration,
		panel: sum.Snapshot.Conditions.PanelLength,
	}
	if q.wear == 0 {
		q.wear = WearSurfaceHeight
	}
	switch {
	case o.AxleSpacing > 0:
		q.spacing = o.AxleSpacing
	case len(sum.Truck.Axles) > 0:
		q.spacing = sum.Truck.Length()
	default:
		q.spacing = loads.TruckFor(q.snap.Conditions.LoadType).Length()
	}
	return q, nil
}

func (q *Sequence) Summary() *analysis.Summary { return q.sum }

func (q *Sequence) Len() int { return len(q.pos) }

// Range returns the first and last load positions.
func (q *Sequence) Range() (float64, float64) { return q.pos[0], q.pos[len(q.pos)-1] }

// NewFrame returns a frame sized for this sequence.
func (q *Sequence) NewFrame() *FrameState {
	fs := &FrameState{}
	fs.reset(len(q.snap.Joints), len(q.snap.Members))
	return fs
}

// Bracket finds i, j with pos[i] <= p <= pos[j] and the blend factor t.
// p outside the range is clamped; NaN clamps to the first position.
func (q *Sequence) Bracket(p float64) (i, j int, t float64) {
	n := len(q.pos)
	if n == 1 || !(p > q.pos[0]) {
		return 0, min(1, n-1), 0
	}
	if p >= q.pos[n-1] {
		return n - 2, n - 1, 1
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if q.pos[mid] <= p {
			lo = mid
		} else {
			hi = mid
		}
	}
	t = (p - q.pos[lo]) / (q.pos[hi] - q.pos[lo])
	return lo, hi, math.Max(0, math.Min(1, t))
}

// Interpolate returns the state at p in a new frame.
func (q *Sequence) Interpolate(p float64) FrameState {
	fs := q.NewFrame()
	q.InterpolateInto(p, fs)
	return *fs
}

// InterpolateInto fills fs with the state at p. It does not allocate once fs
// has been sized for the sequence. At t = 0 or 1 the frame repeats the
// bracketing result exactly.
func (q *Sequence) InterpolateInto(p float64, fs *FrameState) {
	s := q.snap
	fs.reset(len(s.Joints), len(s.Members))
	if math.IsNaN(p) {
		p = q.pos[0]
	}
	i, j, t := q.Bracket(p)
	fs.Position, fs.Lower, fs.Upper, fs.T = p, i, j, t

	lo, hi := &q.sum.Results[i], &q.sum.Results[j]
	switch t {
	case 0:
		q.copyResult(lo, fs)
	case 1:
		q.copyResult(hi, fs)
	default:
		near := lo
		if t >= 0.5 {
			near = hi
		}
		for k := range fs.Displacements {
			fs.Displacements[k] = Vec2{
				lo.Displacements[2*k] + t*(hi.Displacements[2*k]-lo.Displacements[2*k]),
				lo.Displacements[2*k+1] + t*(hi.Displacements[2*k+1]-lo.Displacements[2*k+1]),
			}
		}
		for k := range fs.Forces {
			f := lo.Forces[k] + t*(hi.Forces[k]-lo.Forces[k])
			r := column.Ratio(f, q.caps.Compressive[k], q.caps.Tensile[k])
			fs.Forces[k], fs.Ratios[k] = f, r
			switch {
			case q.caps.Slender[k]:
				fs.Statuses[k] = analysis.MemberFailsSlenderness
			case math.Abs(r) > 1 || near.MemberStatus[k] == analysis.MemberFailsStrength:
				fs.Statuses[k] = analysis.MemberFailsStrength
			default:
				fs.Statuses[k] = analysis.MemberOK
			}
		}
	}
	for _, st := range fs.Statuses {
		if st != analysis.MemberOK {
			fs.Failing++
		}
	}
	q.pose(p, fs)
}

func (q *Sequence) copyResult(r *analysis.Result, fs *FrameState) {
	for k := range fs.Displacements {
		fs.Displacements[k] = Vec2{r.Displacements[2*k], r.Displacements[2*k+1]}
	}
	copy(fs.Forces, r.Forces)
	copy(fs.Statuses, r.MemberStatus)
	for k, f := range r.Forces {
		switch {
		case f > 0:
			fs.Ratios[k] = r.TensionRatios[k]
		case f < 0:
			fs.Ratios[k] = -r.CompressionRatios[k]
		default:
			fs.Ratios[k] = 0
		}
	}
}
