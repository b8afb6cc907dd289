package interp

import "math"

// deckPoint is the wheel contact height above deck joint i on the
// displaced deck.
func (q *Sequence) deckPoint(i int, fs *FrameState) Vec2 {
	j := q.snap.Deck[i]
	jt := q.snap.Joints[j]
	d := fs.Displacements[j]
	return Vec2{jt.X + q.exag*d.X, jt.Y + q.exag*d.Y + q.wear}
}

// pathPoint extends the deck polyline with level approaches: index -1 is
// far out on the left approach, index n far out on the right.
func (q *Sequence) pathPoint(k, n int, far float64, fs *FrameState) Vec2 {
	switch {
	case k < 0:
		return q.deckPoint(0, fs).sub(Vec2{far, 0})
	case k > n:
		return q.deckPoint(n, fs).add(Vec2{far, 0})
	}
	return q.deckPoint(k, fs)
}

// pose puts the front contact on the path at p panels and walks back along
// the path to the rear contact one axle spacing away. The orientation comes
// from the two contacts, so it follows the local deck slope.
func (q *Sequence) pose(p float64, fs *FrameState) {
	n := len(q.snap.Deck) - 1
	if n < 1 {
		return
	}
	if math.IsNaN(p) {
		p = 0
	}
	far := q.spacing + (math.Abs(p)+float64(n)+1)*q.panel

	var (
		front Vec2
		seg   int
	)
	switch {
	case p < 0:
		seg = -1
		front = q.deckPoint(0, fs).add(Vec2{p * q.panel, 0})
	case p > float64(n):
		seg = n
		front = q.deckPoint(n, fs).add(Vec2{(p - float64(n)) * q.panel, 0})
	default:
		seg = min(int(p), n-1)
		front = lerp(q.deckPoint(seg, fs), q.deckPoint(seg+1, fs), p-float64(seg))
	}

	rear := front
	dir := q.pathPoint(seg+1, n, far, fs).sub(q.pathPoint(seg, n, far, fs))
	if q.spacing > 0 {
		b := front
		for k := seg; k >= -1; k-- {
			a := q.pathPoint(k, n, far, fs)
			w := a.sub(front)
			if w.norm() < q.spacing {
				b = a
				continue
			}
			// |w + s·e| = spacing, smallest root in [0, 1]
			e := b.sub(a)
			ee, we := e.dot(e), w.dot(e)
			disc := math.Max(0, we*we-ee*(w.dot(w)-q.spacing*q.spacing))
			s := math.Max(0, math.Min(1, (-we-math.Sqrt(disc))/ee))
			rear = a.add(e.scale(s))
			break
		}
		dir = front.sub(rear)
	}
	if l := dir.norm(); l > 0 {
		dir = dir.scale(1 / l)
	} else {
		dir = Vec2{1, 0}
	}

	fs.Load = Pose{
		Front:     front,
		Rear:      rear,
		Direction: dir,
		Angle:     math.Atan2(dir.Y, dir.X),
		OnDeck:    p >= 0 && p <= float64(n) && rear.X >= q.deckPoint(0, fs).X-1e-9,
	}
}
