package interp

import "sync/atomic"

// Engine serves frames from the most recently published sequence. Readers
// never block: a structure change swaps in a new sequence (or none) and
// frames already being computed finish on the old one.
type Engine struct {
	seq atomic.Pointer[Sequence]
}

func (e *Engine) Publish(q *Sequence) { e.seq.Store(q) }

// Invalidate drops the current sequence.
func (e *Engine) Invalidate() { e.seq.Store(nil) }

func (e *Engine) Sequence() *Sequence { return e.seq.Load() }

// InterpolateInto is the per-frame hot path.
func (e *Engine) InterpolateInto(p float64, fs *FrameState) error {
	q := e.seq.Load()
	if q == nil {
		return ErrNoSequence
	}
	q.InterpolateInto(p, fs)
	return nil
}

func (e *Engine) Interpolate(p float64) (FrameState, error) {
	q := e.seq.Load()
	if q == nil {
		return FrameState{}, ErrNoSequence
	}
	return q.Interpolate(p), nil
}
