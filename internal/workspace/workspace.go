// Package workspace owns an editable design and keeps its analysis and
// interpolation state in step with it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/autofix"
	"Trestle/internal/calc/interp"
	"Trestle/internal/calc/model"
)

type Options struct {
	Analysis            analysis.Options
	Interp              interp.Options
	AutoRepair          bool
	MaxRepairIterations int
}

// Workspace guards one design. Every structural edit bumps the version,
// which drops the cached summary and the published interpolation sequence.
type Workspace struct {
	mu        sync.Mutex
	design    model.Design
	version   uint64
	summary   *analysis.Summary
	listeners []func(version uint64)

	inv    *model.Inventory
	opts   Options
	engine interp.Engine
}

func New(d model.Design, inv *model.Inventory, o Options) *Workspace {
	if inv == nil {
		inv = model.StandardInventory()
	}
	return &Workspace{design: d.Clone(), version: 1, inv: inv, opts: o}
}

// Design returns a copy of the current design.
func (w *Workspace) Design() model.Design {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.design.Clone()
}

func (w *Workspace) Version() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}

// Summary returns the analysis of the current version, or nil when the
// design changed since the last analysis.
func (w *Workspace) Summary() *analysis.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summary
}

func (w *Workspace) Engine() *interp.Engine { return &w.engine }

// OnChange registers fn to run after every structure change.
func (w *Workspace) OnChange(fn func(version uint64)) {
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

// SetDesign replaces the whole design.
func (w *Workspace) SetDesign(d model.Design) uint64 {
	w.mu.Lock()
	w.design = d.Clone()
	v, ls := w.changedLocked()
	w.mu.Unlock()
	notify(ls, v)
	return v
}

// AddMember adds a member of the given stock between two existing joints.
func (w *Workspace) AddMember(a, b int, stock model.Stock) (model.Member, error) {
	w.mu.Lock()
	if _, ok := w.design.Joint(a); !ok {
		w.mu.Unlock()
		return model.Member{}, &model.ModelError{Kind: model.DanglingJoint, Joint: a}
	}
	if _, ok := w.design.Joint(b); !ok {
		w.mu.Unlock()
		return model.Member{}, &model.ModelError{Kind: model.DanglingJoint, Joint: b}
	}
	if w.design.Connected(a, b) {
		w.mu.Unlock()
		return model.Member{}, fmt.Errorf("joints %d and %d already connected", a, b)
	}
	m := model.Member{ID: w.design.NextMemberID(), A: a, B: b, Stock: stock}
	w.design.Members = append(w.design.Members, m)
	v, ls := w.changedLocked()
	w.mu.Unlock()
	notify(ls, v)
	return m, nil
}

func (w *Workspace) changedLocked() (uint64, []func(uint64)) {
	w.version++
	w.summary = nil
	w.engine.Invalidate()
	return w.version, slices.Clone(w.listeners)
}

func notify(ls []func(uint64), v uint64) {
	for _, fn := range ls {
		fn(v)
	}
}

// Analyze runs the full analysis of the current design. With auto repair
// enabled an unstable design is braced first and analyzed again; the
// summary then records the repair. The summary becomes current only if the
// design did not change while it was computed.
func (w *Workspace) Analyze(ctx context.Context) (*analysis.Summary, error) {
	sum, v, err := w.analyzeOnce(ctx)
	if err != nil {
		return nil, err
	}
	if sum.Status == analysis.Unstable && w.opts.AutoRepair {
		res, err := w.Autofix(ctx)
		if err != nil && !errors.Is(err, autofix.ErrIterationLimit) && !errors.Is(err, autofix.ErrNoCandidate) {
			return nil, err
		}
		if res.MembersAdded > 0 {
			if sum, v, err = w.analyzeOnce(ctx); err != nil {
				return nil, err
			}
		}
		sum.Repair = &analysis.Repair{MembersAdded: res.MembersAdded, Iterations: res.Iterations, Success: res.Success}
	}
	w.publish(sum, v)
	return sum, nil
}

func (w *Workspace) analyzeOnce(ctx context.Context) (*analysis.Summary, uint64, error) {
	w.mu.Lock()
	d, v := w.design.Clone(), w.version
	w.mu.Unlock()

	sum, err := analysis.Run(ctx, d, w.inv, w.opts.Analysis)
	if err != nil {
		return nil, v, err
	}
	sum.Version = v
	return sum, v, nil
}

func (w *Workspace) publish(sum *analysis.Summary, v uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.version != v {
		log.WithFields(log.Fields{"analyzed": v, "current": w.version}).Debug("discarding stale analysis")
		return
	}
	w.summary = sum
	seq, err := interp.NewSequence(sum, w.opts.Interp)
	if err != nil {
		w.engine.Invalidate()
		return
	}
	w.engine.Publish(seq)
}

// Autofix braces the design in place. Members added before a failure stay.
func (w *Workspace) Autofix(ctx context.Context) (autofix.Result, error) {
	f := &autofix.Fixer{
		Inventory:      w.inv,
		PivotTolerance: w.opts.Analysis.PivotTolerance,
		MaxIterations:  w.opts.MaxRepairIterations,
	}
	return f.Run(ctx, w)
}

// Interpolate returns the frame at load position p of the current analysis.
func (w *Workspace) Interpolate(p float64) (interp.FrameState, error) {
	return w.engine.Interpolate(p)
}

func (w *Workspace) InterpolateInto(p float64, fs *interp.FrameState) error {
	return w.engine.InterpolateInto(p, fs)
}
