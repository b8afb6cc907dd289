package workspace

import (
	"context"
	"sync"

	"Trestle/internal/calc/model"
)

// Key names a stored design together with its owner, so a cached workspace
// is never handed to another user.
type Key struct {
	Owner  int
	Design int
}

// Loader fetches a stored design on a registry miss.
type Loader func(ctx context.Context, k Key) (model.Design, error)

// Registry keeps one live workspace per stored design.
type Registry struct {
	mu    sync.Mutex
	items map[Key]*Workspace
	inv   *model.Inventory
	opts  Options
}

func NewRegistry(inv *model.Inventory, o Options) *Registry {
	return &Registry{items: make(map[Key]*Workspace), inv: inv, opts: o}
}

// Get returns the workspace of k, loading it on first use.
func (r *Registry) Get(ctx context.Context, k Key, load Loader) (*Workspace, error) {
	r.mu.Lock()
	ws, ok := r.items[k]
	r.mu.Unlock()
	if ok {
		return ws, nil
	}
	d, err := load(ctx, k)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.items[k]; ok {
		return ws, nil
	}
	ws = New(d, r.inv, r.opts)
	r.items[k] = ws
	return ws, nil
}

// Put installs a workspace for a freshly created design.
func (r *Registry) Put(k Key, d model.Design) *Workspace {
	ws := New(d, r.inv, r.opts)
	r.mu.Lock()
	r.items[k] = ws
	r.mu.Unlock()
	return ws
}

func (r *Registry) Drop(k Key) {
	r.mu.Lock()
	delete(r.items, k)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
