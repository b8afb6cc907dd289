package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"Trestle/internal/calc/model"
)

type memUser struct {
	id          int
	email, hash string
}

type memDesign struct {
	user    int
	design  model.Design
	updated time.Time
}

// MemoryRepository keeps everything in process memory. The server falls
// back to it when no database is configured.
type MemoryRepository struct {
	mu       sync.Mutex
	users    map[string]memUser
	designs  map[int]*memDesign
	analyses map[int]StoredAnalysis
	nextUser int
	nextID   int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]memUser),
		designs:  make(map[int]*memDesign),
		analyses: make(map[int]StoredAnalysis),
	}
}

func (r *MemoryRepository) CreateUser(ctx context.Context, login, email, password string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[login]; ok {
		return 0, fmt.Errorf("user %q exists", login)
	}
	r.nextUser++
	r.users[login] = memUser{id: r.nextUser, email: email, hash: password}
	return r.nextUser, nil
}

func (r *MemoryRepository) GetBylogin(ctx context.Context, login string) (int, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[login]
	return u.id, u.hash, nil
}

func (r *MemoryRepository) ListDesigns(ctx context.Context, userID int) ([]DesignInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []DesignInfo{}
	for id, d := range r.designs {
		if d.user != userID {
			continue
		}
		out = append(out, DesignInfo{
			ID:        id,
			Name:      d.design.Name,
			Joints:    len(d.design.Joints),
			Members:   len(d.design.Members),
			UpdatedAt: d.updated,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *MemoryRepository) CreateDesign(ctx context.Context, userID int, d model.Design) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.designs[r.nextID] = &memDesign{user: userID, design: d.Clone(), updated: time.Now()}
	return r.nextID, nil
}

func (r *MemoryRepository) GetDesign(ctx context.Context, userID, id int) (model.Design, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.designs[id]
	if !ok || d.user != userID {
		return model.Design{}, ErrNotFound
	}
	return d.design.Clone(), nil
}

func (r *MemoryRepository) UpdateDesign(ctx context.Context, userID, id int, d model.Design) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.designs[id]
	if !ok || cur.user != userID {
		return ErrNotFound
	}
	cur.design, cur.updated = d.Clone(), time.Now()
	delete(r.analyses, id)
	return nil
}

func (r *MemoryRepository) SaveAnalysis(ctx context.Context, designID int, a StoredAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.designs[designID]; !ok {
		return ErrNotFound
	}
	a.Members = append([]StoredRatio(nil), a.Members...)
	r.analyses[designID] = a
	return nil
}

func (r *MemoryRepository) GetAnalysis(ctx context.Context, designID int) (StoredAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[designID]
	if !ok {
		return StoredAnalysis{}, ErrNotFound
	}
	a.Provisional = true
	return a, nil
}
