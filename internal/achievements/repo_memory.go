package achievements

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Achievement
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[int64]Achievement)}
}

func (r *MemoryRepo) ListByResume(ctx context.Context, resumeID int64) ([]Achievement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Achievement{}
	for _, a := range r.items {
		if a.ResumeID != nil && *a.ResumeID == resumeID {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Achievement, error) {
	if err := ctx.Err(); err != nil {
		return Achievement{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return Achievement{}, ErrNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepo) Create(ctx context.Context, in CreateInput) (Achievement, error) {
	if err := ctx.Err(); err != nil {
		return Achievement{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a := Achievement{
		ID:        r.nextID,
		Body:      in.Body,
		ResumeID:  copyID(in.ResumeID),
		CreatedAt: time.Now().UTC(),
	}
	r.items[a.ID] = a
	return clone(a), nil
}

func (r *MemoryRepo) Update(ctx context.Context, id int64, in UpdateInput) (Achievement, error) {
	if err := ctx.Err(); err != nil {
		return Achievement{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return Achievement{}, ErrNotFound
	}
	if in.Body != nil {
		a.Body = *in.Body
	}
	if in.ResumeID != nil {
		a.ResumeID = copyID(in.ResumeID)
	}
	r.items[id] = a
	return clone(a), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) (Achievement, error) {
	if err := ctx.Err(); err != nil {
		return Achievement{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return Achievement{}, ErrNotFound
	}
	delete(r.items, id)
	return clone(a), nil
}

func (r *MemoryRepo) DetachResume(ctx context.Context, resumeID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.items {
		if a.ResumeID != nil && *a.ResumeID == resumeID {
			a.ResumeID = nil
			r.items[id] = a
			n++
		}
	}
	return n, nil
}

func clone(a Achievement) Achievement {
	a.ResumeID = copyID(a.ResumeID)
	return a
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
