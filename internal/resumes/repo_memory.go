package resumes

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	nextID  int64
	resumes map[int64]Resume
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{resumes: make(map[int64]Resume)}
}

func (r *MemoryRepo) List(ctx context.Context) ([]Resume, error) {
	return r.filter(ctx, func(Resume) bool { return true })
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID int64) ([]Resume, error) {
	return r.filter(ctx, func(res Resume) bool { return res.UserID == userID })
}

func (r *MemoryRepo) filter(ctx context.Context, keep func(Resume) bool) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Resume{}
	for _, res := range r.resumes {
		if keep(res) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resumes[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return res, nil
}

func (r *MemoryRepo) Create(ctx context.Context, in CreateInput) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	res := Resume{
		ID:        r.nextID,
		Title:     in.Title,
		UserID:    in.UserID,
		CreatedAt: time.Now().UTC(),
	}
	r.resumes[res.ID] = res
	return res, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id int64, in UpdateInput) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	if in.Title != nil {
		res.Title = *in.Title
	}
	if in.UserID != nil {
		res.UserID = *in.UserID
	}
	r.resumes[id] = res
	return res, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	delete(r.resumes, id)
	return res, nil
}
