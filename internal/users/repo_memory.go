package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[int64]User)}
}

func (r *MemoryRepo) List(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.findEmailLocked(email, 0); ok {
		return u, nil
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) Create(ctx context.Context, in CreateInput) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.findEmailLocked(in.Email, 0); taken {
		return User{}, ErrEmailTaken
	}
	r.nextID++
	now := time.Now().UTC()
	user := User{
		ID:        r.nextID,
		Name:      copyString(in.Name),
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if in.Email != nil {
		if _, taken := r.findEmailLocked(*in.Email, id); taken {
			return User{}, ErrEmailTaken
		}
		user.Email = *in.Email
	}
	if in.Name != nil {
		user.Name = copyString(in.Name)
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return user, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	delete(r.users, id)
	return user, nil
}

func (r *MemoryRepo) UpsertByEmail(ctx context.Context, identity Identity) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	user, ok := r.findEmailLocked(identity.Email, 0)
	if !ok {
		r.nextID++
		user = User{ID: r.nextID, Email: identity.Email, CreatedAt: now}
	}
	if identity.Name != "" {
		name := identity.Name
		user.Name = &name
	}
	user.GoogleSub = identity.Sub
	user.PictureURL = identity.PictureURL
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryRepo) findEmailLocked(email string, except int64) (User, bool) {
	for _, u := range r.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return User{}, false
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
