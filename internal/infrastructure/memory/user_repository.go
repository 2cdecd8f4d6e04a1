// Package memory provides an in-process user store for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
)

type UserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*entity.User
	byEmail    map[string]string
	byUsername map[string]string
	now        func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[string]*entity.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return repository.ErrEmailTaken
	}
	if _, ok := r.byUsername[u.Username]; ok {
		return repository.ErrUsernameTaken
	}
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = u.ID
	r.byUsername[u.Username] = u.ID
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.get(id)
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.get(id)
}

// get must be called with the lock held.
func (r *UserRepository) get(id string) (*entity.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if owner, ok := r.byEmail[u.Email]; ok && owner != u.ID {
		return repository.ErrEmailTaken
	}
	if owner, ok := r.byUsername[u.Username]; ok && owner != u.ID {
		return repository.ErrUsernameTaken
	}
	delete(r.byEmail, cur.Email)
	delete(r.byUsername, cur.Username)

	u.PasswordHash = cur.PasswordHash
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = r.now().UTC()
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = u.ID
	r.byUsername[u.Username] = u.ID
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	delete(r.byUsername, u.Username)
	return nil
}

func (r *UserRepository) List(_ context.Context) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
