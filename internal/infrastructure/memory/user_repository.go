package memory

import (
	"context"
	"sync"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	vo "github.com/oksasatya/go-ddd-user-service/internal/domain/valueobject"
)

// UserRepository is an in-memory implementation of repository.UserRepository.
// Users are copied on the way in and out so callers never share state with the store.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[vo.UserID]*entity.User
	byEmail map[string]vo.UserID
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[vo.UserID]*entity.User),
		byEmail: make(map[string]vo.UserID),
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id vo.UserID) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return u.Clone(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email vo.Email) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email.String()]
	if !ok {
		return nil, nil
	}
	return r.byID[id].Clone(), nil
}

// Save checks the email index and writes under one exclusive lock.
func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saveLocked(u)
}

func (r *UserRepository) Delete(ctx context.Context, id vo.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, u.Email().String())
		delete(r.byID, id)
	}
	return nil
}

// Clear drops every stored user.
func (r *UserRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[vo.UserID]*entity.User)
	r.byEmail = make(map[string]vo.UserID)
}

// Seed stores users in one batch. It stops at the first email conflict.
func (r *UserRepository) Seed(users ...*entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range users {
		if err := r.saveLocked(u); err != nil {
			return err
		}
	}
	return nil
}

// Len reports how many users are stored.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *UserRepository) saveLocked(u *entity.User) error {
	email := u.Email().String()
	if owner, ok := r.byEmail[email]; ok && owner != u.ID() {
		return repository.ErrEmailTaken
	}
	if prev, ok := r.byID[u.ID()]; ok && prev.Email().String() != email {
		delete(r.byEmail, prev.Email().String())
	}
	r.byID[u.ID()] = u.Clone()
	r.byEmail[email] = u.ID()
	return nil
}
