package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	vo "github.com/oksasatya/go-ddd-user-service/internal/domain/valueobject"
)

// ErrEmailTaken is returned by Save when another user already owns the email.
// The check and the write happen atomically; nothing is written on conflict.
var ErrEmailTaken = errors.New("email already owned by another user")

// UserRepository defines the storage capability the user domain depends on.
type UserRepository interface {
	// FindByID returns nil, nil when no user has the id.
	FindByID(ctx context.Context, id vo.UserID) (*entity.User, error)
	// FindByEmail returns nil, nil when no user has the email.
	FindByEmail(ctx context.Context, email vo.Email) (*entity.User, error)
	// Save inserts the user or overwrites the stored record with the same id.
	Save(ctx context.Context, u *entity.User) error
	// Delete removes the user; deleting an unknown id is not an error.
	Delete(ctx context.Context, id vo.UserID) error
}

// Decorator is implemented by repositories that wrap another one, such as a cache.
type Decorator interface {
	// Unwrap returns the wrapped repository.
	Unwrap() UserRepository
}

// Source strips every Decorator and returns the repository that owns the data.
// Reads that decide a write go through it so a cached copy never drives an update.
func Source(r UserRepository) UserRepository {
	for {
		d, ok := r.(Decorator)
		if !ok {
			return r
		}
		r = d.Unwrap()
	}
}
