// Package service holds the domain service that keeps cross-record invariants:
// at most one persisted user per normalized email.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/oksasatya/go-ddd-user-service/internal/domain"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	vo "github.com/oksasatya/go-ddd-user-service/internal/domain/valueobject"
)

type UserService struct {
	repo repository.UserRepository
	// source bypasses caching decorators; update and delete look the user up here.
	source repository.UserRepository
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo, source: repository.Source(repo)}
}

// CreateUser validates uniqueness, builds the user and persists it.
//
// The lookup gives the early error; the repository's Save re-checks the email index
// atomically, so two concurrent creates for one email cannot both succeed.
func (s *UserService) CreateUser(ctx context.Context, email vo.Email, name string) (*entity.User, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email %s", domain.ErrUserAlreadyExists, email)
	}

	u, err := entity.NewUser(email, name)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser returns domain.ErrUserNotFound when the id is unknown.
func (s *UserService) GetUser(ctx context.Context, id vo.UserID) (*entity.User, error) {
	return s.findByID(ctx, s.repo, id)
}

func (s *UserService) findByID(ctx context.Context, repo repository.UserRepository, id vo.UserID) (*entity.User, error) {
	u, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: id %s", domain.ErrUserNotFound, id)
	}
	return u, nil
}

// GetUserByEmail returns domain.ErrUserNotFound when nobody owns the email.
func (s *UserService) GetUserByEmail(ctx context.Context, email vo.Email) (*entity.User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: email %s", domain.ErrUserNotFound, email)
	}
	return u, nil
}

// UpdateUser applies the optional email and name changes and persists once.
// Mutations go to a copy, so a failed rename leaves nothing half-applied.
// The current record is read from the backing store, never from a cache.
func (s *UserService) UpdateUser(ctx context.Context, id vo.UserID, email *vo.Email, name *string) (*entity.User, error) {
	current, err := s.findByID(ctx, s.source, id)
	if err != nil {
		return nil, err
	}
	u := current.Clone()

	if email != nil {
		owner, err := s.repo.FindByEmail(ctx, *email)
		if err != nil {
			return nil, err
		}
		if owner != nil && owner.ID() != id {
			return nil, fmt.Errorf("%w: email %s", domain.ErrUserAlreadyExists, *email)
		}
		u.ChangeEmail(*email)
	}

	if name != nil {
		if err := u.Rename(*name); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser looks the user up first so an unknown id yields domain.ErrUserNotFound;
// the repository delete itself is idempotent.
func (s *UserService) DeleteUser(ctx context.Context, id vo.UserID) error {
	u, err := s.findByID(ctx, s.source, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, u.ID())
}

func (s *UserService) save(ctx context.Context, u *entity.User) error {
	err := s.repo.Save(ctx, u)
	if errors.Is(err, repository.ErrEmailTaken) {
		return fmt.Errorf("%w: email %s", domain.ErrUserAlreadyExists, u.Email())
	}
	return err
}
