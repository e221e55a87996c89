package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/service"
	vo "github.com/oksasatya/go-ddd-user-service/internal/domain/valueobject"
)

// UserIndexer keeps a searchable projection of users.
type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Remove(ctx context.Context, id vo.UserID) error
	Search(ctx context.Context, q string, size int) ([]*entity.User, error)
}

// Notifier delivers user lifecycle messages.
type Notifier interface {
	SendWelcome(ctx context.Context, u *entity.User) error
}

// Service exposes the user use cases on primitive inputs.
// Indexing and notifications run after the write succeeded; their failures are logged only.
type Service struct {
	users    *service.UserService
	Indexer  UserIndexer
	Notifier Notifier
	Logger   *logrus.Logger
}

// NewService wires the use cases. indexer and notifier may be nil.
func NewService(repo repository.UserRepository, indexer UserIndexer, notifier Notifier, logger *logrus.Logger) *Service {
	return &Service{
		users:    service.NewUserService(repo),
		Indexer:  indexer,
		Notifier: notifier,
		Logger:   logger,
	}
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(u *entity.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID().String(),
		Email:     u.Email().String(),
		Name:      u.Name(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

func (s *Service) CreateUser(ctx context.Context, email, name string) (*UserResponse, error) {
	e, err := vo.NewEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.users.CreateUser(ctx, e, name)
	if err != nil {
		return nil, err
	}

	s.index(ctx, u)
	if s.Notifier != nil {
		if nErr := s.Notifier.SendWelcome(ctx, u); nErr != nil {
			s.warn(nErr, u.ID(), "welcome notification failed")
		}
	}
	return toResponse(u), nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	uid, err := vo.ParseUserID(id)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return toResponse(u), nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*UserResponse, error) {
	e, err := vo.NewEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetUserByEmail(ctx, e)
	if err != nil {
		return nil, err
	}
	return toResponse(u), nil
}

// UpdateUser changes only the fields that are non-nil. Inputs are validated before any lookup.
func (s *Service) UpdateUser(ctx context.Context, id string, email, name *string) (*UserResponse, error) {
	uid, err := vo.ParseUserID(id)
	if err != nil {
		return nil, err
	}
	var newEmail *vo.Email
	if email != nil {
		e, err := vo.NewEmail(*email)
		if err != nil {
			return nil, err
		}
		newEmail = &e
	}

	u, err := s.users.UpdateUser(ctx, uid, newEmail, name)
	if err != nil {
		return nil, err
	}
	s.index(ctx, u)
	return toResponse(u), nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	uid, err := vo.ParseUserID(id)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, uid); err != nil {
		return err
	}
	if s.Indexer != nil {
		if iErr := s.Indexer.Remove(ctx, uid); iErr != nil {
			s.warn(iErr, uid, "es remove failed")
		}
	}
	return nil
}

// SearchUsers returns an empty result when no indexer is configured.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]*UserResponse, error) {
	out := []*UserResponse{}
	if s.Indexer == nil {
		return out, nil
	}
	users, err := s.Indexer.Search(ctx, q, size)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	return out, nil
}

func (s *Service) index(ctx context.Context, u *entity.User) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.Index(ctx, u); err != nil {
		s.warn(err, u.ID(), "es index failed")
	}
}

func (s *Service) warn(err error, id vo.UserID, msg string) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", id.String()).Warn(msg)
	}
}
