package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/oksasatya/go-ddd-user-service/internal/domain"
	vo "github.com/oksasatya/go-ddd-user-service/internal/domain/valueobject"
)

// User is the aggregate root for the user domain.
// Fields are only reachable through accessors so the name invariant
// (non-empty after trimming) holds for every User value in the system.
type User struct {
	id        vo.UserID
	email     vo.Email
	name      string
	createdAt time.Time
	updatedAt time.Time
}

// NewUser builds a User with a fresh identifier.
func NewUser(email vo.Email, name string) (*User, error) {
	n, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &User{
		id:        vo.NewUserID(),
		email:     email,
		name:      n,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// RestoreUser rehydrates a User read back from storage.
func RestoreUser(id vo.UserID, email vo.Email, name string, createdAt, updatedAt time.Time) (*User, error) {
	n, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	return &User{
		id:        id,
		email:     email,
		name:      n,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func (u *User) ID() vo.UserID        { return u.id }
func (u *User) Email() vo.Email      { return u.email }
func (u *User) Name() string         { return u.name }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// Rename replaces the name. On error the user is left untouched.
func (u *User) Rename(name string) error {
	n, err := normalizeName(name)
	if err != nil {
		return err
	}
	u.name = n
	u.touch()
	return nil
}

// ChangeEmail replaces the email. Validity was established by vo.NewEmail.
func (u *User) ChangeEmail(email vo.Email) {
	u.email = email
	u.touch()
}

// Equals reports whether both values denote the same entity.
func (u *User) Equals(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.id == other.id
}

// Clone returns an independent copy; mutations on it never reach u.
func (u *User) Clone() *User {
	c := *u
	return &c
}

// touch refreshes updatedAt, never moving it backwards.
func (u *User) touch() {
	now := time.Now().UTC()
	if now.Before(u.updatedAt) {
		now = u.updatedAt
	}
	u.updatedAt = now
}

func normalizeName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidUserData)
	}
	return n, nil
}
