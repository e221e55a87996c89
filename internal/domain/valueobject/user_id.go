package valueobject

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain"
)

// canonical hyphenated form, e.g. 3f0c1a4e-8d2b-4c1e-9a7f-5b6d7e8f9a0b
const userIDTextLen = 36

// UserID identifies a User for its whole lifetime.
type UserID struct {
	value uuid.UUID
}

// NewUserID returns a fresh random (version 4) identifier.
func NewUserID() UserID {
	return UserID{value: uuid.New()}
}

// ParseUserID accepts only the 36-character lower-case hyphenated form that String
// produces, so ParseUserID(s).String() == s for every accepted s.
func ParseUserID(text string) (UserID, error) {
	if len(text) != userIDTextLen || strings.ToLower(text) != text {
		return UserID{}, fmt.Errorf("%w: %q is not a canonical uuid", domain.ErrInvalidUserID, text)
	}
	id, err := uuid.Parse(text)
	if err != nil {
		return UserID{}, fmt.Errorf("%w: %v", domain.ErrInvalidUserID, err)
	}
	return UserID{value: id}, nil
}

// UserIDFromUUID wraps an identifier read back from storage.
func UserIDFromUUID(id uuid.UUID) UserID {
	return UserID{value: id}
}

func (id UserID) String() string { return id.value.String() }

func (id UserID) UUID() uuid.UUID { return id.value }

func (id UserID) IsZero() bool { return id.value == uuid.Nil }
