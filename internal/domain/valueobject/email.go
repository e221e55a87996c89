package valueobject

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/oksasatya/go-ddd-user-service/internal/domain"
)

const (
	emailMinExclusive = 5
	emailMaxExclusive = 256
)

// Email is a normalized (lower-cased) email address.
// The zero value is not a valid Email; build one with NewEmail.
type Email struct {
	value string
}

// NewEmail validates raw and returns its normalized form.
func NewEmail(raw string) (Email, error) {
	if raw == "" {
		return Email{}, fmt.Errorf("%w: email cannot be empty", domain.ErrInvalidEmail)
	}
	if strings.Count(raw, "@") != 1 {
		return Email{}, fmt.Errorf("%w: email must contain exactly one '@'", domain.ErrInvalidEmail)
	}
	if n := utf8.RuneCountInString(raw); n <= emailMinExclusive || n >= emailMaxExclusive {
		return Email{}, fmt.Errorf("%w: email length must be between %d and %d characters",
			domain.ErrInvalidEmail, emailMinExclusive+1, emailMaxExclusive-1)
	}
	return Email{value: strings.ToLower(raw)}, nil
}

func (e Email) String() string { return e.value }

// Equals compares the normalized forms.
func (e Email) Equals(other Email) bool { return e.value == other.value }

func (e Email) IsZero() bool { return e.value == "" }
