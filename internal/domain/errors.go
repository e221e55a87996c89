// Package domain holds the error kinds shared by the user domain model.
package domain

import "errors"

// Error kinds returned by the user domain. Callers classify failures with errors.Is;
// most are wrapped with a detail message.
var (
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidUserID     = errors.New("invalid user id")
	ErrInvalidUserData   = errors.New("invalid user data")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)
