package core

import "errors"

var (
	// ErrUserNotFound is returned by storage backends for unknown user names.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when creating a user whose name is taken.
	ErrUserExists = errors.New("user already exists")
)
