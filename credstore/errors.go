package credstore

import "errors"

var (
	// ErrUserExists indicates CreateUser was called for an existing username.
	ErrUserExists = errors.New("credstore: user already exists")

	// ErrUserNotFound indicates an update or delete of a missing user.
	ErrUserNotFound = errors.New("credstore: user not found")

	// ErrInvalidUser indicates a user record without username or password hash.
	ErrInvalidUser = errors.New("credstore: username and password hash are required")
)
