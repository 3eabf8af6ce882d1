package domain

import "errors"

var (
	// ErrUserNotFound signals a normal absent lookup result, not a failure.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the unique email constraint rejects a create.
	ErrDuplicateEmail = errors.New("email already registered")
)
