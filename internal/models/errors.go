package models

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrInvalidID         = errors.New("invalid id")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("concurrent modification")
)
