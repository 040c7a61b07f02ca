package service

import "errors"

// Sentinel errors the controller layer maps to HTTP statuses with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrAttemptNotActive = errors.New("attempt is not in progress")
	ErrAlreadyAnswered  = errors.New("question already answered")
	ErrAttemptConflict  = errors.New("another attempt is in progress")
)
