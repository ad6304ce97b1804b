package domain

import "errors"

// Common errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidID       = errors.New("invalid record id")
	ErrSessionNotFound = errors.New("workout session not found")
	ErrRoutineNotFound = errors.New("routine not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNoActiveSession = errors.New("no active workout session")
)
