package domain

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrBreakfastNotFound    = errors.New("breakfast order not found")
)

var (
	ErrNoAvailableSpots = errors.New("no available spots")
	ErrNoActiveRun      = errors.New("no active run registration")
)

var (
	ErrValidation = errors.New("validation error")
)
