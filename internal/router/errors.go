package router

import "errors"

var (
	// ErrValidatorUnavailable marks a validation type no validator services.
	ErrValidatorUnavailable = errors.New("validator unavailable")
	// ErrValidationTimeout marks a validator call that exceeded its timeout.
	ErrValidationTimeout = errors.New("validation timeout")
)
