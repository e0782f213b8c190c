package service

import "errors"

// Common errors
var (
	ErrObservationNotFound     = errors.New("observation not found")
	ErrActiveObservationExists = errors.New("supervisor already has an observation in progress")
	ErrObservationCompleted    = errors.New("observation is already completed")
	ErrRecordNotFound          = errors.New("record not found")

	ErrStatsUnavailable = errors.New("could not load statistics")
	ErrSuperseded       = errors.New("superseded by a newer request")

	ErrOperatorNotFound = errors.New("operator not found")

	ErrUserNotFound         = errors.New("user not found")
	ErrObserverIDRequired   = errors.New("observer id is required")
	ErrObserverIDTaken      = errors.New("observer id already registered")
	ErrInvalidCredentials   = errors.New("invalid observer id or password")
	ErrAccountDisabled      = errors.New("account is disabled")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrCannotDeleteSelf     = errors.New("cannot delete your own account")
	ErrCannotDeactivateSelf = errors.New("cannot deactivate your own account")
)
