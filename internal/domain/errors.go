package domain

import "errors"

// Validation errors returned by request types
var (
	ErrIncompleteHeader = errors.New("site, shift, group and observation type are required")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrOperatorRequired = errors.New("operator name is required")
	ErrInvalidAnswer    = errors.New("checklist answers must be Si, No or N/A")
	ErrNameRequired     = errors.New("name is required")
	ErrInvalidSite      = errors.New("unknown site")
	ErrInvalidRole      = errors.New("unknown role")
)
