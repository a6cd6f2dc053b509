package devices

import "errors"

var (
	ErrInvalidViewMode = errors.New("invalid view mode")
	ErrInvalidInterval = errors.New("poll interval must be positive")
)
