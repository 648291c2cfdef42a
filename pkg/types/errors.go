package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyPath        = errors.New("path is required")
	ErrInvalidLineRange = errors.New("start line must be positive and before or equal to end line")
	ErrUnknownSource    = errors.New("unknown retrieval source")
)
