package registry

import "errors"

// Registry-specific errors
var (
	ErrDuplicateType     = errors.New("component type already registered with a different definition")
	ErrInvalidDescriptor = errors.New("invalid component type descriptor")
)
