package scene

import "errors"

// Scene graph errors. These abort the single offending operation and leave
// the scene unchanged.
var (
	ErrEntityNotFound  = errors.New("entity not found in scene")
	ErrDuplicateEntity = errors.New("entity id already present in scene")
	ErrParentNotFound  = errors.New("parent entity not found in scene")
	ErrCycle           = errors.New("parent assignment would create a cycle")
	ErrStateNotFound   = errors.New("scene state not found")
)
