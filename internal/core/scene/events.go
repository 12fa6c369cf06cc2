package scene

// Event types published on the scene's bus after successful mutations.
const (
	EventEntityCreated     = "scene.entity.created"
	EventEntityDeleted     = "scene.entity.deleted"
	EventComponentAttached = "scene.component.attached"
	EventComponentRemoved  = "scene.component.removed"
	EventStateCaptured     = "scene.state.captured"
	EventStateApplied      = "scene.state.applied"
)

// EntityEvent is the payload of entity lifecycle events.
type EntityEvent struct {
	ID   EntityID
	Name string
}

// ComponentEvent is the payload of component attach/remove events.
type ComponentEvent struct {
	Entity  EntityID
	TypeID  string
	Version int
}

// StateEvent is the payload of state capture/apply events.
type StateEvent struct {
	Name     string
	Entities int
}
