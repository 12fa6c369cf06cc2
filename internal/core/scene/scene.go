package scene

import (
	"fmt"

	"github.com/phanshaw/legendary-tribble/internal/core/events/bus"
	"github.com/phanshaw/legendary-tribble/internal/core/observability/log"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/envelope"
)

// FormatVersion is the version of the persisted document shape this process
// writes. It versions the entities/components/states layout, not any
// individual component's payload schema.
const FormatVersion = 2

// Scene is the aggregate root of an editing session: an arena-style entity
// table keyed by id, a separate parent table forming a tree, an ordered list
// of named states, and free-form metadata. One scene is edited by one
// session at a time; the core takes no locks.
type Scene struct {
	formatVersion int
	entities      map[EntityID]*Entity
	order         []EntityID
	parents       map[EntityID]EntityID
	states        []*State
	metadata      map[string]string

	bus *bus.Bus
	log *log.Logger
}

// Option configures a Scene.
type Option func(*Scene)

// WithBus attaches an event bus; scene mutations publish change events on it.
func WithBus(b *bus.Bus) Option {
	return func(s *Scene) { s.bus = b }
}

// WithLogger sets the scene's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scene) { s.log = l }
}

// New creates an empty scene at the current format version.
func New(opts ...Option) *Scene {
	s := &Scene{
		formatVersion: FormatVersion,
		entities:      make(map[EntityID]*Entity),
		parents:       make(map[EntityID]EntityID),
		metadata:      make(map[string]string),
		log:           log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scene) FormatVersion() int { return s.formatVersion }

// CreateEntity adds an entity with a fresh unique id, optionally under a
// parent.
func (s *Scene) CreateEntity(name string, parentID *EntityID) (*Entity, error) {
	return s.AddEntity(newEntityID(), name, parentID)
}

// AddEntity adds an entity with a caller-supplied id. The document codec uses
// this to rebuild a scene with its persisted ids.
func (s *Scene) AddEntity(id EntityID, name string, parentID *EntityID) (*Entity, error) {
	if _, ok := s.entities[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, id)
	}
	if parentID != nil {
		if _, ok := s.entities[*parentID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrParentNotFound, *parentID)
		}
	}
	e := newEntity(id, name)
	s.entities[id] = e
	s.order = append(s.order, id)
	if parentID != nil {
		s.parents[id] = *parentID
	}
	s.publish(EventEntityCreated, EntityEvent{ID: id, Name: name})
	return e, nil
}

// Entity returns the entity with the given id.
func (s *Scene) Entity(id EntityID) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Entities returns the entities in creation (document) order.
func (s *Scene) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id])
	}
	return out
}

// Len reports the number of entities in the scene.
func (s *Scene) Len() int { return len(s.entities) }

// Parent returns the parent of an entity, if it has one.
func (s *Scene) Parent(id EntityID) (EntityID, bool) {
	p, ok := s.parents[id]
	return p, ok
}

// Children returns the direct children of an entity in document order.
func (s *Scene) Children(id EntityID) []EntityID {
	var out []EntityID
	for _, cid := range s.order {
		if p, ok := s.parents[cid]; ok && p == id {
			out = append(out, cid)
		}
	}
	return out
}

// Reparent moves an entity under a new parent, or to the root when parentID
// is nil. The parent must exist and the assignment must not create a cycle;
// detection walks the ancestor chain, bounded by entity count.
func (s *Scene) Reparent(id EntityID, parentID *EntityID) error {
	if _, ok := s.entities[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	if parentID == nil {
		delete(s.parents, id)
		return nil
	}
	if _, ok := s.entities[*parentID]; !ok {
		return fmt.Errorf("%w: %s", ErrParentNotFound, *parentID)
	}
	for cur, ok := *parentID, true; ok; cur, ok = s.parents[cur] {
		if cur == id {
			return fmt.Errorf("%w: %s", ErrCycle, id)
		}
	}
	s.parents[id] = *parentID
	return nil
}

// AttachComponent sets an entity's envelope for the envelope's type,
// replacing any existing envelope of that type. Components are a mapping
// keyed by type, never a list.
func (s *Scene) AttachComponent(id EntityID, env envelope.Envelope) error {
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	if err := env.Validate(); err != nil {
		return err
	}
	e.attach(env)
	s.publish(EventComponentAttached, ComponentEvent{Entity: id, TypeID: env.TypeID, Version: env.Version})
	return nil
}

// RemoveComponent detaches one component type from an entity. Removing an
// absent component is a no-op.
func (s *Scene) RemoveComponent(id EntityID, typeID string) error {
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	if e.remove(typeID) {
		s.publish(EventComponentRemoved, ComponentEvent{Entity: id, TypeID: typeID})
	}
	return nil
}

// DeleteEntity removes an entity, its components, and every descendant,
// depth-first. All removed ids are pruned from every state snapshot; states
// simply stop mentioning them rather than holding dangling references.
func (s *Scene) DeleteEntity(id EntityID) error {
	if _, ok := s.entities[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	for _, child := range s.Children(id) {
		if err := s.DeleteEntity(child); err != nil {
			return err
		}
	}
	name := s.entities[id].name
	delete(s.entities, id)
	delete(s.parents, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for _, st := range s.states {
		st.prune(id)
	}
	s.publish(EventEntityDeleted, EntityEvent{ID: id, Name: name})
	return nil
}

// CaptureState snapshots the current component values of every entity into a
// new state, or overwrites the state of that name if it already exists.
func (s *Scene) CaptureState(name string) *State {
	st, ok := s.findState(name)
	if !ok {
		st = newState(name)
		s.states = append(s.states, st)
	} else {
		st.snapshots = make(map[EntityID][]envelope.Envelope)
	}
	for id, e := range s.entities {
		st.set(id, e.snapshot())
	}
	s.publish(EventStateCaptured, StateEvent{Name: name, Entities: st.Len()})
	return st
}

// ApplyState overwrites the live component values of every entity captured in
// the named state. Entities in the scene but absent from the snapshot are
// untouched; snapshot entries whose entity no longer exists are skipped.
func (s *Scene) ApplyState(name string) error {
	st, ok := s.findState(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrStateNotFound, name)
	}
	for id, envs := range st.snapshots {
		e, ok := s.entities[id]
		if !ok {
			continue
		}
		e.restore(envs)
	}
	s.publish(EventStateApplied, StateEvent{Name: name, Entities: st.Len()})
	return nil
}

// RestoreState installs a state with the given snapshots, appended in call
// order. The document codec uses this to rebuild a scene's states on load.
// Envelopes of unrecognized types go in opaque: they are preserved for the
// next save but never applied as live components.
func (s *Scene) RestoreState(name string, snapshots, opaque map[EntityID][]envelope.Envelope) *State {
	st, ok := s.findState(name)
	if !ok {
		st = newState(name)
		s.states = append(s.states, st)
	}
	st.snapshots = make(map[EntityID][]envelope.Envelope, len(snapshots))
	for id, envs := range snapshots {
		st.set(id, envs)
	}
	st.opaque = make(map[EntityID][]envelope.Envelope, len(opaque))
	for id, envs := range opaque {
		st.setOpaque(id, envs)
	}
	return st
}

// States returns the states in presentation order.
func (s *Scene) States() []*State {
	return append([]*State(nil), s.states...)
}

// State returns the state with the given name.
func (s *Scene) State(name string) (*State, bool) {
	return s.findState(name)
}

// Metadata returns a copy of the scene's free-form metadata map.
func (s *Scene) Metadata() map[string]string {
	out := make(map[string]string, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}
	return out
}

// SetMetadata sets one metadata entry.
func (s *Scene) SetMetadata(key, value string) {
	s.metadata[key] = value
}

func (s *Scene) findState(name string) (*State, bool) {
	for _, st := range s.states {
		if st.name == name {
			return st, true
		}
	}
	return nil, false
}

func (s *Scene) publish(eventType string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, "scene", data)
}
