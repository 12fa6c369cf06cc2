package scene

import (
	"sort"

	"github.com/google/uuid"

	"github.com/phanshaw/legendary-tribble/internal/core/schema/envelope"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/vault"
)

// EntityID identifies an entity within a scene. Ids are stable across states
// and across save/load.
type EntityID string

func newEntityID() EntityID {
	return EntityID(uuid.NewString())
}

// Entity is a scene participant: a name, at most one component envelope per
// type, and a vault of envelopes whose types this process does not recognize.
// Parent links live in the scene's parent table, not on the entity; the scene
// graph owns entity lifetime.
type Entity struct {
	id         EntityID
	name       string
	components map[string]envelope.Envelope
	unknown    *vault.Vault
}

func newEntity(id EntityID, name string) *Entity {
	return &Entity{
		id:         id,
		name:       name,
		components: make(map[string]envelope.Envelope),
		unknown:    vault.New(),
	}
}

func (e *Entity) ID() EntityID { return e.id }

func (e *Entity) Name() string { return e.name }

// Component returns the live envelope of one type.
func (e *Entity) Component(typeID string) (envelope.Envelope, bool) {
	env, ok := e.components[typeID]
	if !ok {
		return envelope.Envelope{}, false
	}
	return env.Clone(), true
}

// HasComponent reports whether a live envelope of the type is attached.
func (e *Entity) HasComponent(typeID string) bool {
	_, ok := e.components[typeID]
	return ok
}

// Components returns the live envelopes ordered by type id.
func (e *Entity) Components() []envelope.Envelope {
	ids := make([]string, 0, len(e.components))
	for id := range e.components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]envelope.Envelope, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.components[id].Clone())
	}
	return out
}

// Unknown exposes the entity's preserved unrecognized components for
// diagnostics and for re-emission on save.
func (e *Entity) Unknown() *vault.Vault { return e.unknown }

func (e *Entity) attach(env envelope.Envelope) {
	e.components[env.TypeID] = env.Clone()
}

func (e *Entity) remove(typeID string) bool {
	if _, ok := e.components[typeID]; !ok {
		return false
	}
	delete(e.components, typeID)
	return true
}

// snapshot deep-copies the live registered envelopes. Vaulted unknowns are
// deliberately not captured: they are never mutated, so a snapshot cannot
// change them, and replaying one must not delete them.
func (e *Entity) snapshot() []envelope.Envelope {
	return e.Components()
}

func (e *Entity) restore(envs []envelope.Envelope) {
	e.components = make(map[string]envelope.Envelope, len(envs))
	for _, env := range envs {
		e.components[env.TypeID] = env.Clone()
	}
}
