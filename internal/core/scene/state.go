package scene

import "github.com/phanshaw/legendary-tribble/internal/core/schema/envelope"

// State is a named snapshot of component values across entities, used for
// presentation and timeline playback. A state references entity ids; it does
// not own the entities.
//
// Snapshots hold two kinds of envelope: restorable ones, whose types this
// process recognizes, and opaque ones of unrecognized types. Opaque entries
// are carried for persistence only; applying the state never installs them as
// live components, so they can never collide with the owning entity's vault.
type State struct {
	name      string
	snapshots map[EntityID][]envelope.Envelope
	opaque    map[EntityID][]envelope.Envelope
}

func newState(name string) *State {
	return &State{
		name:      name,
		snapshots: make(map[EntityID][]envelope.Envelope),
		opaque:    make(map[EntityID][]envelope.Envelope),
	}
}

func (s *State) Name() string { return s.name }

// Snapshot returns the captured restorable envelopes for one entity.
func (s *State) Snapshot(id EntityID) ([]envelope.Envelope, bool) {
	envs, ok := s.snapshots[id]
	if !ok {
		return nil, false
	}
	return cloneEnvelopes(envs), true
}

// Opaque returns the preserved unrecognized-type envelopes for one entity.
func (s *State) Opaque(id EntityID) ([]envelope.Envelope, bool) {
	envs, ok := s.opaque[id]
	if !ok || len(envs) == 0 {
		return nil, false
	}
	return cloneEnvelopes(envs), true
}

// EntityIDs lists the entities captured in this state.
func (s *State) EntityIDs() []EntityID {
	ids := make([]EntityID, 0, len(s.snapshots))
	seen := make(map[EntityID]struct{}, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for id := range s.opaque {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len reports how many entities the state captures.
func (s *State) Len() int { return len(s.EntityIDs()) }

func (s *State) set(id EntityID, envs []envelope.Envelope) {
	s.snapshots[id] = cloneEnvelopes(envs)
}

func (s *State) setOpaque(id EntityID, envs []envelope.Envelope) {
	s.opaque[id] = cloneEnvelopes(envs)
}

func (s *State) prune(id EntityID) {
	delete(s.snapshots, id)
	delete(s.opaque, id)
}

func cloneEnvelopes(envs []envelope.Envelope) []envelope.Envelope {
	out := make([]envelope.Envelope, len(envs))
	for i, e := range envs {
		out[i] = e.Clone()
	}
	return out
}
