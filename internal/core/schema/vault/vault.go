package vault

import (
	"fmt"

	"github.com/phanshaw/legendary-tribble/internal/core/schema/envelope"
)

// Vault preserves component envelopes whose type the running process does not
// recognize. Entries are stored verbatim, excluded from all type-specific
// logic, and re-emitted unchanged on the next save, so a document written by
// newer software loses no data when edited here. Entries leave the vault only
// through explicit removal.
type Vault struct {
	order []string
	items map[string]entry
}

type entry struct {
	env    envelope.Envelope
	digest uint64
}

// New returns an empty vault.
func New() *Vault {
	return &Vault{items: make(map[string]entry)}
}

// Put stores an envelope verbatim, keyed by type id. A second envelope of the
// same type replaces the first, mirroring the one-component-per-type rule of
// the scene graph. The payload digest is recorded at intake so later emits
// can prove the bytes were never touched.
func (v *Vault) Put(env envelope.Envelope) {
	if _, ok := v.items[env.TypeID]; !ok {
		v.order = append(v.order, env.TypeID)
	}
	c := env.Clone()
	v.items[env.TypeID] = entry{env: c, digest: c.PayloadDigest()}
}

// Get returns the preserved envelope for a type id.
func (v *Vault) Get(typeID string) (envelope.Envelope, bool) {
	e, ok := v.items[typeID]
	if !ok {
		return envelope.Envelope{}, false
	}
	return e.env.Clone(), true
}

// List returns the preserved envelopes in intake order, for diagnostics and
// for re-emission on save.
func (v *Vault) List() []envelope.Envelope {
	out := make([]envelope.Envelope, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.items[id].env.Clone())
	}
	return out
}

// Remove drops one preserved envelope. This is the only way an entry leaves
// the vault short of deleting its owning entity.
func (v *Vault) Remove(typeID string) {
	if _, ok := v.items[typeID]; !ok {
		return
	}
	delete(v.items, typeID)
	for i, id := range v.order {
		if id == typeID {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of preserved envelopes.
func (v *Vault) Len() int { return len(v.items) }

// Verify re-hashes every preserved payload against its intake digest.
func (v *Vault) Verify() error {
	for id, e := range v.items {
		if e.env.PayloadDigest() != e.digest {
			return fmt.Errorf("vaulted component %q was mutated after intake", id)
		}
	}
	return nil
}

// Clone returns an independent copy of the vault.
func (v *Vault) Clone() *Vault {
	c := New()
	for _, id := range v.order {
		c.order = append(c.order, id)
		e := v.items[id]
		c.items[id] = entry{env: e.env.Clone(), digest: e.digest}
	}
	return c
}
