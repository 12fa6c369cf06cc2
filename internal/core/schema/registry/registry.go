package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/phanshaw/legendary-tribble/pkg/encoding"
)

// MigrationFunc upgrades a payload from one schema version to the next. It
// must be pure: no side effects, no access to anything but the payload.
type MigrationFunc func(payload map[string]any) (map[string]any, error)

// Descriptor declares a component type: its stable id, the schema version the
// running process considers current, and the single-step upgrade functions
// covering every version from 1 to CurrentVersion-1.
type Descriptor struct {
	TypeID         string
	CurrentVersion int
	Migrations     map[int]MigrationFunc
	// Codec decodes a payload at CurrentVersion into its typed value.
	// Optional; a nil codec leaves payloads as raw JSON.
	Codec encoding.PayloadCodec
}

// Validate checks the descriptor is internally consistent, in particular that
// the migration chain is complete with no gaps.
func (d Descriptor) Validate() error {
	if d.TypeID == "" {
		return fmt.Errorf("%w: empty typeId", ErrInvalidDescriptor)
	}
	if d.CurrentVersion < 1 {
		return fmt.Errorf("%w: %s currentVersion %d", ErrInvalidDescriptor, d.TypeID, d.CurrentVersion)
	}
	for v := 1; v < d.CurrentVersion; v++ {
		if d.Migrations[v] == nil {
			return fmt.Errorf("%w: %s has no migration for version %d -> %d",
				ErrInvalidDescriptor, d.TypeID, v, v+1)
		}
	}
	for v := range d.Migrations {
		if v < 1 || v >= d.CurrentVersion {
			return fmt.Errorf("%w: %s migration from version %d is outside 1..%d",
				ErrInvalidDescriptor, d.TypeID, v, d.CurrentVersion-1)
		}
	}
	return nil
}

// Registry maps component type ids to their schema descriptors. It is built
// once at startup by each component module and read-only afterwards; pass it
// by reference instead of relying on a process-wide singleton.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Descriptor
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{types: make(map[string]Descriptor)}
}

// Register adds a component type. Re-registering an identical descriptor is
// idempotent, to support hot reload during development; registering the same
// typeId with a different definition fails.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.types[d.TypeID]; ok {
		if !sameDefinition(existing, d) {
			return fmt.Errorf("%w: %s already registered at version %d",
				ErrDuplicateType, d.TypeID, existing.CurrentVersion)
		}
		return nil
	}
	r.types[d.TypeID] = d
	return nil
}

// Lookup returns the descriptor for a type id. Absence is an expected,
// handled condition, not a fault.
func (r *Registry) Lookup(typeID string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[typeID]
	return d, ok
}

// CurrentVersionOf is a convenience accessor for the current schema version
// of a type.
func (r *Registry) CurrentVersionOf(typeID string) (int, bool) {
	d, ok := r.Lookup(typeID)
	if !ok {
		return 0, false
	}
	return d.CurrentVersion, true
}

// Types lists the registered type ids in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// sameDefinition treats descriptors as identical when they agree on the
// current version and the set of migration steps. Function values cannot be
// compared, so step identity is by source version.
func sameDefinition(a, b Descriptor) bool {
	if a.CurrentVersion != b.CurrentVersion || len(a.Migrations) != len(b.Migrations) {
		return false
	}
	for v := range a.Migrations {
		if b.Migrations[v] == nil {
			return false
		}
	}
	return true
}
