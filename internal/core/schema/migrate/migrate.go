package migrate

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/phanshaw/legendary-tribble/internal/core/observability/log"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/envelope"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/registry"
)

// Engine upgrades component envelopes to the current schema version known to
// a registry. Migration is forward-only: a single-step function per version
// boundary, applied sequentially. An envelope is always migrated in full
// before it is handed to the scene graph; in-memory state is never at a stale
// version.
type Engine struct {
	reg *registry.Registry
	log *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a migration engine over a registry.
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{reg: reg, log: log.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of migrating a single envelope.
type Result struct {
	Envelope envelope.Envelope
	// Resolved is false when the envelope's type is not in the registry.
	// The envelope is returned untouched; the caller routes it to the
	// unknown-component vault.
	Resolved bool
}

// Migrate brings an envelope to its type's current version.
//
// Unregistered types are not an error: the envelope comes back unchanged and
// unresolved. A version equal to current is a no-op. A version ahead of
// current fails with FutureVersionError; this process never downgrades a
// payload written by newer software. Anything else walks the single-step
// migration chain until the current version is reached.
func (e *Engine) Migrate(env envelope.Envelope) (Result, error) {
	if err := env.Validate(); err != nil {
		return Result{}, err
	}

	desc, ok := e.reg.Lookup(env.TypeID)
	if !ok {
		e.log.Debug("unrecognized component type, preserving verbatim",
			zap.String("typeId", env.TypeID), zap.Int("version", env.Version))
		return Result{Envelope: env}, nil
	}

	if env.Version == desc.CurrentVersion {
		return Result{Envelope: env, Resolved: true}, nil
	}
	if env.Version > desc.CurrentVersion {
		return Result{}, &FutureVersionError{
			TypeID:  env.TypeID,
			Version: env.Version,
			Current: desc.CurrentVersion,
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return Result{}, &MigrationStepError{
			TypeID:  env.TypeID,
			Version: env.Version,
			Err:     fmt.Errorf("payload is not a JSON object: %w", err),
		}
	}
	if payload == nil {
		payload = make(map[string]any)
	}

	for v := env.Version; v < desc.CurrentVersion; v++ {
		step := desc.Migrations[v]
		if step == nil {
			// The registry validates chains at registration, so a
			// hole here is a programming error. Fail fast, never skip.
			return Result{}, &MigrationStepError{
				TypeID:  env.TypeID,
				Version: v,
				Err:     ErrMissingStep,
			}
		}
		next, err := step(payload)
		if err != nil {
			return Result{}, &MigrationStepError{TypeID: env.TypeID, Version: v, Err: err}
		}
		payload = next
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Result{}, &MigrationStepError{
			TypeID:  env.TypeID,
			Version: desc.CurrentVersion,
			Err:     err,
		}
	}
	if desc.Codec != nil {
		if _, err = desc.Codec.Decode(raw); err != nil {
			return Result{}, &MigrationStepError{
				TypeID:  env.TypeID,
				Version: desc.CurrentVersion,
				Err:     fmt.Errorf("migrated payload does not match current schema: %w", err),
			}
		}
	}

	e.log.Debug("migrated component payload",
		zap.String("typeId", env.TypeID),
		zap.Int("from", env.Version),
		zap.Int("to", desc.CurrentVersion))

	migrated := envelope.Envelope{
		TypeID:  env.TypeID,
		Version: desc.CurrentVersion,
		Payload: raw,
	}
	return Result{Envelope: migrated, Resolved: true}, nil
}
