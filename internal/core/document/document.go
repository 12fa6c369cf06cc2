package document

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/phanshaw/legendary-tribble/internal/core/observability/log"
	"github.com/phanshaw/legendary-tribble/internal/core/scene"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/envelope"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/migrate"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/registry"
)

// Format versions this process can read. Version 1 predates scene states;
// loading one yields a scene with an empty states list.
const (
	FormatVersion    = scene.FormatVersion
	minFormatVersion = 1
)

// Codec serializes scenes to the persisted document format and back. Load
// fully migrates every component envelope through the migration engine;
// envelopes of unregistered types are preserved verbatim in their entity's
// vault.
type Codec struct {
	reg    *registry.Registry
	engine *migrate.Engine
	log    *log.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the codec's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Codec) { c.log = l }
}

// NewCodec creates a codec over a component type registry.
func NewCodec(reg *registry.Registry, opts ...Option) *Codec {
	c := &Codec{reg: reg, log: log.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.engine = migrate.NewEngine(reg, migrate.WithLogger(c.log))
	return c
}

// Persisted document shape.
type sceneDoc struct {
	FormatVersion int               `json:"formatVersion"`
	Entities      []entityDoc       `json:"entities"`
	States        []stateDoc        `json:"states,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Digest        string            `json:"digest,omitempty"`
}

type entityDoc struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	ParentID   *string             `json:"parentId"`
	Components []envelope.Envelope `json:"components"`
}

type stateDoc struct {
	Name            string                         `json:"name"`
	EntitySnapshots map[string][]envelope.Envelope `json:"entitySnapshots"`
}

// Load reads a JSON scene document, migrates every component payload to its
// current version, and returns the scene. The scene is built privately and
// returned only on full success: a failed or cancelled load never exposes a
// partially migrated scene. ctx is checked between top-level entities.
func (c *Codec) Load(ctx context.Context, r io.Reader, opts ...scene.Option) (*scene.Scene, error) {
	var doc sceneDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return c.build(ctx, &doc, opts)
}

func (c *Codec) build(ctx context.Context, doc *sceneDoc, opts []scene.Option) (*scene.Scene, error) {
	if doc.FormatVersion > FormatVersion {
		return nil, &UnsupportedFormatError{Version: doc.FormatVersion, Supported: FormatVersion}
	}
	if doc.FormatVersion < minFormatVersion {
		return nil, fmt.Errorf("%w: formatVersion %d", ErrMalformedDocument, doc.FormatVersion)
	}

	s := scene.New(opts...)

	// Parents may appear after their children in the document, so entities
	// are inserted first and parent links resolved in a second pass.
	for _, ed := range doc.Entities {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scene load cancelled: %w", err)
		}
		if ed.ID == "" {
			return nil, fmt.Errorf("%w: entity with empty id", ErrMalformedDocument)
		}
		ent, err := s.AddEntity(scene.EntityID(ed.ID), ed.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		for _, env := range ed.Components {
			res, err := c.engine.Migrate(env)
			if err != nil {
				return nil, fmt.Errorf("entity %s: %w", ed.ID, err)
			}
			if !res.Resolved {
				ent.Unknown().Put(res.Envelope)
				continue
			}
			if err = s.AttachComponent(ent.ID(), res.Envelope); err != nil {
				return nil, err
			}
		}
	}
	for _, ed := range doc.Entities {
		if ed.ParentID == nil {
			continue
		}
		pid := scene.EntityID(*ed.ParentID)
		if err := s.Reparent(scene.EntityID(ed.ID), &pid); err != nil {
			return nil, fmt.Errorf("%w: entity %s: %v", ErrMalformedDocument, ed.ID, err)
		}
	}

	for _, sd := range doc.States {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scene load cancelled: %w", err)
		}
		snaps := make(map[scene.EntityID][]envelope.Envelope, len(sd.EntitySnapshots))
		opaque := make(map[scene.EntityID][]envelope.Envelope)
		for id, envs := range sd.EntitySnapshots {
			migrated := make([]envelope.Envelope, 0, len(envs))
			for _, env := range envs {
				res, err := c.engine.Migrate(env)
				if err != nil {
					return nil, fmt.Errorf("state %q entity %s: %w", sd.Name, id, err)
				}
				// Unresolved types must never become restorable: applying
				// the state would install them as live components next to
				// the entity's vaulted copy, and the next save would emit
				// the same typeId twice.
				if !res.Resolved {
					opaque[scene.EntityID(id)] = append(opaque[scene.EntityID(id)], res.Envelope)
					continue
				}
				migrated = append(migrated, res.Envelope)
			}
			snaps[scene.EntityID(id)] = migrated
		}
		s.RestoreState(sd.Name, snaps, opaque)
	}

	for k, v := range doc.Metadata {
		s.SetMetadata(k, v)
	}

	if doc.Digest != "" {
		if got := c.digest(doc); got != doc.Digest {
			c.log.Warn("scene document digest mismatch",
				zap.String("expected", doc.Digest), zap.String("actual", got))
		}
	}

	c.log.Info("scene document loaded",
		zap.Int("formatVersion", doc.FormatVersion),
		zap.Int("entities", s.Len()),
		zap.Int("states", len(doc.States)))
	return s, nil
}

// Save writes the scene as a JSON document at the supported format version.
// Live envelopes are emitted in type id order followed by vaulted unknown
// envelopes verbatim, in intake order.
func (c *Codec) Save(s *scene.Scene, w io.Writer) error {
	doc, err := c.document(s)
	if err != nil {
		return err
	}
	// Compact output with HTML escaping off keeps vaulted payload bytes
	// identical across a load/save cycle; an indenting or escaping encoder
	// would rewrite them.
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode scene document: %w", err)
	}
	c.log.Info("scene document saved",
		zap.Int("entities", s.Len()),
		zap.String("digest", doc.Digest))
	return nil
}

func (c *Codec) document(s *scene.Scene) (*sceneDoc, error) {
	doc := &sceneDoc{
		FormatVersion: FormatVersion,
		Entities:      make([]entityDoc, 0, s.Len()),
		Metadata:      s.Metadata(),
	}
	if len(doc.Metadata) == 0 {
		doc.Metadata = nil
	}

	for _, ent := range s.Entities() {
		if err := ent.Unknown().Verify(); err != nil {
			return nil, err
		}
		ed := entityDoc{
			ID:         string(ent.ID()),
			Name:       ent.Name(),
			Components: ent.Components(),
		}
		if pid, ok := s.Parent(ent.ID()); ok {
			p := string(pid)
			ed.ParentID = &p
		}
		ed.Components = append(ed.Components, ent.Unknown().List()...)
		doc.Entities = append(doc.Entities, ed)
	}

	for _, st := range s.States() {
		sd := stateDoc{
			Name:            st.Name(),
			EntitySnapshots: make(map[string][]envelope.Envelope, st.Len()),
		}
		for _, id := range st.EntityIDs() {
			envs, _ := st.Snapshot(id)
			if opaque, ok := st.Opaque(id); ok {
				envs = append(envs, opaque...)
			}
			sd.EntitySnapshots[string(id)] = envs
		}
		doc.States = append(doc.States, sd)
	}

	doc.Digest = c.digest(doc)
	return doc, nil
}

// digest hashes the entity and state sections of a document. Metadata is
// excluded so that re-stamping creation info does not invalidate content
// digests.
func (c *Codec) digest(doc *sceneDoc) string {
	content, err := json.Marshal(struct {
		Entities []entityDoc `json:"entities"`
		States   []stateDoc  `json:"states,omitempty"`
	}{Entities: doc.Entities, States: doc.States})
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}
