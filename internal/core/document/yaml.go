package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/phanshaw/legendary-tribble/internal/core/scene"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/envelope"
)

// YAML mirror of the document shape. Payloads arrive as plain maps and are
// canonicalized to JSON before entering the core, so every envelope in memory
// is raw JSON regardless of the source encoding.
type yamlDoc struct {
	FormatVersion int               `yaml:"formatVersion"`
	Entities      []yamlEntity      `yaml:"entities"`
	States        []yamlState       `yaml:"states,omitempty"`
	Metadata      map[string]string `yaml:"metadata,omitempty"`
	Digest        string            `yaml:"digest,omitempty"`
}

type yamlEntity struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	ParentID   *string        `yaml:"parentId"`
	Components []yamlEnvelope `yaml:"components"`
}

type yamlState struct {
	Name            string                    `yaml:"name"`
	EntitySnapshots map[string][]yamlEnvelope `yaml:"entitySnapshots"`
}

type yamlEnvelope struct {
	TypeID  string `yaml:"typeId"`
	Version *int   `yaml:"version"`
	Payload any    `yaml:"payload"`
}

// LoadYAML reads a YAML scene document. Semantics match Load.
func (c *Codec) LoadYAML(ctx context.Context, r io.Reader, opts ...scene.Option) (*scene.Scene, error) {
	var yd yamlDoc
	if err := yaml.NewDecoder(r).Decode(&yd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	doc, err := yd.toDoc()
	if err != nil {
		return nil, err
	}
	// A YAML digest was computed over JSON-canonical bytes at save time and
	// survives the conversion above, so build verifies it the same way.
	return c.build(ctx, doc, opts)
}

// SaveYAML writes the scene as a YAML document at the supported format
// version. Vaulted payloads are emitted as structured values; byte-for-byte
// preservation is a property of the JSON encoding.
func (c *Codec) SaveYAML(s *scene.Scene, w io.Writer) error {
	doc, err := c.document(s)
	if err != nil {
		return err
	}
	yd, err := fromDoc(doc)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(yd); err != nil {
		return fmt.Errorf("encode scene document: %w", err)
	}
	return nil
}

func (yd *yamlDoc) toDoc() (*sceneDoc, error) {
	doc := &sceneDoc{
		FormatVersion: yd.FormatVersion,
		Metadata:      yd.Metadata,
		Digest:        yd.Digest,
	}
	for _, ye := range yd.Entities {
		ed := entityDoc{ID: ye.ID, Name: ye.Name, ParentID: ye.ParentID}
		for _, yv := range ye.Components {
			env, err := yv.toEnvelope()
			if err != nil {
				return nil, fmt.Errorf("entity %s: %w", ye.ID, err)
			}
			ed.Components = append(ed.Components, env)
		}
		doc.Entities = append(doc.Entities, ed)
	}
	for _, ys := range yd.States {
		sd := stateDoc{
			Name:            ys.Name,
			EntitySnapshots: make(map[string][]envelope.Envelope, len(ys.EntitySnapshots)),
		}
		for id, yvs := range ys.EntitySnapshots {
			envs := make([]envelope.Envelope, 0, len(yvs))
			for _, yv := range yvs {
				env, err := yv.toEnvelope()
				if err != nil {
					return nil, fmt.Errorf("state %q entity %s: %w", ys.Name, id, err)
				}
				envs = append(envs, env)
			}
			sd.EntitySnapshots[id] = envs
		}
		doc.States = append(doc.States, sd)
	}
	return doc, nil
}

func fromDoc(doc *sceneDoc) (*yamlDoc, error) {
	yd := &yamlDoc{
		FormatVersion: doc.FormatVersion,
		Metadata:      doc.Metadata,
		Digest:        doc.Digest,
	}
	for _, ed := range doc.Entities {
		ye := yamlEntity{ID: ed.ID, Name: ed.Name, ParentID: ed.ParentID}
		for _, env := range ed.Components {
			yv, err := fromEnvelope(env)
			if err != nil {
				return nil, err
			}
			ye.Components = append(ye.Components, yv)
		}
		yd.Entities = append(yd.Entities, ye)
	}
	for _, sd := range doc.States {
		ys := yamlState{
			Name:            sd.Name,
			EntitySnapshots: make(map[string][]yamlEnvelope, len(sd.EntitySnapshots)),
		}
		for id, envs := range sd.EntitySnapshots {
			yvs := make([]yamlEnvelope, 0, len(envs))
			for _, env := range envs {
				yv, err := fromEnvelope(env)
				if err != nil {
					return nil, err
				}
				yvs = append(yvs, yv)
			}
			ys.EntitySnapshots[id] = yvs
		}
		yd.States = append(yd.States, ys)
	}
	return yd, nil
}

func (yv yamlEnvelope) toEnvelope() (envelope.Envelope, error) {
	if yv.TypeID == "" {
		return envelope.Envelope{}, fmt.Errorf("%w: missing typeId", envelope.ErrMalformedEnvelope)
	}
	if yv.Version == nil {
		return envelope.Envelope{}, fmt.Errorf("%w: typeId %q missing version",
			envelope.ErrMalformedEnvelope, yv.TypeID)
	}
	if yv.Payload == nil {
		return envelope.Envelope{}, fmt.Errorf("%w: typeId %q missing payload",
			envelope.ErrMalformedEnvelope, yv.TypeID)
	}
	raw, err := marshalNoEscape(normalizeYAML(yv.Payload))
	if err != nil {
		return envelope.Envelope{}, fmt.Errorf("%w: typeId %q payload: %v",
			envelope.ErrMalformedEnvelope, yv.TypeID, err)
	}
	return envelope.New(yv.TypeID, *yv.Version, raw)
}

func fromEnvelope(env envelope.Envelope) (yamlEnvelope, error) {
	var payload any
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return yamlEnvelope{}, fmt.Errorf("component %q payload: %w", env.TypeID, err)
	}
	v := env.Version
	return yamlEnvelope{TypeID: env.TypeID, Version: &v, Payload: payload}, nil
}

// marshalNoEscape canonicalizes a payload to JSON without HTML escaping,
// matching what the JSON document encoder writes, so a YAML-to-JSON
// conversion does not rewrite `<`, `>`, or `&` in payload text.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// normalizeYAML rewrites yaml.v3's map[string]any values so nested
// map[any]any keys (legal in YAML, not in JSON) become strings.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
