package components

import (
	"github.com/phanshaw/legendary-tribble/internal/core/schema/registry"
	"github.com/phanshaw/legendary-tribble/pkg/encoding"
)

// Component type ids. Stable forever; renaming one orphans every saved scene.
const (
	TypeTransform  = "transform"
	TypeAnnotation = "annotation"
	TypeMaterial   = "material"
)

// Vec3 is a three-component vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Transform places an entity in the scene. Schema history:
// v1 position, v2 +rotation, v3 +scale.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
	Scale    Vec3 `json:"scale"`
}

// Annotation is a text label pinned to an entity. Schema history:
// v1 text, v2 +color.
type Annotation struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Material is a basic surface description, at its first schema version.
type Material struct {
	Color     string  `json:"color"`
	Metallic  float64 `json:"metallic"`
	Roughness float64 `json:"roughness"`
}

// RegisterBuiltins registers the built-in component types into a registry.
func RegisterBuiltins(r *registry.Registry) error {
	descriptors := []registry.Descriptor{
		{
			TypeID:         TypeTransform,
			CurrentVersion: 3,
			Migrations: map[int]registry.MigrationFunc{
				1: transformV1toV2,
				2: transformV2toV3,
			},
			Codec: encoding.JSONCodec[Transform]{},
		},
		{
			TypeID:         TypeAnnotation,
			CurrentVersion: 2,
			Migrations: map[int]registry.MigrationFunc{
				1: annotationV1toV2,
			},
			Codec: encoding.JSONCodec[Annotation]{},
		},
		{
			TypeID:         TypeMaterial,
			CurrentVersion: 1,
			Codec:          encoding.JSONCodec[Material]{},
		},
	}
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// transformV1toV2 adds a zero rotation to position-only transforms.
func transformV1toV2(payload map[string]any) (map[string]any, error) {
	payload["rotation"] = map[string]any{"x": 0.0, "y": 0.0, "z": 0.0}
	return payload, nil
}

// transformV2toV3 adds an identity scale.
func transformV2toV3(payload map[string]any) (map[string]any, error) {
	payload["scale"] = map[string]any{"x": 1.0, "y": 1.0, "z": 1.0}
	return payload, nil
}

// annotationV1toV2 gives unlabeled annotations the default white color.
func annotationV1toV2(payload map[string]any) (map[string]any, error) {
	payload["color"] = "#ffffff"
	return payload, nil
}
