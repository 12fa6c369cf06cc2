package injector

import (
	"github.com/phanshaw/legendary-tribble/internal/core/components"
	"github.com/phanshaw/legendary-tribble/internal/core/document"
	"github.com/phanshaw/legendary-tribble/internal/core/observability/log"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/registry"
)

// BuiltinRegistry builds a type registry pre-loaded with the builtin
// component descriptors.
func BuiltinRegistry() (*registry.Registry, error) {
	reg := registry.New()
	if err := components.RegisterBuiltins(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// NewDocumentCodec adapts document.NewCodec's variadic options to a fixed
// provider signature.
func NewDocumentCodec(reg *registry.Registry, logger *log.Logger) *document.Codec {
	return document.NewCodec(reg, document.WithLogger(logger))
}
