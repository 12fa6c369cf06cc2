//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"
	"github.com/phanshaw/legendary-tribble/internal/core/document"
	"github.com/phanshaw/legendary-tribble/internal/core/observability/log"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return log.New(log.LevelDebug)
}

// ProvideDocumentCodec assembles a document codec over the builtin component
// registry.
func ProvideDocumentCodec() (*document.Codec, error) {
	wire.Build(log.Provide, BuiltinRegistry, NewDocumentCodec)
	return nil, nil
}
