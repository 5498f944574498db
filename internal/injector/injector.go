//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/holoray/holoray/internal/core/observability/log"
	"github.com/holoray/holoray/internal/gateway"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return log.New(log.LevelDebug)
}

// ProvideGateway assembles a gateway server from the default config and
// the shared logger.
func ProvideGateway() *gateway.Server {
	wire.Build(
		gateway.DefaultConfig,
		log.Provide,
		wire.Bind(new(log.Log), new(*log.Logger)),
		gateway.NewServer,
	)
	return nil
}
