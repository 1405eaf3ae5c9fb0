//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/telemetry"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/server"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Bootstrap, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, telemetry.NewMetrics, newApp))
}
