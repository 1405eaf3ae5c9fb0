//go:build wireinject
// +build wireinject

package main

import (
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/telemetry"

	"github.com/google/wire"
)

// wireApp 初始化应用
func wireApp(*conf.Bootstrap) (*CronApp, func(), error) {
	panic(wire.Build(
		// Logger
		wire.FieldsOf(new(*conf.Bootstrap), "Log"),
		newLogger,

		// Data 层
		data.ProviderSet,

		// Biz 层
		biz.ProviderSet,
		telemetry.NewMetrics,

		// App 结构
		wire.Struct(new(CronApp), "*"),
	))
}
