package main

import (
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/logger"

	"github.com/go-kratos/kratos/v2/log"
)

// CronApp Cron 应用结构
type CronApp struct {
	orderUsecase *biz.OrderUsecase
	notifier     *biz.NotificationUsecase
	logger       log.Logger
}

// newLogger 创建 logger
func newLogger(c *conf.Log) log.Logger {
	cfg := &logger.Config{Level: "info", Format: "json", Output: "stdout"}
	if c != nil {
		cfg = &logger.Config{
			Level:      c.Level,
			Format:     c.Format,
			Output:     c.Output,
			FilePath:   c.FilePath,
			MaxSize:    c.MaxSize,
			MaxAge:     c.MaxAge,
			MaxBackups: c.MaxBackups,
			Compress:   c.Compress,
		}
	}
	return log.With(logger.NewLogger(cfg),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "mystamoura-cron",
	)
}
