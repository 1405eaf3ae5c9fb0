package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
	flagspec string
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
	flag.StringVar(&flagspec, "spec", "0 0 * * * *", "stale order check schedule (with seconds)")
}

func main() {
	flag.Parse()

	// 初始化配置
	c := config.New(
		config.WithSource(
			env.NewSource(),
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}
	if err := bc.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}

	// 初始化应用
	app, cleanup, err := wireApp(&bc)
	if err != nil {
		panic(err)
	}
	defer cleanup()
	helper := log.NewHelper(log.With(app.logger, "module", "cron"))

	// 创建定时任务调度器（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds())

	// 超时未支付订单检查，只上报不修改订单
	_, err = cronScheduler.AddFunc(flagspec, func() {
		helper.Info("[CRON] Starting stale order check...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		count, err := app.orderUsecase.ReportStaleOrders(ctx, time.Now())
		if err != nil {
			helper.Errorf("[CRON] Error checking stale orders: %v", err)
			return
		}
		helper.Infof("[CRON] Finished stale order check, %d order(s) awaiting payment", count)
	})
	if err != nil {
		helper.Errorf("Failed to add stale order job: %v", err)
		return
	}

	// 启动定时任务
	cronScheduler.Start()
	helper.Infof("Cron jobs started, stale order check: %s", flagspec)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	helper.Info("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		helper.Info("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		helper.Warn("Cron jobs forced to stop after timeout")
	}
	app.notifier.Wait()
}
