package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/logger"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/telemetry"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/http"
	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name string = "mystamoura-storefront"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, notifier *biz.NotificationUsecase) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
		),
		// 等待后台邮件发送完成再关闭数据源
		kratos.AfterStop(func(context.Context) error {
			notifier.Wait()
			return nil
		}),
	)
}

func main() {
	flag.Parse()

	// 初始化 Kratos Config，环境变量覆盖文件中的 ${KEY:default} 占位符
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

	// 验证配置
	if err := bc.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}

	loggerInstance := logger.NewLogger(&logger.Config{
		Level:      bc.Log.Level,
		Format:     bc.Log.Format,
		Output:     bc.Log.Output,
		FilePath:   bc.Log.FilePath,
		MaxSize:    bc.Log.MaxSize,
		MaxAge:     bc.Log.MaxAge,
		MaxBackups: bc.Log.MaxBackups,
		Compress:   bc.Log.Compress,
	})
	defer loggerInstance.Close()

	// 添加基本字段
	baseLogger := log.With(loggerInstance,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
		"trace.id", tracing.TraceID(),
		"span.id", tracing.SpanID(),
	)
	helper := log.NewHelper(baseLogger)
	for _, w := range bc.Warnings() {
		helper.Warn(w)
	}

	shutdown, err := telemetry.Setup(context.Background(), &bc, Name, Version)
	if err != nil {
		panic(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	app, cleanup, err := wireApp(&bc, baseLogger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
