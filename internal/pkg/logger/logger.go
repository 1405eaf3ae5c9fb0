// Package logger adapts zap to the kratos log.Logger interface, with optional
// file output rotated by lumberjack.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, file, both
	FilePath   string
	MaxSize    int // MB
	MaxAge     int // days
	MaxBackups int
	Compress   bool
}

var _ log.Logger = (*Logger)(nil)

// Logger 基于 zap 的 kratos 日志实现
type Logger struct {
	zl     *zap.Logger
	closer io.Closer
}

// NewLogger 创建日志实例
func NewLogger(c *Config) *Logger {
	if c == nil {
		c = &Config{}
	}
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	// 时间和调用位置由 kratos valuer 提供
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.MessageKey = ""
	var enc zapcore.Encoder
	if c.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	var (
		sinks  []zapcore.WriteSyncer
		closer io.Closer
	)
	if c.Output == "" || c.Output == "stdout" || c.Output == "both" {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if (c.Output == "file" || c.Output == "both") && c.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    c.MaxSize,
			MaxAge:     c.MaxAge,
			MaxBackups: c.MaxBackups,
			Compress:   c.Compress,
		}
		sinks = append(sinks, zapcore.AddSync(lj))
		closer = lj
	}
	if len(sinks) == 0 {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)
	return &Logger{zl: zap.New(core), closer: closer}
}

// Log implements log.Logger.
func (l *Logger) Log(level log.Level, keyvals ...any) error {
	if len(keyvals) == 0 {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "KEYVALS UNPAIRED")
	}
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(keyvals[i]), keyvals[i+1]))
	}

	switch level {
	case log.LevelDebug:
		l.zl.Debug("", fields...)
	case log.LevelWarn:
		l.zl.Warn("", fields...)
	case log.LevelError:
		l.zl.Error("", fields...)
	case log.LevelFatal:
		// kratos 的 Fatal 由 Helper 负责退出
		l.zl.Error("", append(fields, zap.Bool("fatal", true))...)
	default:
		l.zl.Info("", fields...)
	}
	return nil
}

// Close flushes buffered entries and closes the log file, if any.
func (l *Logger) Close() error {
	_ = l.zl.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
