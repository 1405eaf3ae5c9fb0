package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data/model"

	"github.com/glebarez/sqlite"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/wire"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewDB,
	NewRedis,
	NewRedsync, // 添加 redsync
	NewOrderRepo,
	NewSettingsRepo,
	NewCatalogRepo,
	NewCouponRepo,
	NewActivityRepo,
	NewGatewayClient,
	NewMailer,
	NewNotificationLedger,
	NewCheckoutGuard,
	NewRateLimitStore,
	wire.Bind(new(biz.Transaction), new(*Data)),
)

// Data holds the optional storage handles. Either may be nil when the
// corresponding backend is not configured.
type Data struct {
	db  *gorm.DB
	rdb *redis.Client
	rs  *redsync.Redsync
	log *log.Helper
}

type contextTxKey struct{}

// Exec 执行事务
func (d *Data) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.db == nil {
		return fn(ctx)
	}
	if _, ok := ctx.Value(contextTxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx = context.WithValue(ctx, contextTxKey{}, tx)
		return fn(ctx)
	})
}

// DB returns the transaction bound to ctx, or the base handle.
func (d *Data) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(contextTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.db.WithContext(ctx)
}

// Enabled reports whether a database is configured.
func (d *Data) Enabled() bool {
	return d.db != nil
}

// NewData .
func NewData(c *conf.Bootstrap, logger log.Logger, db *gorm.DB, rdb *redis.Client, rs *redsync.Redsync) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	d := &Data{db: db, rdb: rdb, rs: rs, log: helper}

	if db != nil && c.Data.Database.AutoMigrate {
		if err := db.AutoMigrate(model.All()...); err != nil {
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
		helper.Info("database schema migrated")
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		if db != nil {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return d, cleanup, nil
}

// NewDB opens the configured database. It returns nil without a source so
// the service can run in number-only mode.
func NewDB(c *conf.Bootstrap, logger log.Logger) (*gorm.DB, error) {
	if c == nil || c.Data == nil || c.Data.Database.Source == "" {
		return nil, nil
	}
	dbConf := c.Data.Database

	var dialector gorm.Dialector
	switch dbConf.Driver {
	case "postgres":
		dialector = postgres.New(postgres.Config{DSN: dbConf.Source, DriverName: "postgres"})
	case "sqlite":
		dialector = sqlite.Open(dbConf.Source)
	default:
		dialector = mysql.Open(dbConf.Source)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialector.Name(), err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dbConf.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConf.MaxIdleConns)
	}
	if dbConf.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConf.MaxOpenConns)
	}
	if d := conf.Duration(dbConf.ConnMaxLifetime, 0); d > 0 {
		sqlDB.SetConnMaxLifetime(d)
	}
	return db, nil
}

// gormWriter 把 gorm 的日志转到 kratos logger
type gormWriter struct {
	log *log.Helper
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warnf(format, args...)
}

// newGormLogger reports slow queries and SQL errors. Record-not-found is a
// normal lookup miss and is not logged.
func newGormLogger(logger log.Logger) gormlogger.Interface {
	return gormlogger.New(gormWriter{log: log.NewHelper(log.With(logger, "module", "data/gorm"))}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// NewRedis returns nil when no address is configured.
func NewRedis(c *conf.Bootstrap) *redis.Client {
	if c == nil || c.Data == nil || c.Data.Redis.Addr == "" {
		return nil
	}
	redisConf := c.Data.Redis
	return redis.NewClient(&redis.Options{
		Addr:         redisConf.Addr,
		Password:     redisConf.Password,
		DB:           int(redisConf.Db),
		ReadTimeout:  conf.Duration(redisConf.ReadTimeout, 0),
		WriteTimeout: conf.Duration(redisConf.WriteTimeout, 0),
		DialTimeout:  conf.Duration(redisConf.DialTimeout, 0),
		PoolSize:     redisConf.PoolSize,
	})
}

// NewRedsync 创建 redsync 实例
func NewRedsync(rdb *redis.Client) *redsync.Redsync {
	if rdb == nil {
		return nil
	}
	pool := goredis.NewPool(rdb)
	return redsync.New(pool)
}

// isDuplicateKey recognises unique violations across the supported drivers.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// forUpdate adds a row lock where the dialect supports one.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
