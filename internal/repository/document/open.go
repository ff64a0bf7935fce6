package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported backend drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverPebble   = "pebble"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver     string
	DSN        string // sqlite file or postgres connection string
	Collection string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PebblePath string

	// Connection attempts for postgres and redis; nil uses DefaultRetryConfig.
	Retry *RetryConfig
}

// Open builds the Repository named by opts.Driver.
func Open(ctx context.Context, opts Options, logger Logger) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverSQLite, "":
		dsn := opts.DSN
		if dsn == "" {
			dsn = "chatsync.db"
		}
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return ownedGormRepository(db, opts.Collection, logger)

	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires DOCSTORE_DSN")
		}
		var db *gorm.DB
		err := retry(ctx, retryConfig(opts), func(context.Context) error {
			var err error
			db, err = gorm.Open(postgres.Open(opts.DSN), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
			if err != nil {
				logger.Warn("postgres not reachable yet", "error", err)
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return ownedGormRepository(db, opts.Collection, logger)

	case DriverRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis driver requires REDIS_ADDR")
		}
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        opts.RedisAddr,
			Password:    opts.RedisPassword,
			DB:          opts.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		err := retry(ctx, retryConfig(opts), func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err := rdb.Ping(pingCtx).Err()
			if err != nil {
				logger.Warn("redis not reachable yet", "addr", opts.RedisAddr, "error", err)
			}
			return err
		})
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisRepository(rdb, opts.Collection, logger)

	case DriverPebble:
		path := opts.PebblePath
		if path == "" {
			path = "data/chatsync"
		}
		return NewPebbleRepository(path, opts.Collection, logger)

	case DriverMemory:
		return NewMemoryRepository(), nil

	default:
		return nil, fmt.Errorf("unknown document driver %q", opts.Driver)
	}
}

// ownedGormRepository wraps a connection Open created, releasing it when
// the repository cannot be built.
func ownedGormRepository(db *gorm.DB, collection string, logger Logger) (Repository, error) {
	repo, err := NewGormRepository(db, collection, logger)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return repo, nil
}

func retryConfig(opts Options) *RetryConfig {
	if opts.Retry != nil {
		return opts.Retry
	}
	return DefaultRetryConfig()
}
