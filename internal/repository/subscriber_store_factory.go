package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/cache"
	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/models"

	gormlogger "gorm.io/gorm/logger"
)

// NewSubscriberStore 按 storage.driver 选择后端，调用方不再区分实现
func NewSubscriberStore(storage config.StorageConfig, redisCfg config.RedisConfig) (SubscriberStore, error) {
	if storage.IsRedis() {
		client := cache.NewClient(redisCfg)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis store failed: %w", err)
		}
		logger.Infow("subscriber_store_ready", "driver", "redis", "prefix", storage.RedisPrefix)
		return NewRedisSubscriberStore(client, storage.RedisPrefix), nil
	}

	driver := strings.ToLower(strings.TrimSpace(storage.Driver))
	if driver == "" || driver == "sqlite" {
		if err := ensureSQLiteDir(storage.DSN); err != nil {
			return nil, err
		}
	}
	db, err := models.OpenDB(driver, storage.DSN, models.DBPoolConfig{
		MaxOpenConns:           storage.Pool.MaxOpenConns,
		MaxIdleConns:           storage.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: storage.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: storage.Pool.ConnMaxIdleTimeSeconds,
	}, gormlogger.Warn)
	if err != nil {
		return nil, fmt.Errorf("open %s store failed: %w", driver, err)
	}
	if err := models.MigrateWith(db); err != nil {
		return nil, fmt.Errorf("migrate %s store failed: %w", driver, err)
	}
	logger.Infow("subscriber_store_ready", "driver", db.Dialector.Name())
	return NewGormSubscriberStore(db), nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimSpace(dsn)
	if path == "" || strings.HasPrefix(path, "file:") || strings.Contains(path, ":memory:") {
		return nil
	}
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir failed: %w", err)
	}
	return nil
}
