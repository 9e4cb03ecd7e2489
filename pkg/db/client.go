// Package db owns the gorm client, connection pooling and the transaction
// runner used by every service that mutates more than one row.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/haroonshop/storefront-backend/pkg/config"
	"github.com/haroonshop/storefront-backend/pkg/db/models"
	"github.com/haroonshop/storefront-backend/pkg/logger"
)

// Client wraps the gorm handle so callers get a stable surface for
// transactions and health checks instead of a raw *gorm.DB.
type Client struct {
	gorm *gorm.DB
}

// NewClient opens the configured database and applies pool settings. When the
// sqlite feature flag is on (local development, tests) an in-memory database
// is opened instead of Postgres.
func NewClient(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("db: config is required")
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(cfg)),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("db: underlying handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	client := &Client{gorm: gdb}
	if err := client.Ping(ctx); err != nil {
		return nil, err
	}

	if cfg.FeatureFlags.AutoMigrate {
		if err := client.Migrate(); err != nil {
			return nil, err
		}
		if logg != nil {
			logg.Info(ctx, "database schema migrated")
		}
	}
	return client, nil
}

// NewTestClient opens an in-memory sqlite database with the full schema
// migrated. The database is named uniquely with shared cache so every pooled
// connection sees the same schema, and each call returns an isolated database.
func NewTestClient() (*Client, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", err)
	}
	client := &Client{gorm: gdb}
	if err := client.Migrate(); err != nil {
		return nil, err
	}
	return client, nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	if cfg.FeatureFlags.UseSQLite {
		return sqlite.Open("file::memory:?cache=shared"), nil
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("db: missing DSN")
	}
	return postgres.Open(cfg.DB.DSN), nil
}

func gormLogLevel(cfg *config.Config) gormlogger.LogLevel {
	if cfg.App.IsDev() {
		return gormlogger.Warn
	}
	return gormlogger.Silent
}

// Migrate creates or updates the schema for every registered model.
func (c *Client) Migrate() error {
	err := c.gorm.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}

// DB exposes the gorm handle for repository construction.
func (c *Client) DB() *gorm.DB {
	return c.gorm
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.gorm.DB()
	if err != nil {
		return fmt.Errorf("db: underlying handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn inside a single database transaction. The transaction is
// committed when fn returns nil, rolled back when it returns an error, and
// rolled back before re-panicking if fn panics.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.gorm.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("db: begin tx: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("db: rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("db: commit tx: %w", err)
	}
	return nil
}
