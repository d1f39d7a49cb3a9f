package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Client owns the pooled gorm connection.
type Client struct {
	conn *gorm.DB
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	// UseSQLite opens cfg.SQLitePath instead of the postgres DSN.
	UseSQLite bool
}

func (o Options) driver() string {
	if o.UseSQLite {
		return "sqlite"
	}
	return "postgres"
}

var (
	sharedOnce   sync.Once
	sharedClient *Client
	sharedErr    error
)

// Shared opens the process-wide client on first use. Later calls get the same
// client, or the same error, whatever they pass.
func Shared(ctx context.Context, cfg config.DBConfig, opts Options, logg *logger.Logger) (*Client, error) {
	sharedOnce.Do(func() {
		sharedClient, sharedErr = New(ctx, cfg, opts, logg)
	})
	return sharedClient, sharedErr
}

// New opens, tunes and pings a connection.
func New(ctx context.Context, cfg config.DBConfig, opts Options, logg *logger.Logger) (*Client, error) {
	dialector, err := dialectorFor(cfg, opts)
	if err != nil {
		return nil, err
	}

	var queries gormlogger.Interface = silent
	if logg != nil {
		queries = newQueryLog(logg)
	}
	conn, err := open(dialector, queries)
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	tunePool(sqlDB, cfg)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.driver(), err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", opts.driver()), "database connected")
	}
	return &Client{conn: conn}, nil
}

func dialectorFor(cfg config.DBConfig, opts Options) (gorm.Dialector, error) {
	if opts.UseSQLite {
		if cfg.SQLitePath == "" {
			return nil, errors.New("sqlite path is required")
		}
		return sqlite.Open(cfg.SQLitePath), nil
	}
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	// The simple protocol keeps statements working behind transaction poolers.
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
}

var silent = gormlogger.Default.LogMode(gormlogger.Silent)

// Open opens a quiet gorm handle; tests and tools use it directly.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return open(dialector, silent)
}

func open(dialector gorm.Dialector, queries gormlogger.Interface) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 queries,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return conn, nil
}

func tunePool(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// Wrap adopts an already opened connection.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction. fn's error or panic rolls back; a failed
// commit comes back as *CommitError because fn's writes may or may not have
// landed.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		committed = true
		return &CommitError{Err: err}
	}
	committed = true
	return nil
}

type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return "commit transaction: " + e.Err.Error()
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
