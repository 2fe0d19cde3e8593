// Package db is the bun-backed Store for Postgres (and SQLite in tests).
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

type DB struct {
	Bun *bun.DB
}

var _ store.Store = (*DB)(nil)

// PoolOptions tunes the underlying sql.DB.
type PoolOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// Open connects to Postgres, retrying the ping a few times like a container start-up needs.
func Open(ctx context.Context, dsn string, opts PoolOptions, log *logger.Logger) (*DB, error) {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(opts.MaxLifetime)
	}

	for i := 0; i < opts.MaxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, opts.MaxRetries))
		if err = sqldb.PingContext(ctx); err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < opts.MaxRetries-1 {
			select {
			case <-ctx.Done():
				sqldb.Close()
				return nil, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}
	}
	if err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("connect postgres after %d attempts: %w", opts.MaxRetries, err)
	}

	log.Info("DATABASE", "PostgreSQL connection successful")
	return &DB{Bun: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// CreateSchema creates the three tables from the bun models. Used by tests and
// by dialects golang-migrate is not wired for.
func (d *DB) CreateSchema(ctx context.Context) error {
	tables := []interface{}{(*models.TimeSlot)(nil), (*models.Ticket)(nil), (*models.PaymentIntent)(nil)}
	for _, m := range tables {
		if _, err := d.Bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.Bun.Close()
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, store.ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
