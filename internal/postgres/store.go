package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/storefront/internal/repository"
)

// Store is the persistence boundary used by services: every query plus a
// way to run several of them in one transaction.
type Store interface {
	repository.Querier

	// ExecTx runs fn in a read-committed transaction. Any error returned
	// by fn rolls back every statement fn executed.
	ExecTx(ctx context.Context, fn func(q repository.Querier) error) error
}

// PgStore implements Store on a pgx pool.
type PgStore struct {
	*repository.Queries
	pool *pgxpool.Pool
}

var _ Store = (*PgStore)(nil)

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{
		Queries: repository.New(pool),
		pool:    pool,
	}
}

// ExecTx implements Store.
func (s *PgStore) ExecTx(ctx context.Context, fn func(q repository.Querier) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PoolConfig controls the pgx pool.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// NewPool parses cfg and opens a pool, verifying it with a ping.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
