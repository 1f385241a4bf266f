// Package postgres implements the ledger store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxTxAttempts bounds retries of transactions aborted by a serialization
// failure or deadlock.
const maxTxAttempts = 3

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries holds the read operations shared by Store and Tx.
type queries struct {
	db DBTX
}

// Store is the process-wide ledger handle. Build it once at startup and
// pass it to the services that need it.
type Store struct {
	*queries
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Tx is a ledger unit of work bound to one pgx transaction.
type Tx struct {
	*queries
	tx pgx.Tx
}

var (
	_ domain.LedgerStore = (*Store)(nil)
	_ domain.LedgerTx    = (*Tx)(nil)
)

// NewPool creates and pings a connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return pool, nil
}

// NewStore wraps pool as a ledger store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{
		queries: &queries{db: pool},
		pool:    pool,
		logger:  logger,
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithTx runs fn inside a READ COMMITTED transaction. Writers take explicit
// row locks and use conditional updates, so the default isolation level is
// enough. Transactions aborted with a serialization failure or deadlock
// are retried.
func (s *Store) WithTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		s.logger.Warn("retrying ledger transaction",
			"attempt", attempt,
			"error", err,
		)
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	pgxTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	defer func() {
		_ = pgxTx.Rollback(ctx)
	}()

	if err := fn(&Tx{queries: &queries{db: pgxTx}, tx: pgxTx}); err != nil {
		return err
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}

	return nil
}

// savepoint runs fn inside a nested transaction so a failing statement
// does not abort the enclosing one.
func (t *Tx) savepoint(ctx context.Context, fn func(db DBTX) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: savepoint: %w", err)
	}

	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}

	return sp.Commit(ctx)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
