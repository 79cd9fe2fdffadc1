// Package postgres implements the store contracts on PostgreSQL via pgx.
// Every compound mutation runs inside a single transaction through WithTx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripweave/tripweave-core/logger"
	"github.com/tripweave/tripweave-core/store"
)

// DB is the subset of pgxpool.Pool the stores use. pgxmock's pool interface
// satisfies it, which is what the mock tests rely on.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

// Store aggregates the PostgreSQL-backed store implementations over one
// connection pool.
type Store struct {
	db DB
}

var _ store.Store = (*Store)(nil)

// NewStore creates the PostgreSQL store aggregate.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Trips() store.TripStore             { return &TripStore{db: s.db} }
func (s *Store) Invitations() store.InvitationStore { return &InvitationStore{db: s.db} }
func (s *Store) Requests() store.RequestStore       { return &RequestStore{db: s.db} }

// TxFn is a function executed within a database transaction.
type TxFn func(tx pgx.Tx) error

// WithTx executes fn within a transaction, handling begin, commit, and
// rollback.
func WithTx(ctx context.Context, db DB, fn TxFn) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		// Rollback after a successful commit is a no-op.
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			logger.GetLogger().Errorw("Failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations, surfaced to callers as store.ErrDuplicate.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
