package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, letting
// every repository run against either the pool or an open transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles all repositories over one connection source. Mutation
// handlers receive a transaction-scoped Store from WithinTx; everything
// they touch commits or rolls back as one unit.
type Store struct {
	pool *pgxpool.Pool

	Customers     CustomerRepository
	Agents        AgentRepository
	Tickets       TicketRepository
	Comments      CommentRepository
	Audits        AuditRepository
	RefreshTokens RefreshTokenRepository
}

// NewStore builds a pool-backed store.
func NewStore(pool *pgxpool.Pool) *Store {
	s := newStoreWithDB(pool)
	s.pool = pool
	return s
}

func newStoreWithDB(db DB) *Store {
	audits := NewAuditRepository(db)
	return &Store{
		Customers:     NewCustomerRepository(db, audits),
		Agents:        NewAgentRepository(db, audits),
		Tickets:       NewTicketRepository(db, audits),
		Comments:      NewCommentRepository(db),
		Audits:        audits,
		RefreshTokens: NewRefreshTokenRepository(db),
	}
}

// WithinTx runs fn against a transaction-scoped store, committing on nil
// and rolling back on error. Without a pool (tests wire fake
// repositories directly) fn runs against the store itself.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, s *Store) error) error {
	if s.pool == nil {
		return fn(ctx, s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, newStoreWithDB(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
