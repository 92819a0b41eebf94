package postgres

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/vedran77/ourchat/internal/repository"
)

//go:embed schema.sql
var schema string

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements repository.Store on PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	users    *UserRepo
	requests *RequestRepo
	chats    *ChatRepo
}

// New wraps an open pool and makes sure the schema exists.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{
		pool:     pool,
		users:    NewUserRepo(pool),
		requests: NewRequestRepo(pool),
		chats:    NewChatRepo(pool),
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, errors.Wrap(err, "ensure schema")
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Users() repository.UserRepository   { return s.users }
func (s *Store) Requests() repository.RequestReader { return s.requests }
func (s *Store) Chats() repository.ChatReader       { return s.chats }

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	pgxTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = pgxTx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(&tx{q: pgxTx}); err != nil {
		return mapConflict(err)
	}
	if err := pgxTx.Commit(ctx); err != nil {
		return mapConflict(errors.Wrap(err, "commit tx"))
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return repository.ErrConflict
		}
	}
	return err
}
